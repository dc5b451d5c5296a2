package schemas

import "fmt"

// -- Tool Result Schemas --

// ResultStatus is the outcome of one tool invocation.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// ActionResult is the structured outcome returned to the agent loop for every
// state-changing tool call. A failed call carries Error and never propagates
// an exception into the loop.
type ActionResult struct {
	Status     ResultStatus `json:"status"`
	ArtifactID string       `json:"computer_screenshot_artifact_id,omitempty"`
	URL        string       `json:"url,omitempty"`
	Message    string       `json:"message"`
	Error      string       `json:"error,omitempty"`
}

// SuccessResult builds the success envelope for a captured state stored under
// artifactID.
func SuccessResult(artifactID, url string) ActionResult {
	return ActionResult{
		Status:     StatusSuccess,
		ArtifactID: artifactID,
		URL:        url,
		Message:    fmt.Sprintf("Action completed successfully. Current URL: %s", url),
	}
}

// ErrorResult builds the error envelope for a failed tool call.
func ErrorResult(err error) ActionResult {
	return ActionResult{
		Status:  StatusError,
		Error:   err.Error(),
		Message: fmt.Sprintf("Action failed: %s", err.Error()),
	}
}

// ToMap flattens the result into the generic payload shape fed back to the
// model as a function response.
func (r ActionResult) ToMap() map[string]any {
	m := map[string]any{
		"status":  string(r.Status),
		"message": r.Message,
	}
	if r.ArtifactID != "" {
		m["computer_screenshot_artifact_id"] = r.ArtifactID
	}
	if r.URL != "" {
		m["url"] = r.URL
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}
