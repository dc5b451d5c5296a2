package schemas

import "errors"

// -- Error Taxonomy --
//
// Failures are classified into five kinds. Detector and grounding failures
// originate in the resolver and must never escape a tool invocation: the
// materializer converts everything at that boundary into an error-status
// ActionResult so a single failed call cannot abort the agent turn.

var (
	// ErrInvalidInput marks empty or malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamParsing marks any failure of the UI detector service:
	// timeout, non-2xx status, transport error, or malformed response.
	ErrUpstreamParsing = errors.New("ui parsing failed")
	// ErrUpstreamGrounding marks a grounding model call failure or a reply
	// that does not match the required output shape.
	ErrUpstreamGrounding = errors.New("visual grounding failed")
	// ErrDriver marks a browser engine failure, except the benign shutdown
	// race which the driver swallows.
	ErrDriver = errors.New("browser driver failed")
	// ErrToolExecution is the catch-all applied at the tool boundary.
	ErrToolExecution = errors.New("tool execution failed")
)
