package schemas

// -- Agent Streaming Schemas --

// AgentMessage is the typed progress message streamed to clients. It is a
// tagged union: exactly one field is set. Per turn the ordering is
// (reasoning | tool_call | tool_response)* followed by exactly one terminal
// final_answer or error.
type AgentMessage struct {
	Reasoning    string `json:"reasoning,omitempty"`
	ToolCall     string `json:"tool_call,omitempty"`
	ToolResponse string `json:"tool_response,omitempty"`
	FinalAnswer  string `json:"final_answer,omitempty"`
	Error        string `json:"error,omitempty"`
}

// IsZero reports whether no field of the union is set.
func (m AgentMessage) IsZero() bool {
	return m == AgentMessage{}
}

// ToolCallFragment is a tool invocation requested by the model.
type ToolCallFragment struct {
	Name string
	Args map[string]any
}

// ToolResultFragment is the structured response of a completed tool call.
type ToolResultFragment struct {
	Name     string
	Response map[string]any
}

// Fragment is one content piece of a turn event. At most one of Call and
// Result is set; a fragment with neither is plain text.
type Fragment struct {
	Text   string
	Call   *ToolCallFragment
	Result *ToolResultFragment
}

// TurnEvent is one entry of the raw execution trace for a turn.
type TurnEvent struct {
	Fragments []Fragment
	// Final marks the terminal event of the turn.
	Final bool
	// Escalate is set when the turn ended without an answer; ErrorMessage
	// carries the escalation reason, if any.
	Escalate     bool
	ErrorMessage string
}

// Session identifies one conversation owned by the session store. Sessions
// are created on first reference and reused across turns.
type Session struct {
	AppID     string `json:"app_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Key returns the composite identity used by stores keyed per session.
func (s Session) Key() string {
	return s.AppID + "/" + s.UserID + "/" + s.SessionID
}

// TaskRequest is the client request submitting a task to the agent.
type TaskRequest struct {
	Task      string `json:"task"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	AgentInitialized bool   `json:"agent_initialized"`
}
