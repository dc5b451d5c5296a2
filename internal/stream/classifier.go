// File: internal/stream/classifier.go

// Package stream converts the raw execution trace of one agent turn into the
// typed message stream clients consume, and frames those messages for
// incremental delivery.
package stream

import (
	"fmt"
	"strings"

	"github.com/gazerhq/gazer/api/schemas"
)

// defaultEscalationMessage is used when a turn escalates without a reason.
const defaultEscalationMessage = "No specific message."

// Classify maps one turn event onto zero or more typed messages.
//
// A terminal event yields exactly one message: final_answer when it carries
// text content, otherwise an error when the escalation flag is set. A
// non-terminal event yields one message per recognized fragment, in fragment
// order; unrecognized fragments are dropped.
func Classify(event schemas.TurnEvent) []schemas.AgentMessage {
	if event.Final {
		return classifyTerminal(event)
	}

	var out []schemas.AgentMessage
	for _, frag := range event.Fragments {
		switch {
		case frag.Call != nil:
			out = append(out, schemas.AgentMessage{ToolCall: renderToolCall(frag.Call)})
		case frag.Result != nil:
			out = append(out, schemas.AgentMessage{ToolResponse: renderToolResponse(frag.Result)})
		case frag.Text != "":
			out = append(out, schemas.AgentMessage{Reasoning: frag.Text})
		}
	}
	return out
}

func classifyTerminal(event schemas.TurnEvent) []schemas.AgentMessage {
	var content strings.Builder
	for _, frag := range event.Fragments {
		if frag.Call == nil && frag.Result == nil && frag.Text != "" {
			content.WriteString(frag.Text)
		}
	}

	if content.Len() > 0 {
		return []schemas.AgentMessage{{FinalAnswer: content.String()}}
	}
	if event.Escalate {
		reason := event.ErrorMessage
		if reason == "" {
			reason = defaultEscalationMessage
		}
		return []schemas.AgentMessage{{Error: fmt.Sprintf("Agent escalated: %s", reason)}}
	}
	return nil
}

// renderToolCall shows the call as name plus compact arguments.
func renderToolCall(call *schemas.ToolCallFragment) string {
	args, err := json.Marshal(call.Args)
	if err != nil {
		args = []byte("{}")
	}
	return fmt.Sprintf("%s(%s)", call.Name, args)
}

// renderToolResponse pretty-prints the structured response.
func renderToolResponse(result *schemas.ToolResultFragment) string {
	pretty, err := json.MarshalIndent(result.Response, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result.Response)
	}
	return string(pretty)
}
