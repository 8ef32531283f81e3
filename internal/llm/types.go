// Package llm talks to OpenAI-compatible chat-completions endpoints.
// It holds two concerns: a thin wire client, and a negotiator that
// walks an ordered candidate list of endpoints and model identifiers
// until one answers.
package llm

import (
	"encoding/json"
	"fmt"
)

// Message is one chat turn on the wire.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is the modern tool-invocation encoding.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the invoked tool name and its arguments as a
// JSON-encoded string, which is how the wire format ships them.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolInvocation is a decoded tool request: the name plus parsed
// arguments. Arguments that fail to parse decode to an empty map so a
// confused model degrades to a tool call with defaults rather than a
// hard error.
type ToolInvocation struct {
	Name string
	Args map[string]any
}

// ChatResponse is the normalized result of one completion. ToolCall is
// nil for a plain text answer.
type ChatResponse struct {
	Content  string
	ToolCall *ToolInvocation
	Model    string
}

// wireResponse is the raw completion shape. Three assistant-turn
// encodings exist in the wild: plain content, the legacy function_call
// object, and the tool_calls list.
type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content      string     `json:"content"`
			ToolCalls    []ToolCall `json:"tool_calls"`
			FunctionCall *struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// normalize collapses the three assistant-turn encodings into one
// ChatResponse. When both encodings are somehow present, tool_calls
// wins; only the first entry of a multi-call list is honored.
func (w *wireResponse) normalize() (*ChatResponse, error) {
	if len(w.Choices) == 0 {
		return nil, fmt.Errorf("completion has no choices")
	}
	msg := w.Choices[0].Message
	resp := &ChatResponse{Content: msg.Content, Model: w.Model}

	switch {
	case len(msg.ToolCalls) > 0:
		resp.ToolCall = &ToolInvocation{
			Name: msg.ToolCalls[0].Function.Name,
			Args: parseArgs(msg.ToolCalls[0].Function.Arguments),
		}
	case msg.FunctionCall != nil:
		resp.ToolCall = &ToolInvocation{
			Name: msg.FunctionCall.Name,
			Args: parseArgs(msg.FunctionCall.Arguments),
		}
	}
	return resp, nil
}

func parseArgs(raw string) map[string]any {
	args := make(map[string]any)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return make(map[string]any)
	}
	return args
}
