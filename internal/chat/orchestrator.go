// Package chat runs one assistant exchange: grounding the model in the
// current log state, letting it call at most one tool, and folding the
// tool result back into a final answer.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tidehunter/translog/internal/llm"
	"github.com/tidehunter/translog/internal/logstore"
	"github.com/tidehunter/translog/internal/tools"
)

// maxHistoryTurns caps the prior turns replayed into the model. Older
// turns add cost without adding grounding; the system prompt already
// carries the log state.
const maxHistoryTurns = 10

// Snapshotter provides the current log state for prompt grounding.
type Snapshotter interface {
	Load() *logstore.Snapshot
}

// Turn is one prior exchange turn from the client.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the outcome of one exchange. FunctionCalled and
// FunctionResult are set only when the model used a tool.
type Result struct {
	Response       string          `json:"response"`
	FunctionCalled string          `json:"function_called,omitempty"`
	FunctionResult json.RawMessage `json:"function_result,omitempty"`
	Model          string          `json:"model,omitempty"`
	ExchangeID     string          `json:"exchange_id"`
}

// Orchestrator wires the negotiator, the tool registry and the log
// store into the exchange loop.
type Orchestrator struct {
	logger     *slog.Logger
	client     *llm.Client
	negotiator *llm.Negotiator
	registry   *tools.Registry
	store      Snapshotter
}

// New builds an Orchestrator.
func New(logger *slog.Logger, client *llm.Client, negotiator *llm.Negotiator, registry *tools.Registry, store Snapshotter) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:     logger.With("component", "chat"),
		client:     client,
		negotiator: negotiator,
		registry:   registry,
		store:      store,
	}
}

// Exchange answers one user message. The model gets one chance to call
// a tool; if it does, the tool result is fed back for a final answer
// from the same endpoint and model the negotiation settled on.
func (o *Orchestrator) Exchange(ctx context.Context, message string, history []Turn) (*Result, error) {
	exchangeID := uuid.NewString()
	logger := o.logger.With("exchange_id", exchangeID)

	snap := o.store.Load()
	messages := o.buildMessages(snap, message, history)

	resp, cand, err := o.negotiator.Chat(ctx, llm.Request{
		Messages:    messages,
		Tools:       o.registry.Declarations(),
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Response:   resp.Content,
		Model:      cand.Model,
		ExchangeID: exchangeID,
	}
	if resp.ToolCall == nil {
		return result, nil
	}

	// One tool round, by construction: the follow-up request carries no
	// tool declarations, so the model cannot chain calls.
	call := resp.ToolCall
	logger.Info("model requested tool", "tool", call.Name)
	toolResult := o.registry.Execute(ctx, call.Name, call.Args)
	result.FunctionCalled = call.Name
	result.FunctionResult = json.RawMessage(toolResult)

	followUp, err := o.followUp(ctx, cand, messages, call, toolResult)
	if err != nil {
		// The tool already ran; its outcome must reach the user even
		// when the summarizing completion fails.
		logger.Warn("follow-up completion failed, returning raw tool result", "error", err)
		result.Response = fmt.Sprintf("I ran %s. Raw result: %s", call.Name, toolResult)
		return result, nil
	}
	result.Response = followUp.Content
	if followUp.Content == "" {
		result.Response = fmt.Sprintf("Done. %s returned: %s", call.Name, toolResult)
	}
	return result, nil
}

// followUp sends the tool result back to the negotiated candidate for
// a final user-facing answer.
func (o *Orchestrator) followUp(ctx context.Context, cand llm.Candidate, messages []llm.Message, call *llm.ToolInvocation, toolResult string) (*llm.ChatResponse, error) {
	argsJSON, err := json.Marshal(call.Args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	callID := uuid.NewString()

	followUpMessages := append(messages,
		llm.Message{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:   callID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      call.Name,
					Arguments: string(argsJSON),
				},
			}},
		},
		llm.Message{
			Role:       "tool",
			Content:    toolResult,
			ToolCallID: callID,
		},
	)

	return o.client.Chat(ctx, llm.Request{
		BaseURL:     cand.BaseURL,
		Model:       cand.Model,
		Messages:    followUpMessages,
		Temperature: 0.7,
		MaxTokens:   1000,
	})
}

// buildMessages assembles system prompt, capped history and the new
// user message.
func (o *Orchestrator) buildMessages(snap *logstore.Snapshot, message string, history []Turn) []llm.Message {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: buildSystemPrompt(snap)})
	for _, turn := range history {
		role := turn.Role
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return append(messages, llm.Message{Role: "user", Content: message})
}
