// Package tools defines the functions the assistant can call during a
// chat exchange. The registry is fixed at construction; the model
// chooses among declared tools but can never add to them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidehunter/translog/internal/blob"
	"github.com/tidehunter/translog/internal/logstore"
)

// Store is the log access the tools need.
type Store interface {
	Load() *logstore.Snapshot
	WriteDay(*logstore.DayRecord) (string, error)
	DailyDir() string
}

// PhotoStore is the blob access the photo tools need.
type PhotoStore interface {
	List(ctx context.Context) ([]blob.Photo, error)
	Configured() bool
}

// Tool is one callable function: its wire declaration plus the handler
// that runs it. Handlers return a JSON document for the model to read.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) string
}

// Registry holds the fixed tool set.
type Registry struct {
	logger   *slog.Logger
	store    Store
	photos   PhotoStore
	readOnly bool
	now      func() time.Time

	tools map[string]Tool
	order []string
}

// NewRegistry builds the registry with every tool registered.
func NewRegistry(logger *slog.Logger, store Store, photos PhotoStore, readOnly bool) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:   logger.With("component", "tools"),
		store:    store,
		photos:   photos,
		readOnly: readOnly,
		now:      time.Now,
		tools:    make(map[string]Tool),
	}
	r.register(r.addDayEntryTool())
	r.register(r.currentStatsTool())
	r.register(r.progressPhotosTool())
	r.register(r.uploadPhotoTool())
	return r
}

func (r *Registry) register(t Tool) {
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Declarations returns the tool schemas in wire form, in registration
// order.
func (r *Registry) Declarations() []map[string]any {
	out := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

// Execute runs the named tool and returns its JSON result. An unknown
// name yields a structured failure document rather than an error; the
// result goes back to the model, which can recover from it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", name)
		return failure(fmt.Sprintf("unknown tool %q", name))
	}
	r.logger.Info("executing tool", "tool", name)
	return t.Handler(ctx, args)
}

// failure encodes an error as a tool result document.
func failure(msg string) string {
	return mustJSON(map[string]any{"success": false, "error": msg})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable values, which the handlers
		// never build.
		return fmt.Sprintf(`{"success": false, "error": %q}`, err.Error())
	}
	return string(data)
}

// Argument readers. Tool arguments come from a language model: every
// value may be missing, the wrong type, or a number spelled as a
// string. Readers degrade to absent rather than failing.

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argFloat(args map[string]any, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return &f
		}
	}
	return nil
}
