// Package agent runs the knowledge coordinator: an OpenAI-compatible chat
// loop whose tool calls are dispatched against the knowledge service.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/starford/ansuz/internal/metrics"
)

// Tool is one callable exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) string
}

// funcTool adapts a plain function into a Tool.
type funcTool struct {
	name        string
	description string
	parameters  map[string]interface{}
	run         func(ctx context.Context, args map[string]interface{}) string
}

func (t *funcTool) Name() string                       { return t.name }
func (t *funcTool) Description() string                { return t.description }
func (t *funcTool) Parameters() map[string]interface{} { return t.parameters }
func (t *funcTool) Execute(ctx context.Context, args map[string]interface{}) string {
	return t.run(ctx, args)
}

// NewTool builds a Tool from a function and a JSON Schema parameter object.
func NewTool(name, description string, parameters map[string]interface{}, run func(ctx context.Context, args map[string]interface{}) string) Tool {
	return &funcTool{name: name, description: description, parameters: parameters, run: run}
}

// Registry manages tool registration and dispatch. When a metrics recorder
// is attached, every execution is recorded against the session.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string

	recorder  metrics.Recorder
	sessionID string
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// SetRecorder attaches a metrics recorder; executions are recorded under the
// given session id.
func (r *Registry) SetRecorder(rec metrics.Recorder, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = rec
	r.sessionID = sessionID
}

// Register adds a tool. Re-registering a name replaces it without changing
// its position.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute dispatches a tool call. Unknown tools return an error string so
// the model sees the failure and can correct itself.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) string {
	r.mu.RLock()
	tool, ok := r.tools[name]
	rec, session := r.recorder, r.sessionID
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("unknown tool requested", slog.String("tool", name))
		return "Error: unknown tool: " + name
	}

	started := time.Now()
	result := tool.Execute(ctx, args)

	if rec != nil {
		op := metrics.Operation{
			SessionID: session,
			Tool:      name,
			Outcome:   classify(result),
			Duration:  time.Since(started),
			StartedAt: started,
		}
		if err := rec.Record(op); err != nil {
			r.logger.Warn("metrics record failed", slog.String("error", err.Error()))
		}
	}
	return result
}

// classify maps a rendered tool result back to its outcome class for
// metrics. The string contract is stable: deferrals and errors carry fixed
// prefixes.
func classify(result string) string {
	switch {
	case len(result) >= 17 && result[:17] == "REVIEW_REQUIRED: ":
		return "review_required"
	case len(result) >= 7 && result[:7] == "Error: ":
		return "error"
	default:
		return "ok"
	}
}

// Definitions converts the registered tools to the chat API's tool schema,
// in registration order.
func (r *Registry) Definitions() []openai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}

// parseArgs decodes a tool call's JSON argument blob.
func parseArgs(raw string) (map[string]interface{}, error) {
	args := make(map[string]interface{})
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// argString reads a string argument, empty when absent or mistyped.
func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argFloat reads a numeric argument, zero when absent or mistyped.
func argFloat(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}
