package tools

import "context"

// Tool is a pluggable unit of work bound to a graph node. The engine
// imposes no structure beyond this contract: a tool receives a read-only
// snapshot of the run state plus the node's params, and returns a mapping
// of fields to merge into state (shallow overwrite) or an error.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error)
}

// ToolRegistry manages the lifecycle and lookup of available tools.
// Implementations must support concurrent lookups; the registry is the only
// process-wide resource shared between runs.
type ToolRegistry interface {
	Register(tool Tool) error
	Get(name string) (Tool, error)
	Lookup(name string) (Tool, bool)
	List() []ToolInfo
	Has(name string) bool
	Count() int
}

// ToolInfo is a summary of a registered tool for listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error)
}

func (f Func) Name() string        { return f.ToolName }
func (f Func) Description() string { return f.Desc }

func (f Func) Invoke(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	return f.Fn(ctx, state, params)
}
