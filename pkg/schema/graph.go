package schema

// GraphDefinition is the declarative form of a workflow graph as submitted
// by clients. Declaration order is load-bearing twice over: the first node
// is the entry point, and a node's outgoing edges are tried in the order
// they appear here.
type GraphDefinition struct {
	Name  string           `json:"name,omitempty"`
	Nodes []NodeDefinition `json:"nodes"`
	Edges []EdgeDefinition `json:"edges,omitempty"`
}

// NodeDefinition binds a named node to a registered tool.
type NodeDefinition struct {
	Name    string         `json:"name"`
	ToolRef string         `json:"tool_ref"`
	Params  map[string]any `json:"params,omitempty"`
	Retry   *RetryPolicy   `json:"retry,omitempty"`
}

// EdgeDefinition is a directed transition between nodes. Condition is a CEL
// predicate over the run state; empty means the edge is unconditional.
type EdgeDefinition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
}

// RetryPolicy controls re-invocation of a node's tool on failure.
// Max is the number of retries after the first attempt. Backoff selects the
// delay progression (none, constant, linear, exponential); Delay is the base
// delay as a Go duration string.
type RetryPolicy struct {
	Max     int    `json:"max"`
	Backoff string `json:"backoff,omitempty"`
	Delay   string `json:"delay,omitempty"`
}
