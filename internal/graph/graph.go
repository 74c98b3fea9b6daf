package graph

import (
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// Edge is an outgoing transition from a node. Condition is a CEL predicate
// over the run state; empty means unconditional.
type Edge struct {
	To        string
	Condition string
}

// Graph is the immutable executable form of a GraphDefinition. A fresh Graph
// is built for every run so that no run can observe another's mutations.
// Adjacency lists preserve edge declaration order, and the declared node
// order determines the entry point (first node declared).
type Graph struct {
	order []string
	nodes map[string]schema.NodeDefinition
	edges map[string][]Edge
}

// Build constructs a Graph from node and edge definitions.
// Two nodes sharing a name is a DUPLICATE_NODE error; a graph with no nodes
// is a VALIDATION_ERROR. Edges referencing unknown nodes are kept as-is:
// the interpreter treats a dangling target as run completion.
func Build(nodes []schema.NodeDefinition, edges []schema.EdgeDefinition) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph has no nodes")
	}

	g := &Graph{
		order: make([]string, 0, len(nodes)),
		nodes: make(map[string]schema.NodeDefinition, len(nodes)),
		edges: make(map[string][]Edge, len(edges)),
	}

	for _, n := range nodes {
		if n.Name == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "node name is empty")
		}
		if _, exists := g.nodes[n.Name]; exists {
			return nil, schema.NewErrorf(schema.ErrCodeDuplicateNode,
				"duplicate node name %q", n.Name).WithNode(n.Name)
		}
		g.nodes[n.Name] = n
		g.order = append(g.order, n.Name)
	}

	for _, e := range edges {
		g.edges[e.From] = append(g.edges[e.From], Edge{To: e.To, Condition: e.Condition})
	}

	return g, nil
}

// BuildFromDefinition builds a Graph from a stored definition.
func BuildFromDefinition(def *schema.GraphDefinition) (*Graph, error) {
	if def == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph definition is nil")
	}
	return Build(def.Nodes, def.Edges)
}

// Start returns the entry node name (first declared).
func (g *Graph) Start() string {
	return g.order[0]
}

// Node returns the definition for a node name.
func (g *Graph) Node(name string) (schema.NodeDefinition, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Has reports whether a node exists in the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Edges returns the outgoing edges of a node in declaration order.
// The returned slice must not be mutated.
func (g *Graph) Edges(name string) []Edge {
	return g.edges[name]
}

// Names returns all node names in declaration order.
// The returned slice must not be mutated.
func (g *Graph) Names() []string {
	return g.order
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}
