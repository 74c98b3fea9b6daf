package validation

import (
	"fmt"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// validateSemantic performs semantic analysis on the graph definition.
// Errors: duplicate node names. Warnings: edges referencing unknown nodes
// (the interpreter degrades these to run completion at runtime, but they
// are almost always configuration mistakes), unregistered tool refs, nodes
// unreachable from the entry point, and high retry counts.
func validateSemantic(def *schema.GraphDefinition, lookup ToolLookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	names := make(map[string]bool, len(def.Nodes))
	for i, n := range def.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if names[n.Name] {
			result.AddError(path+".name", schema.ErrCodeDuplicateNode,
				fmt.Sprintf("duplicate node name %q", n.Name))
			continue
		}
		names[n.Name] = true

		if lookup != nil && n.ToolRef != "" && !lookup.Has(n.ToolRef) {
			result.AddWarning(path+".tool_ref", schema.ErrCodeToolNotFound,
				fmt.Sprintf("tool %q not registered; visits will be recorded as tool_not_found", n.ToolRef))
		}

		if n.Retry != nil && n.Retry.Max > 10 {
			result.AddWarning(path+".retry.max", schema.ErrCodeValidation,
				fmt.Sprintf("high retry count (%d) may cause excessive delays", n.Retry.Max))
		}
	}

	for i, e := range def.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if !names[e.From] {
			result.AddWarning(path+".from", schema.ErrCodeValidation,
				fmt.Sprintf("edge source %q is not a declared node; edge can never fire", e.From))
		}
		if !names[e.To] {
			result.AddWarning(path+".to", schema.ErrCodeValidation,
				fmt.Sprintf("edge target %q is not a declared node; reaching it completes the run", e.To))
		}
	}

	result.Merge(validateReachability(def, names))

	return result
}

// validateReachability walks the edge list from the entry node (first
// declared) and warns about nodes no path can reach.
func validateReachability(def *schema.GraphDefinition, names map[string]bool) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(def.Nodes) == 0 {
		return result
	}

	adjacency := make(map[string][]string, len(def.Edges))
	for _, e := range def.Edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	reached := map[string]bool{def.Nodes[0].Name: true}
	queue := []string{def.Nodes[0].Name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if names[next] && !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	for i, n := range def.Nodes {
		if !reached[n.Name] {
			result.AddWarning(fmt.Sprintf("nodes[%d]", i), schema.ErrCodeValidation,
				fmt.Sprintf("node %q is unreachable from the entry node %q", n.Name, def.Nodes[0].Name))
		}
	}
	return result
}
