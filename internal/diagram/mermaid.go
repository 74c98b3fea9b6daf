package diagram

import (
	"fmt"
	"strings"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// RenderMermaid renders a graph definition as a Mermaid flowchart. Edge
// conditions appear as edge labels; unconditional edges are unlabeled. The
// entry node (first declared) gets a distinct shape.
func RenderMermaid(def *schema.GraphDefinition) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if def.Name != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", def.Name))
	}

	for i, n := range def.Nodes {
		id := mermaidSafeID(n.Name)
		label := fmt.Sprintf("%s<br/>%s", n.Name, n.ToolRef)
		if i == 0 {
			b.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, label))
		} else {
			b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
		}
	}

	for _, e := range def.Edges {
		label := ""
		if e.Condition != "" {
			label = fmt.Sprintf("|%s|", mermaidEscape(e.Condition))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(e.From), label, mermaidSafeID(e.To)))
	}

	return b.String()
}

// mermaidSafeID sanitizes a node name into a Mermaid-safe identifier.
func mermaidSafeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// mermaidEscape strips characters that break Mermaid edge labels.
func mermaidEscape(s string) string {
	r := strings.NewReplacer("|", "/", "\"", "'", "\n", " ")
	return r.Replace(s)
}
