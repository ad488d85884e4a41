package analysis

import (
	"fmt"
	"strings"
)

// Mermaid rendering of an already-computed FlowGraph. These are pure
// string builders: all classification happened upstream.

// FlowchartDiagram renders the graph as a Mermaid flowchart. Affected
// nodes are styled by impact level so direct and indirect impact are
// visually distinct.
func FlowchartDiagram(graph *FlowGraph, title string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "---\ntitle: %s\n---\n", title)
	}
	b.WriteString("graph LR\n")

	for _, n := range graph.Nodes {
		shape := "[%q]"
		if n.Type == NodeEntity {
			shape = "((%q))"
		}
		fmt.Fprintf(&b, "    %s"+shape+"\n", mermaidID(n.ID), n.Label)
	}
	b.WriteString("\n")

	for _, e := range graph.Edges {
		arrow := "-->"
		if e.FlowType == FlowBidirectional {
			arrow = "<-->"
		}
		fmt.Fprintf(&b, "    %s %s|%s| %s\n", mermaidID(e.Source), arrow, e.Label, mermaidID(e.Target))
	}
	b.WriteString("\n")

	b.WriteString("    classDef direct fill:#fecaca,stroke:#dc2626,stroke-width:2px\n")
	b.WriteString("    classDef indirect fill:#fef3c7,stroke:#d97706,stroke-width:1px\n")
	for _, n := range graph.Nodes {
		switch n.ImpactLevel {
		case ImpactDirect:
			fmt.Fprintf(&b, "    class %s direct\n", mermaidID(n.ID))
		case ImpactIndirect:
			fmt.Fprintf(&b, "    class %s indirect\n", mermaidID(n.ID))
		}
	}

	return b.String()
}

// erCardinality maps a flow type to a Mermaid ER cardinality marker:
// a read fans out one-to-many, a write targets exactly one, and a
// bidirectional flow is many-to-many.
var erCardinality = map[FlowType]string{
	FlowRead:          "||--o{",
	FlowWrite:         "||--||",
	FlowBidirectional: "}o--o{",
}

// ERDiagram renders the graph's module edges as a Mermaid entity-
// relationship diagram.
func ERDiagram(graph *FlowGraph, title string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "---\ntitle: %s\n---\n", title)
	}
	b.WriteString("erDiagram\n")

	for _, e := range graph.Edges {
		card, ok := erCardinality[e.FlowType]
		if !ok {
			card = erCardinality[FlowRead]
		}
		label := e.Label
		if label == "" {
			label = "flows"
		}
		fmt.Fprintf(&b, "    %s %s %s : %q\n", erName(e.Source), card, erName(e.Target), label)
	}

	return b.String()
}

// mermaidID sanitizes an identifier for use as a Mermaid node id.
func mermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// erName uppercases and sanitizes a module name for ER notation.
func erName(id string) string {
	return strings.ToUpper(mermaidID(id))
}
