package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Overlay marks gesture state on the graph.
type Overlay struct {
	SubjectID string // element being dragged
	TargetID  string // container that would receive it; RootID for the root list
}

// rootNode is the synthetic node standing for the root list.
const rootNode = "__root__"

// GenerateMermaid produces a Mermaid flowchart of the tree, in depth-first sibling order.
// It applies semantic styling:
// - Root list: ((Circle))
// - Container: [[Subroutine]]
// - Slot: ([Stadium])
// - Virtual: {{Hexagon}}
// - Default: [Rectangle]
// Edges run from parent to child and are labelled with the child's index.
func GenerateMermaid(elements []domain.Element, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"root\"))\n", rootNode))

	for _, e := range elements {
		safeID := sanitizeMermaidID(e.ID)

		opener, closer := "[", "]"
		switch {
		case e.IsVirtual:
			opener, closer = "{{", "}}"
		case e.IsSlot:
			opener, closer = "([", "])"
		case e.IsContainer:
			opener, closer = "[[", "]]"
		}
		label := strings.ReplaceAll(e.ID, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	edge := func(from string, children []string) {
		for i, child := range children {
			sb.WriteString(fmt.Sprintf("    %s -- \"%d\" --> %s\n", from, i, sanitizeMermaidID(child)))
		}
	}
	var roots []string
	for _, e := range elements {
		if e.IsRoot() {
			roots = append(roots, e.ID)
		}
	}
	edge(rootNode, roots)
	for _, e := range elements {
		edge(sanitizeMermaidID(e.ID), e.Children)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef subject fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef target fill:#e1f5fe,stroke:#01579b,stroke-width:2px,stroke-dasharray:4,color:#000;\n")
		if overlay.SubjectID != "" {
			sb.WriteString(fmt.Sprintf("    class %s subject;\n", sanitizeMermaidID(overlay.SubjectID)))
		}
		target := rootNode
		if overlay.TargetID != domain.RootID {
			target = sanitizeMermaidID(overlay.TargetID)
		}
		sb.WriteString(fmt.Sprintf("    class %s target;\n", target))
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
