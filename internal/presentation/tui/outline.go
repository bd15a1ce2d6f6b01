package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Outline renders the tree as a nested markdown list under a heading.
// Containers are bold; virtual and slot elements are tagged.
func Outline(title string, elements []domain.Element) string {
	byID := make(map[string]domain.Element, len(elements))
	var roots []string
	for _, e := range elements {
		byID[e.ID] = e
		if e.IsRoot() {
			roots = append(roots, e.ID)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if len(roots) == 0 {
		sb.WriteString("_empty tree_\n")
		return sb.String()
	}

	var walk func(ids []string, depth int)
	walk = func(ids []string, depth int) {
		for _, id := range ids {
			e, ok := byID[id]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "%s- %s\n", strings.Repeat("  ", depth), label(e))
			walk(e.Children, depth+1)
		}
	}
	walk(roots, 0)
	return sb.String()
}

func label(e domain.Element) string {
	s := "`" + e.ID + "`"
	if e.IsContainer {
		s = "**" + s + "**"
	}
	var tags []string
	if e.IsVirtual {
		tags = append(tags, "virtual")
	}
	if e.IsSlot {
		tags = append(tags, "slot")
	}
	if len(tags) > 0 {
		s += " _(" + strings.Join(tags, ", ") + ")_"
	}
	return s
}
