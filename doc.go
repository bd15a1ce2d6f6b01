/*
Package arbor is a structural editing engine for trees of nested visual elements.

It turns pointer gestures into safe tree mutations: a press becomes a drag once the
pointer travels past a threshold, every move resolves a drop target from the live
layout of the host, and the release commits at most one reparent or reorder. Commits
are atomic and validated, so the tree never ends up with cycles, orphans or an
element listed under two parents. When a host (for example a sortable list widget)
reorders children on its own, Reconcile folds the observed order back into the tree.

# Concept

Arbor owns the tree and nothing else. The host owns rendering and reports geometry
through the ports.Layout interface (a geometry.Frame is enough for tests and servers).
This Hexagonal Architecture lets the same engine run inside a browser bridge, an HTTP
server (pkg/adapters/http) or an AI agent (pkg/adapters/mcp).

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/domain"
		"github.com/aretw0/arbor/pkg/geometry"
	)

	func main() {
		eng, err := arbor.New([]domain.Element{
			{ID: "list", IsContainer: true, Children: []string{"a", "b"}},
			{ID: "a", ParentID: "list"},
			{ID: "b", ParentID: "list"},
		})
		if err != nil {
			log.Fatal(err)
		}

		frame := geometry.NewFrame().
			Set("list", domain.Rect{Width: 200, Height: 100}).
			Set("a", domain.Rect{Y: 0, Width: 200, Height: 40}).
			Set("b", domain.Rect{Y: 50, Width: 200, Height: 40})
		eng.SetLayout(frame)

		ctx := context.Background()
		id, _ := eng.Begin(ctx, "a", domain.Point{X: 10, Y: 10})
		_ = eng.Move(ctx, id, domain.Point{X: 10, Y: 85})
		res, err := eng.End(ctx, id, domain.Point{X: 10, Y: 85})
		if err != nil {
			log.Fatal(err)
		}
		log.Println(res.Outcome) // committed
	}
*/
package arbor
