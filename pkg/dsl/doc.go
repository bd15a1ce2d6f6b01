/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing arbor trees.

It lets callers declare element trees with a fluent builder instead of hand-writing flat
element lists where every ParentID has to agree with its parent's Children. This is
particularly useful for fixtures, generated layouts and unit tests.

Example usage:

	package main

	import (
		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/domain"
		"github.com/aretw0/arbor/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Add("board").Container().Layout(domain.Layout{Direction: domain.LayoutRow})
		b.Add("todo").In("board").Container()
		b.Add("done").In("board").Container()

		b.Add("write-docs").In("todo")
		b.Add("ship").In("todo")

		elements, err := b.Build()
		if err != nil {
			panic(err)
		}
		engine, _ := arbor.New(elements)
		// ... drive engine with pointer gestures
	}

Children appear in the order they were attached with In.
*/
package dsl
