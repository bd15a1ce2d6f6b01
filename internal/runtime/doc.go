// Package runtime implements the drag gesture state machine.
//
// A Controller owns at most one DragSession. Pointer events move it through
// Idle -> Preparing -> Dragging and back to Idle; the tree is mutated exactly once,
// on End, and only when the pointer crossed the drag threshold.
//
// A Controller is not safe for concurrent use. Hosts serving several clients serialize
// calls per document (see pkg/session).
package runtime
