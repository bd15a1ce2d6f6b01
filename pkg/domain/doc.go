/*
Package domain contains the core domain models for the Arbor drag-and-drop engine.

It defines the entities shared by the tree store, the geometry resolver, the drag
controller and the reconciliation adapter. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Element: A node in the edited tree (container, leaf, virtual or slot marker).
  - DragSession: The ephemeral state of one pointer gesture, from pointer-down to drop/cancel.
  - Target: A resolved insertion slot (container, index, insert-before sibling).
  - Move: The notification emitted once per successful commit.
  - Document: A persisted snapshot of a whole tree.
*/
package domain
