/*
Package geometry resolves a pointer position inside a container into an insertion slot.

Given the container's visible children and their bounding boxes, the Resolver infers
the layout axis, builds one drop zone per candidate slot (before the first child,
between each adjacent pair, after the last child) and returns the first zone, in
document order, that contains the pointer. When no zone contains it, the zone whose
center is nearest wins. Cost is O(children) per call.

Zone margins are tuning knobs, not part of the contract.
*/
package geometry
