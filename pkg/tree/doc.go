/*
Package tree implements the authoritative flat element collection.

A Store indexes elements by ID and keeps ParentID and Children consistent. It is
pure data: no I/O, no locking. Hosts serialise access (see pkg/session) and the
mutator applies commits on a Clone that is swapped in only on success, so a
partially updated tree is never observable.

Invariants held after every successful operation:

  - every element's parent is RootID or an existing element, and the element is
    listed exactly once in that parent's children (or the root list);
  - children lists contain no duplicates and reference only existing IDs;
  - no element is its own ancestor.
*/
package tree
