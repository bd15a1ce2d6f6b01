/*
Package reconcile folds externally observed child orders back into the tree.

Some hosts let another mechanism reorder the rendered structure directly. The
observed order is treated as an untrusted report: it is diffed against the
authoritative tree.Store and converted into at most one synthetic move or one
wholesale reorder. Ids the tree does not know abort reconciliation without
touching anything.

Supervisor wraps a Reconciler and, when the tree itself is found to be
inconsistent, repairs it and retries a bounded number of times.
*/
package reconcile
