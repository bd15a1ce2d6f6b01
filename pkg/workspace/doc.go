// Package workspace hosts many documents behind the ports.TreeService API.
//
// Each document gets its own arbor.Engine, built lazily from the DocumentStore.
// Calls for one document are serialized through session.Manager, and every change
// to the tree is persisted and broadcast as a domain.TreeDiff before the call returns.
package workspace
