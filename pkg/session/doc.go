/*
Package session serializes access to documents.

A Manager hands out one lock per document ID, reference-counted so idle documents
cost nothing, and optionally backed by a ports.DistributedLocker so replicas
sharing a store never interleave commits on the same document.
*/
package session
