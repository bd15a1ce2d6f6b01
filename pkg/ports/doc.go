/*
Package ports defines the driven ports (interfaces) for the Arbor engine.

These interfaces decouple the tree engine from external implementations, allowing
it to work with various storage backends, host layout sources and lock managers.

# Key Interfaces

  - DocumentStore: Responsible for persisting and loading tree Documents.
  - DistributedLocker: Provides distributed locking for concurrent document access.
  - Layout: The host's view of element bounds, read during a drag.
  - TreeService: The document-level API consumed by the HTTP and MCP adapters.
*/
package ports
