/*
Package observability provides tools for monitoring the Arbor engine.

Metrics binds Prometheus collectors to domain.LifecycleHooks, and LogHooks emits one
structured log line per lifecycle event. Both return plain hooks, so they compose
with domain.LifecycleHooks.Merge and arbor.WithLifecycleHooks.
*/
package observability
