/*
Package observability provides monitoring for the OT engine.

Metrics exposes Prometheus counters fed by lifecycle hooks, and LoggingHooks
writes the same events to a structured logger. Both return domain.LifecycleHooks
that can be combined with domain.ChainHooks.
*/
package observability
