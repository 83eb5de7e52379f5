// Package counter implements the shared counter actor.
//
// The Actor is the single owner of the persisted counter value and the set of
// WebSocket subscribers. It runs as one goroutine draining a command channel
// (no mutexes), so increments are applied against the store strictly one at a
// time and every value change fans out to all registered subscribers.
// Per-connection write goroutines isolate slow or dead subscribers.
//
// Inbound increment commands are intentionally not deduplicated: a client
// that retransmits after an ambiguous network failure counts twice.
package counter
