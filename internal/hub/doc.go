// Package hub implements the live-notification core: a registry of long-lived
// streaming connections bucketed by tenant, the publish path that fans one
// event out to the matching subset, and the subscription handshake that binds
// a connection's identity and guarantees exactly-once teardown.
//
// Concurrency model: registrations and removals are driven by connection
// lifecycle events that race with publishes arriving from unrelated request
// handlers. One RWMutex guards the bucket map; publishes fan out over a
// snapshot so a concurrent mutation can never tear an iteration. A write
// racing a just-closed sink is absorbed by the sink's closed flag and
// contained inside Publish.
//
// The registry is process-local. Subscribers held by another process are
// invisible here; multi-process fan-out is a known limitation, not a bug.
package hub
