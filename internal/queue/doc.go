// Package queue implements the durable, capacity-bounded telemetry event
// queue — the single source of truth for buffered events.
//
// # Overview
//
// Events live in Pebble under lexicographically ordered keys:
//   - tq/m           (metadata: lastSeq)
//   - tq/e/{seq_be8} (one record per event, CBOR + crc32c trailer)
//
// A big-endian sequence number keys each event, so iteration order is
// enqueue order and survives restarts. The store keeps an in-memory mirror of
// the ordered collection behind a single mutex; every mutation commits a
// Pebble batch first and only then updates the mirror, so a storage failure
// leaves no partial state.
//
// Capacity eviction is FIFO and applied inside the same batch as the append
// that would overflow, so the newest `capacity` events are always the ones
// retained. Retry bookkeeping removes an event in the same operation that
// takes its retryCount to its snapshotted maxRetries; the queue never holds
// an event that has exhausted its retries.
//
// The sequence counter survives Clear, which keeps ids and key order unique
// for the lifetime of the queue.
package queue
