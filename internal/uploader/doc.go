// Package uploader delivers queued telemetry events to the collector in
// ordered batches.
//
// # Overview
//
// A run snapshots the queue, partitions it into consecutive batches, and
// POSTs them sequentially — never in parallel — so the collector cannot
// observe batch N+1 before batch N is durably accepted. A 2xx response
// removes exactly that batch's events from the queue; any failure bumps
// their retry counts (evicting events that exhaust their limit) and halts
// the run, leaving later events untouched in their original order for the
// next run.
//
// Errors never escape Run: transport and server failures are absorbed into
// the retry/eviction bookkeeping and surfaced only through the returned
// Outcome and logs. An event whose payload cannot be serialized is evicted
// immediately without affecting the rest of its batch — it can never be
// delivered.
package uploader
