package queue

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
//   - tq/m           (metadata: lastSeq be8)
//   - tq/e/{seq_be8} (event records)

var (
	keyMeta     = []byte("tq/m")
	entryPrefix = []byte("tq/e/")
)

func keyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(k, b[:]...)
}

// entryBounds returns the [lo, hi) range covering all event records.
func entryBounds() (lo, hi []byte) {
	lo = keyEntry(0)
	hi = append(keyEntry(^uint64(0)), 0x00)
	return lo, hi
}
