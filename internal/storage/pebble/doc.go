// Package pebblestore wraps Pebble with a durability policy, batch helpers,
// and a minimal metrics hook surface.
//
// The telemetry queue is the only writer; it commits every mutation as one
// batch so the on-disk state never reflects a half-applied operation.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: dir,
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
package pebblestore
