package queue

import (
	"errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	ev := &Event{
		ID:         "abc",
		EnqueuedAt: 1700000000000,
		Kind:       KindCrash,
		Payload:    []byte(`{"signal":"SIGSEGV"}`),
		RetryCount: 2,
		MaxRetries: 3,
	}
	rec, err := encodeRecord(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeRecord(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != ev.ID || got.Kind != ev.Kind || got.RetryCount != 2 || got.MaxRetries != 3 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if string(got.Payload) != string(ev.Payload) {
		t.Fatalf("payload mismatch: %s", got.Payload)
	}
}

func TestRecordRejectsCorruption(t *testing.T) {
	rec, err := encodeRecord(&Event{ID: "x", Kind: KindCustom, Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec[0] ^= 0xFF
	if _, err := decodeRecord(rec); !errors.Is(err, errRecordChecksum) {
		t.Fatalf("want checksum error, got %v", err)
	}
	if _, err := decodeRecord([]byte{1, 2}); !errors.Is(err, errRecordTooShort) {
		t.Fatalf("want too-short error, got %v", err)
	}
}
