package queue

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/fxamacker/cbor/v2"
)

// Record encoding: cbor(event) | crc32c(cbor bytes)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	errRecordTooShort = errors.New("queue: record too short")
	errRecordChecksum = errors.New("queue: record checksum mismatch")
)

func encodeRecord(ev *Event) ([]byte, error) {
	body, err := cbor.Marshal(ev)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+4)
	out = append(out, body...)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc32.Checksum(body, castagnoli))
	return append(out, crcb[:]...), nil
}

func decodeRecord(b []byte) (*Event, error) {
	if len(b) < 5 {
		return nil, errRecordTooShort
	}
	body := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Checksum(body, castagnoli) != expect {
		return nil, errRecordChecksum
	}
	var ev Event
	if err := cbor.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
