// Package codec implements the compact binary encodings of the persisted
// run artifacts: a little-endian u64 record count followed by fixed-width
// little-endian fields per record. Raw matches and contamination records
// are 24-byte tuples; boundary and offset sequences are plain u64 lists
// under the same framing.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/revbucket/sa-decontamination/internal/model"
)

const recordSize = 24 // three u64 fields

// EncodeRawMatches serializes matches as (train_doc_id, line_num, corpus_pos)
// tuples.
func EncodeRawMatches(matches []model.RawMatch) []byte {
	buf := make([]byte, 0, 8+len(matches)*recordSize)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(matches)))
	for _, m := range matches {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(m.TrainDocID))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(m.LineNum))
		buf = binary.LittleEndian.AppendUint64(buf, m.CorpusPos)
	}
	return buf
}

// DecodeRawMatches is the inverse of EncodeRawMatches.
func DecodeRawMatches(data []byte) ([]model.RawMatch, error) {
	fields, err := decodeTuples(data, "raw matches")
	if err != nil {
		return nil, err
	}
	matches := make([]model.RawMatch, len(fields))
	for i, f := range fields {
		matches[i] = model.RawMatch{
			TrainDocID: int(f[0]),
			LineNum:    int(f[1]),
			CorpusPos:  f[2],
		}
	}
	return matches, nil
}

// EncodeContaminations serializes records as (val_doc_id, train_doc_id,
// line_num) tuples.
func EncodeContaminations(recs []model.Contamination) []byte {
	buf := make([]byte, 0, 8+len(recs)*recordSize)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(recs)))
	for _, r := range recs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.ValDocID))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.TrainDocID))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.LineNum))
	}
	return buf
}

// DecodeContaminations is the inverse of EncodeContaminations.
func DecodeContaminations(data []byte) ([]model.Contamination, error) {
	fields, err := decodeTuples(data, "contaminations")
	if err != nil {
		return nil, err
	}
	recs := make([]model.Contamination, len(fields))
	for i, f := range fields {
		recs[i] = model.Contamination{
			ValDocID:   int(f[0]),
			TrainDocID: int(f[1]),
			LineNum:    int(f[2]),
		}
	}
	return recs, nil
}

// EncodeUint64s serializes a u64 sequence (document boundaries, cached
// occurrence lists) under the same length-prefixed framing.
func EncodeUint64s(vals []uint64) []byte {
	buf := make([]byte, 0, 8+len(vals)*8)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(vals)))
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return buf
}

// DecodeUint64s is the inverse of EncodeUint64s.
func DecodeUint64s(data []byte) ([]uint64, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: u64 sequence: missing length prefix", model.ErrSerialize)
	}
	n := binary.LittleEndian.Uint64(data)
	body := data[8:]
	// Divide rather than multiply: a hostile count would overflow n*8.
	if len(body)%8 != 0 || n != uint64(len(body)/8) {
		return nil, fmt.Errorf("%w: u64 sequence: count %d does not match %d body bytes", model.ErrSerialize, n, len(body))
	}
	vals := make([]uint64, n)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(body[i*8:])
	}
	return vals, nil
}

func decodeTuples(data []byte, what string) ([][3]uint64, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %s: missing length prefix", model.ErrSerialize, what)
	}
	n := binary.LittleEndian.Uint64(data)
	body := data[8:]
	if len(body)%recordSize != 0 || n != uint64(len(body)/recordSize) {
		return nil, fmt.Errorf("%w: %s: count %d does not match %d body bytes", model.ErrSerialize, what, n, len(body))
	}
	fields := make([][3]uint64, n)
	for i := range fields {
		off := i * recordSize
		fields[i] = [3]uint64{
			binary.LittleEndian.Uint64(body[off:]),
			binary.LittleEndian.Uint64(body[off+8:]),
			binary.LittleEndian.Uint64(body[off+16:]),
		}
	}
	return fields, nil
}
