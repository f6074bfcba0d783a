package model

import "errors"

// Error kinds. Every fallible layer wraps one of these so callers can
// classify failures with errors.Is. All of them abort the run; there is
// no per-item recovery.
var (
	// ErrIO: a file or directory could not be read or written.
	ErrIO = errors.New("io error")

	// ErrParse: a training line is not a JSON object with a string
	// "text" field.
	ErrParse = errors.New("parse error")

	// ErrIndex: the suffix-array index or boundary table is malformed,
	// or a position query fell outside the corpus.
	ErrIndex = errors.New("index error")

	// ErrSerialize: a persisted artifact could not be encoded or
	// decoded (truncated, trailing bytes, bad framing).
	ErrSerialize = errors.New("serialization error")

	// ErrConfig: invalid combination of run parameters.
	ErrConfig = errors.New("config error")
)
