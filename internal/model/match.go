package model

// RawMatch records one occurrence of a fixed-width window from a training
// line inside the validation corpus. Field order fixes the on-disk tuple
// order; see internal/codec.
type RawMatch struct {
	TrainDocID int
	LineNum    int
	CorpusPos  uint64
}

// Contamination marks a (validation doc, training doc, line) triple whose
// merged match coverage cleared the threshold.
type Contamination struct {
	ValDocID   int
	TrainDocID int
	LineNum    int
}

// GroupKey keys the outer level of match aggregation. ValDocSize is
// functionally dependent on ValDocID; it rides along in the key so the
// decider never has to look up boundaries again.
type GroupKey struct {
	ValDocID   int
	ValDocSize int
}

// LineKey keys the inner level of match aggregation: one training line.
type LineKey struct {
	TrainDocID int
	LineNum    int
}
