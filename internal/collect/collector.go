// Package collect implements phase 1: scanning training documents and
// emitting raw matches against the suffix-array index.
package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/revbucket/sa-decontamination/internal/index"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/storage"
	"github.com/revbucket/sa-decontamination/internal/worker"
)

// Document is one training file with its stable ID. IDs come from the
// lexicographic order of the discovered paths, so they are reproducible
// across runs.
type Document struct {
	Path string
	ID   int
}

// Discover expands the trainset roots, sorts the resulting paths, and
// assigns stable document IDs by enumeration.
func Discover(roots []string) ([]Document, error) {
	paths, err := storage.ExpandDirs(roots)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	docs := make([]Document, len(paths))
	for i, p := range paths {
		docs[i] = Document{Path: p, ID: i}
	}
	return docs, nil
}

// PathIndex builds the path -> ID mapping persisted beside the match
// file.
func PathIndex(docs []Document) map[string]int {
	m := make(map[string]int, len(docs))
	for _, d := range docs {
		m[d.Path] = d.ID
	}
	return m
}

// Collector scans training documents in parallel against a shared
// read-only index.
type Collector struct {
	index     *index.Index
	matchSize int
	workers   int

	// Progress, when set, is called once per completed document.
	Progress func()
}

// New creates a collector. matchSize must already be validated (>= 1).
func New(ix *index.Index, matchSize, workers int) *Collector {
	return &Collector{index: ix, matchSize: matchSize, workers: workers}
}

// Collect scans every document and returns the combined raw matches.
// The output order is unspecified; its multiset content is independent
// of worker count. Any document failure aborts the whole collection
// with no partial output.
func (c *Collector) Collect(docs []Document) ([]model.RawMatch, error) {
	if len(docs) == 0 {
		return []model.RawMatch{}, nil
	}

	pool := worker.NewPool(c.workers)
	pool.Start()
	for _, doc := range docs {
		pool.Submit(&docJob{collector: c, doc: doc})
	}
	results := pool.Wait()

	if err := worker.FirstError(results); err != nil {
		return nil, err
	}

	var matches []model.RawMatch
	for _, r := range results {
		matches = append(matches, r.(*docResult).matches...)
	}
	if matches == nil {
		matches = []model.RawMatch{}
	}
	return matches, nil
}

// docJob scans one training document
type docJob struct {
	collector *Collector
	doc       Document
}

// docResult carries the matches from one document
type docResult struct {
	matches []model.RawMatch
	err     error
}

// GetError returns the error from the document scan
func (r *docResult) GetError() error {
	return r.err
}

// Execute reads and scans the job's document
func (j *docJob) Execute(ctx context.Context) worker.Result {
	matches, err := j.collector.collectDoc(j.doc)
	if j.collector.Progress != nil {
		j.collector.Progress()
	}
	return &docResult{matches: matches, err: err}
}

// collectDoc reads one JSON Lines document and emits a raw match for
// every (window, occurrence) pair across its lines.
func (c *Collector) collectDoc(doc Document) ([]model.RawMatch, error) {
	data, err := storage.ReadFile(doc.Path)
	if err != nil {
		return nil, err
	}

	var matches []model.RawMatch
	for lineNum, line := range bytes.Split(data, []byte("\n")) {
		text, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", doc.Path, lineNum, err)
		}
		if text == nil {
			continue
		}
		for _, window := range Windows(text, c.matchSize) {
			for _, pos := range c.index.Occurrences(window) {
				matches = append(matches, model.RawMatch{
					TrainDocID: doc.ID,
					LineNum:    lineNum,
					CorpusPos:  pos,
				})
			}
		}
	}
	return matches, nil
}

// parseLine extracts the text field from one JSON Lines record. Empty
// lines yield nil text and contribute nothing (but still count toward
// line numbering). A malformed record or a missing/non-string text
// field is a ParseError.
func parseLine(line []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var rec struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	if rec.Text == nil {
		return nil, fmt.Errorf("%w: record has no string \"text\" field", model.ErrParse)
	}
	return []byte(*rec.Text), nil
}

// ReadLines reads a JSON Lines file and returns the text bytes of every
// non-empty record. Used by the index builder, which treats each record
// as one validation document.
func ReadLines(path string) ([][]byte, error) {
	data, err := storage.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var texts [][]byte
	for lineNum, line := range bytes.Split(data, []byte("\n")) {
		text, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNum, err)
		}
		if text == nil {
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// Windows enumerates every contiguous span of length size in text at
// stride 1: n-size+1 windows for an n-byte text, none when n < size.
// The windows alias text; callers must not mutate them.
func Windows(text []byte, size int) [][]byte {
	if len(text) < size || size < 1 {
		return nil
	}
	windows := make([][]byte, 0, len(text)-size+1)
	for s := 0; s+size <= len(text); s++ {
		windows = append(windows, text[s:s+size])
	}
	return windows
}
