// Package aggregate implements phase 2's grouping stage: raw matches are
// regrouped by validation document and training (document, line) pair.
package aggregate

import (
	"context"
	"sync"

	xsync "github.com/puzpuzpuz/xsync/v3"

	"github.com/revbucket/sa-decontamination/internal/index"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/worker"
)

// OffsetList accumulates in-document start offsets for one training
// line. Appends are serialized per list; lists under different keys
// never contend.
type OffsetList struct {
	mu      sync.Mutex
	offsets []uint64
}

func (l *OffsetList) append(pos uint64) {
	l.mu.Lock()
	l.offsets = append(l.offsets, pos)
	l.mu.Unlock()
}

// Offsets returns the accumulated start offsets. Only call after the
// grouping barrier; the returned slice is not copied.
func (l *OffsetList) Offsets() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offsets
}

// Groups is the two-level concurrent accumulation structure:
// (val doc id, val doc size) -> (train doc id, line num) -> offsets.
type Groups struct {
	m *xsync.MapOf[model.GroupKey, *xsync.MapOf[model.LineKey, *OffsetList]]
}

// NewGroups creates an empty accumulation structure.
func NewGroups() *Groups {
	return &Groups{m: xsync.NewMapOf[model.GroupKey, *xsync.MapOf[model.LineKey, *OffsetList]]()}
}

// Add appends one in-document position under the composite key. Safe
// for concurrent use by arbitrarily many workers.
func (g *Groups) Add(gk model.GroupKey, lk model.LineKey, pos uint64) {
	inner, _ := g.m.LoadOrCompute(gk, func() *xsync.MapOf[model.LineKey, *OffsetList] {
		return xsync.NewMapOf[model.LineKey, *OffsetList]()
	})
	list, _ := inner.LoadOrCompute(lk, func() *OffsetList { return &OffsetList{} })
	list.append(pos)
}

// Len returns the number of outer groups.
func (g *Groups) Len() int {
	return g.m.Size()
}

// Range visits every outer group.
func (g *Groups) Range(fn func(gk model.GroupKey, lines *xsync.MapOf[model.LineKey, *OffsetList]) bool) {
	g.m.Range(fn)
}

// Entries counts the total accumulated offsets across all groups.
// After Group returns it equals the raw match count: no loss, no
// duplication.
func (g *Groups) Entries() int {
	total := 0
	g.m.Range(func(_ model.GroupKey, inner *xsync.MapOf[model.LineKey, *OffsetList]) bool {
		inner.Range(func(_ model.LineKey, list *OffsetList) bool {
			total += len(list.Offsets())
			return true
		})
		return true
	})
	return total
}

// Group resolves every raw match to its validation document and
// accumulates the in-document position under the two-level key. Matches
// are chunked across workers; a position outside the corpus aborts the
// run.
func Group(matches []model.RawMatch, boundaries index.Boundaries, workers int, progress func(int)) (*Groups, error) {
	groups := NewGroups()
	if len(matches) == 0 {
		return groups, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (len(matches) + workers - 1) / workers

	pool := worker.NewPool(workers)
	pool.Start()
	for start := 0; start < len(matches); start += chunkSize {
		end := start + chunkSize
		if end > len(matches) {
			end = len(matches)
		}
		pool.Submit(&groupJob{
			matches:    matches[start:end],
			boundaries: boundaries,
			groups:     groups,
			progress:   progress,
		})
	}
	results := pool.Wait()

	if err := worker.FirstError(results); err != nil {
		return nil, err
	}
	return groups, nil
}

// groupJob accumulates one chunk of raw matches
type groupJob struct {
	matches    []model.RawMatch
	boundaries index.Boundaries
	groups     *Groups
	progress   func(int)
}

// groupResult carries a chunk failure, if any
type groupResult struct {
	err error
}

// GetError returns the error from the chunk
func (r *groupResult) GetError() error {
	return r.err
}

// Execute resolves and accumulates the job's chunk
func (j *groupJob) Execute(ctx context.Context) worker.Result {
	for _, m := range j.matches {
		valDocID, err := j.boundaries.Locate(m.CorpusPos)
		if err != nil {
			return &groupResult{err: err}
		}
		gk := model.GroupKey{
			ValDocID:   valDocID,
			ValDocSize: int(j.boundaries.DocSize(valDocID)),
		}
		lk := model.LineKey{TrainDocID: m.TrainDocID, LineNum: m.LineNum}
		j.groups.Add(gk, lk, m.CorpusPos-j.boundaries[valDocID])
	}
	if j.progress != nil {
		j.progress(len(j.matches))
	}
	return &groupResult{}
}
