// Package decide implements the contamination decision: per-group
// interval merging and the coverage threshold check.
package decide

import (
	"context"
	"math"
	"sort"

	xsync "github.com/puzpuzpuz/xsync/v3"

	"github.com/revbucket/sa-decontamination/internal/aggregate"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/worker"
)

// Decider applies the coverage threshold to aggregated match groups
type Decider struct {
	matchSize int
	threshold float64
	workers   int

	// Progress, when set, is called once per decided group.
	Progress func()
}

// New creates a decider. matchSize and threshold must already be
// validated (size >= 1, threshold in [0, 1]).
func New(matchSize int, threshold float64, workers int) *Decider {
	if workers < 1 {
		workers = 1
	}
	return &Decider{matchSize: matchSize, threshold: threshold, workers: workers}
}

// Decide emits one contamination record per (validation doc, training
// doc, line) whose merged coverage clears the threshold. Groups are
// decided independently in parallel; the emitted set is independent of
// processing order and of offset ordering within a group.
func (d *Decider) Decide(groups *aggregate.Groups) []model.Contamination {
	pool := worker.NewPool(d.workers)
	pool.Start()

	jobs := 0
	groups.Range(func(gk model.GroupKey, lines *xsync.MapOf[model.LineKey, *aggregate.OffsetList]) bool {
		pool.Submit(&groupJob{decider: d, key: gk, lines: lines})
		jobs++
		return true
	})
	results := pool.Wait()

	var records []model.Contamination
	for _, r := range results {
		records = append(records, r.(*groupResult).records...)
	}
	if records == nil {
		records = []model.Contamination{}
	}
	return records
}

// groupJob decides one outer group
type groupJob struct {
	decider *Decider
	key     model.GroupKey
	lines   *xsync.MapOf[model.LineKey, *aggregate.OffsetList]
}

// groupResult carries the records emitted for one group
type groupResult struct {
	records []model.Contamination
}

// GetError always returns nil; deciding a group cannot fail
func (r *groupResult) GetError() error {
	return nil
}

// Execute checks every training line in the group against the threshold
func (j *groupJob) Execute(ctx context.Context) worker.Result {
	d := j.decider
	var records []model.Contamination
	j.lines.Range(func(lk model.LineKey, list *aggregate.OffsetList) bool {
		if d.thresholdMet(list.Offsets(), j.key.ValDocSize) {
			records = append(records, model.Contamination{
				ValDocID:   j.key.ValDocID,
				TrainDocID: lk.TrainDocID,
				LineNum:    lk.LineNum,
			})
		}
		return true
	})
	if d.Progress != nil {
		d.Progress()
	}
	return &groupResult{records: records}
}

// thresholdMet reports whether match windows starting at starts cover at
// least ceil(docSize * threshold) bytes of the validation document.
func (d *Decider) thresholdMet(starts []uint64, docSize int) bool {
	required := int(math.Ceil(float64(docSize) * d.threshold))
	return coveredBytes(starts, d.matchSize) >= required
}

// coveredBytes sums the merged interval widths for windows of matchSize
// starting at starts. Invariant to input order and duplicates.
func coveredBytes(starts []uint64, matchSize int) int {
	intervals := make([][2]int, len(starts))
	for i, s := range starts {
		intervals[i] = [2]int{int(s), int(s) + matchSize}
	}
	total := 0
	for _, iv := range mergeIntervals(intervals) {
		total += iv[1] - iv[0]
	}
	return total
}

// mergeIntervals sorts intervals by start and coalesces touching or
// overlapping runs into a minimal disjoint set. A strict gap breaks the
// run.
func mergeIntervals(v [][2]int) [][2]int {
	sort.Slice(v, func(i, j int) bool { return v[i][0] < v[j][0] })
	var merged [][2]int
	for _, iv := range v {
		n := len(merged)
		if n > 0 && merged[n-1][1] >= iv[0] {
			if iv[1] > merged[n-1][1] {
				merged[n-1][1] = iv[1]
			}
		} else {
			merged = append(merged, iv)
		}
	}
	return merged
}

// Summary aggregates the decision output for reporting
type Summary struct {
	// ContaminatedDocs is the number of distinct contaminated
	// validation documents
	ContaminatedDocs int

	// Records is the total contamination record count
	Records int
}

// Summarize derives the run summary from the emitted records
func Summarize(records []model.Contamination) Summary {
	docs := make(map[int]struct{})
	for _, r := range records {
		docs[r.ValDocID] = struct{}{}
	}
	return Summary{ContaminatedDocs: len(docs), Records: len(records)}
}
