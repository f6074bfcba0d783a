package decide

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revbucket/sa-decontamination/internal/aggregate"
	"github.com/revbucket/sa-decontamination/internal/index"
	"github.com/revbucket/sa-decontamination/internal/model"
)

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   [][2]int
		want [][2]int
	}{
		{"empty", nil, nil},
		{"single", [][2]int{{0, 3}}, [][2]int{{0, 3}}},
		{"overlapping", [][2]int{{0, 3}, {2, 5}}, [][2]int{{0, 5}}},
		{"touching coalesce", [][2]int{{0, 3}, {3, 6}}, [][2]int{{0, 6}}},
		{"strict gap breaks", [][2]int{{0, 3}, {4, 7}}, [][2]int{{0, 3}, {4, 7}}},
		{"unsorted input", [][2]int{{4, 7}, {0, 3}, {2, 5}}, [][2]int{{0, 7}}},
		{"contained", [][2]int{{0, 10}, {2, 5}}, [][2]int{{0, 10}}},
		{"duplicates", [][2]int{{1, 4}, {1, 4}, {1, 4}}, [][2]int{{1, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeIntervals(tt.in))
		})
	}
}

func TestCoveredBytesOrderAndDuplicateInvariant(t *testing.T) {
	starts := []uint64{0, 3, 3, 17, 9, 3, 0, 12}
	matchSize := 5
	want := coveredBytes(starts, matchSize)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]uint64(nil), starts...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, coveredBytes(shuffled, matchSize))
	}

	// Repeating identical offsets never inflates coverage.
	assert.Equal(t, want, coveredBytes(append(starts, starts...), matchSize))
}

func TestCoveredBytesBounds(t *testing.T) {
	matchSize := 4
	cases := [][]uint64{
		{0},
		{0, 1, 2, 3},
		{0, 100},
		{5, 5, 5},
		{0, 2, 4, 6, 8},
	}
	for _, starts := range cases {
		covered := coveredBytes(starts, matchSize)
		assert.GreaterOrEqual(t, covered, matchSize, "starts %v", starts)
		assert.LessOrEqual(t, covered, matchSize*len(starts), "starts %v", starts)
	}

	assert.Equal(t, 0, coveredBytes(nil, matchSize))
}

func groupsFrom(t *testing.T, boundaries index.Boundaries, matches []model.RawMatch) *aggregate.Groups {
	t.Helper()
	groups, err := aggregate.Group(matches, boundaries, 2, nil)
	require.NoError(t, err)
	return groups
}

func TestDecideFullCoverageScenario(t *testing.T) {
	// Validation corpus "abcabc", one document of size 6, matched at
	// offsets 0 and 3 by one training line: intervals [0,3) and [3,6)
	// merge to [0,6), 6 covered bytes.
	boundaries := index.Boundaries{0, 6}
	matches := []model.RawMatch{
		{TrainDocID: 0, LineNum: 0, CorpusPos: 0},
		{TrainDocID: 0, LineNum: 0, CorpusPos: 3},
	}

	// threshold 0.5: required = ceil(3) = 3, 6 >= 3.
	records := New(3, 0.5, 2).Decide(groupsFrom(t, boundaries, matches))
	assert.Equal(t, []model.Contamination{{ValDocID: 0, TrainDocID: 0, LineNum: 0}}, records)

	// threshold 1.0: required = 6, 6 >= 6, still emitted.
	records = New(3, 1.0, 2).Decide(groupsFrom(t, boundaries, matches))
	assert.Len(t, records, 1)
}

func TestDecidePartialCoverageBelowThreshold(t *testing.T) {
	// Only [0,3) covered: 3 bytes. threshold 0.6 requires ceil(3.6) = 4.
	boundaries := index.Boundaries{0, 6}
	matches := []model.RawMatch{{TrainDocID: 0, LineNum: 0, CorpusPos: 0}}

	records := New(3, 0.6, 2).Decide(groupsFrom(t, boundaries, matches))
	assert.Empty(t, records)

	// threshold 0.5 requires exactly the 3 covered bytes.
	records = New(3, 0.5, 2).Decide(groupsFrom(t, boundaries, matches))
	assert.Len(t, records, 1)
}

func TestDecideThresholdMonotonicity(t *testing.T) {
	boundaries := index.Boundaries{0, 20, 50, 90}
	var matches []model.RawMatch
	for i := 0; i < 200; i++ {
		matches = append(matches, model.RawMatch{
			TrainDocID: i % 3,
			LineNum:    i % 5,
			CorpusPos:  uint64((i * 7) % 90),
		})
	}

	recordSet := func(threshold float64) map[model.Contamination]struct{} {
		records := New(4, threshold, 4).Decide(groupsFrom(t, boundaries, matches))
		set := make(map[model.Contamination]struct{}, len(records))
		for _, r := range records {
			set[r] = struct{}{}
		}
		return set
	}

	prev := recordSet(0)
	for _, threshold := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
		cur := recordSet(threshold)
		for r := range cur {
			_, ok := prev[r]
			assert.True(t, ok, "raising threshold to %v added record %+v", threshold, r)
		}
		prev = cur
	}
}

func TestDecideIndependentPerLine(t *testing.T) {
	// Two training lines hit the same validation doc; only the one with
	// enough merged coverage is emitted.
	boundaries := index.Boundaries{0, 10}
	matches := []model.RawMatch{
		{TrainDocID: 0, LineNum: 0, CorpusPos: 0},
		{TrainDocID: 0, LineNum: 0, CorpusPos: 5},
		{TrainDocID: 9, LineNum: 1, CorpusPos: 2},
	}

	records := New(5, 0.9, 2).Decide(groupsFrom(t, boundaries, matches))
	assert.Equal(t, []model.Contamination{{ValDocID: 0, TrainDocID: 0, LineNum: 0}}, records)
}

func TestSummarize(t *testing.T) {
	records := []model.Contamination{
		{ValDocID: 1, TrainDocID: 0, LineNum: 0},
		{ValDocID: 1, TrainDocID: 2, LineNum: 5},
		{ValDocID: 4, TrainDocID: 0, LineNum: 1},
	}
	summary := Summarize(records)
	assert.Equal(t, 2, summary.ContaminatedDocs)
	assert.Equal(t, 3, summary.Records)

	assert.Equal(t, Summary{}, Summarize(nil))
}
