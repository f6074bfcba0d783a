// Package pipeline orchestrates the two decontamination phases and the
// index builder. Each phase runs its fan-out stages to completion in
// order; the stage barriers are the sequential calls here.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/revbucket/sa-decontamination/internal/aggregate"
	"github.com/revbucket/sa-decontamination/internal/cache"
	"github.com/revbucket/sa-decontamination/internal/codec"
	"github.com/revbucket/sa-decontamination/internal/collect"
	"github.com/revbucket/sa-decontamination/internal/decide"
	"github.com/revbucket/sa-decontamination/internal/index"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/storage"
)

// Artifact names under the output directory. A run's output fully
// replaces whatever was there before.
const (
	PathIndexFile   = "paths.json.gz"
	MatchFile       = "matches.bin.gz"
	ContaminateFile = "contaminates.bin.gz"
)

// BuildMatches runs phase 1: expand the trainset, load the index, fan
// out match collection, and persist the path index and raw match file.
func BuildMatches(cfg *model.Config) error {
	start := time.Now()
	verbosef(cfg, "Starting match building run...\n")

	// Phase 0: collect filenames and build the path lookup
	docs, err := collect.Discover(cfg.Trainset)
	if err != nil {
		return err
	}
	verbosef(cfg, "Collected %d input files\n", len(docs))

	ix, err := index.Load(cfg.Index.Dir)
	if err != nil {
		return err
	}
	if cfg.Cache.Enabled {
		ix.SetCache(cache.NewMemoryCache(0, 0))
	}

	// Phase 1: collect all matches
	verbosef(cfg, "Starting match collection...\n")
	collectStart := time.Now()
	collector := collect.New(ix, cfg.Match.Size, cfg.Concurrency.Workers)
	bar := newBar(cfg, len(docs), "paths")
	if bar != nil {
		collector.Progress = func() { _ = bar.Add(1) }
	}
	matches, err := collector.Collect(docs)
	finishBar(bar)
	if err != nil {
		return err
	}
	verbosef(cfg, "Match collection completed in %d secs\n", int(time.Since(collectStart).Seconds()))

	// Phase 2: save everything
	pathIndexBytes, err := json.Marshal(collect.PathIndex(docs))
	if err != nil {
		return fmt.Errorf("%w: encode path index: %v", model.ErrSerialize, err)
	}
	if err := storage.WriteFile(filepath.Join(cfg.Output.Dir, PathIndexFile), pathIndexBytes); err != nil {
		return err
	}
	if err := storage.WriteFile(filepath.Join(cfg.Output.Dir, MatchFile), codec.EncodeRawMatches(matches)); err != nil {
		return err
	}

	verbosef(cfg, "-------------------------\n")
	verbosef(cfg, "Completing match collection\n")
	verbosef(cfg, "Found %d matches from %d paths\n", len(matches), len(docs))
	verbosef(cfg, "Total runtime: %d secs\n", int(time.Since(start).Seconds()))
	return nil
}

// MarkContaminates runs phase 2: read the match file, group matches by
// validation document, apply the coverage threshold, and persist the
// contamination records.
func MarkContaminates(cfg *model.Config) (decide.Summary, error) {
	start := time.Now()
	verbosef(cfg, "Starting contaminate marking...\n")

	// Phase 0: load everything into memory
	matchBytes, err := storage.ReadFile(cfg.Match.Location)
	if err != nil {
		return decide.Summary{}, err
	}
	matches, err := codec.DecodeRawMatches(matchBytes)
	if err != nil {
		return decide.Summary{}, err
	}
	boundaries, err := index.LoadBoundaries(cfg.Index.Dir)
	if err != nil {
		return decide.Summary{}, err
	}

	// Phase 1: group all matches by validation document
	verbosef(cfg, "Starting grouping of matches...\n")
	groupStart := time.Now()
	bar := newBar(cfg, len(matches), "matches")
	var progress func(int)
	if bar != nil {
		progress = func(n int) { _ = bar.Add(n) }
	}
	groups, err := aggregate.Group(matches, boundaries, cfg.Concurrency.Workers, progress)
	finishBar(bar)
	if err != nil {
		return decide.Summary{}, err
	}
	verbosef(cfg, "Grouped matches in %d secs\n", int(time.Since(groupStart).Seconds()))

	// Phase 2: merge intervals and apply the threshold per group
	verbosef(cfg, "Starting contaminate aggregation...\n")
	decideStart := time.Now()
	decider := decide.New(cfg.Match.Size, cfg.Match.Threshold, cfg.Concurrency.Workers)
	bar = newBar(cfg, groups.Len(), "groups")
	if bar != nil {
		decider.Progress = func() { _ = bar.Add(1) }
	}
	records := decider.Decide(groups)
	finishBar(bar)
	verbosef(cfg, "Finished aggregating contaminates in %d secs\n", int(time.Since(decideStart).Seconds()))

	// Phase 3: save contaminates
	if err := storage.WriteFile(filepath.Join(cfg.Output.Dir, ContaminateFile), codec.EncodeContaminations(records)); err != nil {
		return decide.Summary{}, err
	}

	// Phase 4: finalize
	summary := decide.Summarize(records)
	verbosef(cfg, "-------------------------\n")
	verbosef(cfg, "Completing contaminate collection\n")
	verbosef(cfg, "Found %d contaminated val set docs\n", summary.ContaminatedDocs)
	verbosef(cfg, "Found %d total contaminates\n", summary.Records)
	verbosef(cfg, "Total runtime: %d secs\n", int(time.Since(start).Seconds()))
	return summary, nil
}

// BuildIndex reads validation JSON Lines files, concatenates their text
// fields into the validation corpus (one document per record), and
// writes the suffix-array index plus boundary table. inputs are files
// or directories, expanded and sorted the same way as a trainset.
func BuildIndex(cfg *model.Config, inputs []string, compress bool) error {
	start := time.Now()
	verbosef(cfg, "Starting index build...\n")

	docs, err := collect.Discover(inputs)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no validation files found under %v", model.ErrConfig, inputs)
	}

	var corpus []byte
	boundaries := index.Boundaries{0}
	for _, doc := range docs {
		texts, err := collect.ReadLines(doc.Path)
		if err != nil {
			return err
		}
		for _, text := range texts {
			corpus = append(corpus, text...)
			boundaries = append(boundaries, uint64(len(corpus)))
		}
	}
	verbosef(cfg, "Read %d validation docs (%d bytes)\n", boundaries.NumDocs(), len(corpus))

	ix, err := index.Build(corpus, boundaries)
	if err != nil {
		return err
	}
	if err := index.Write(cfg.Index.Dir, ix, boundaries, compress); err != nil {
		return err
	}

	verbosef(cfg, "Wrote index to %s in %d secs\n", cfg.Index.Dir, int(time.Since(start).Seconds()))
	return nil
}

func verbosef(cfg *model.Config, format string, args ...interface{}) {
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

func newBar(cfg *model.Config, total int, units string) *progressbar.ProgressBar {
	if !cfg.Output.Progress {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(units),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}
