package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/pipeline"
)

var (
	indexDir    string
	trainset    []string
	outputDir   string
	matchSize   int
	concurrency int
	noCache     bool
	noProgress  bool
)

// buildMatchesCmd represents the build-matches command
var buildMatchesCmd = &cobra.Command{
	Use:   "build-matches",
	Short: "Scan training documents and persist raw matches",
	Long: `Build-matches runs phase 1 of the pipeline:
- Expand the trainset roots into JSON Lines files, sorted for stable IDs
- Load the suffix-array index over the validation corpus into memory
- Scan every training line's fixed-width windows against the index
- Write the path index (paths.json.gz) and raw matches (matches.bin.gz)

Example:
  decon build-matches --data-file ./val-index --trainset ./train --output ./out
  decon build-matches --data-file ./val-index --trainset a/ --trainset b/ --output ./out --match-size 20`,
	RunE: runBuildMatches,
}

func init() {
	rootCmd.AddCommand(buildMatchesCmd)

	buildMatchesCmd.Flags().StringVar(&indexDir, "data-file", "", "validation corpus index directory")
	buildMatchesCmd.Flags().StringSliceVar(&trainset, "trainset", nil, "training corpus root (repeatable)")
	buildMatchesCmd.Flags().StringVar(&outputDir, "output", "", "output directory for run artifacts")
	buildMatchesCmd.Flags().IntVar(&matchSize, "match-size", 10, "match window size in bytes")
	buildMatchesCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	buildMatchesCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the occurrence-query cache")
	buildMatchesCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress bars")

	_ = buildMatchesCmd.MarkFlagRequired("data-file")
	_ = buildMatchesCmd.MarkFlagRequired("trainset")
	_ = buildMatchesCmd.MarkFlagRequired("output")
}

func runBuildMatches(cmd *cobra.Command, args []string) error {
	cfg := model.DefaultConfig()
	cfg.Index.Dir = indexDir
	cfg.Trainset = trainset
	cfg.Match.Size = matchSize
	cfg.Concurrency.Workers = concurrency
	cfg.Cache.Enabled = !noCache
	cfg.Output.Dir = outputDir
	cfg.Output.Verbose = verbose
	cfg.Output.Progress = !noProgress

	if err := cfg.Validate(); err != nil {
		return err
	}
	return pipeline.BuildMatches(cfg)
}
