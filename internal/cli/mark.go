package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/pipeline"
)

var (
	markIndexDir    string
	matchLocation   string
	markOutputDir   string
	threshold       float64
	markMatchSize   int
	markConcurrency int
	markNoProgress  bool
)

// markCmd represents the mark-contaminates command
var markCmd = &cobra.Command{
	Use:   "mark-contaminates",
	Short: "Group raw matches and mark contaminated validation documents",
	Long: `Mark-contaminates runs phase 2 of the pipeline:
- Read the raw match file produced by build-matches
- Group matches by validation document and training (document, line)
- Merge match intervals and apply the coverage threshold
- Write contamination records (contaminates.bin.gz)

The threshold is the fraction of a validation document's bytes that
must be covered by merged matches; required coverage is rounded up.

Example:
  decon mark-contaminates --data-file ./val-index --match-location ./out/matches.bin.gz \
    --output ./out --threshold 0.8 --match-size 10`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().StringVar(&markIndexDir, "data-file", "", "validation corpus index directory (boundary table lives beside it)")
	markCmd.Flags().StringVar(&matchLocation, "match-location", "", "raw match file from build-matches")
	markCmd.Flags().StringVar(&markOutputDir, "output", "", "output directory for contamination records")
	markCmd.Flags().Float64Var(&threshold, "threshold", 0, "coverage threshold in [0, 1]")
	markCmd.Flags().IntVar(&markMatchSize, "match-size", 10, "match window size used during build-matches")
	markCmd.Flags().IntVar(&markConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	markCmd.Flags().BoolVar(&markNoProgress, "no-progress", false, "disable progress bars")

	_ = markCmd.MarkFlagRequired("data-file")
	_ = markCmd.MarkFlagRequired("match-location")
	_ = markCmd.MarkFlagRequired("output")
	_ = markCmd.MarkFlagRequired("threshold")
}

func runMark(cmd *cobra.Command, args []string) error {
	cfg := model.DefaultConfig()
	cfg.Index.Dir = markIndexDir
	cfg.Match.Location = matchLocation
	cfg.Match.Size = markMatchSize
	cfg.Match.Threshold = threshold
	cfg.Concurrency.Workers = markConcurrency
	cfg.Output.Dir = markOutputDir
	cfg.Output.Verbose = verbose
	cfg.Output.Progress = !markNoProgress

	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := pipeline.MarkContaminates(cfg)
	return err
}
