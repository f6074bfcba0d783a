package cli

import (
	"github.com/spf13/cobra"

	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/pipeline"
)

var (
	valset        []string
	indexOut      string
	indexCompress bool
)

// buildIndexCmd represents the build-index command
var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Build a suffix-array index over a validation corpus",
	Long: `Build-index concatenates the text of every record in the validation
JSON Lines files into one corpus, computes its suffix array, and writes
the index directory consumed by build-matches and mark-contaminates:
  text.bin   concatenated corpus bytes
  table.bin  suffix-ordered offsets, fixed-width little-endian entries
  .size      cumulative document boundary offsets

Each record is one validation document.

Example:
  decon build-index --valset ./val --output ./val-index
  decon build-index --valset ./val --output ./val-index --compress`,
	RunE: runBuildIndex,
}

func init() {
	rootCmd.AddCommand(buildIndexCmd)

	buildIndexCmd.Flags().StringSliceVar(&valset, "valset", nil, "validation corpus root (repeatable)")
	buildIndexCmd.Flags().StringVar(&indexOut, "output", "", "index output directory")
	buildIndexCmd.Flags().BoolVar(&indexCompress, "compress", false, "gzip the text and table files")

	_ = buildIndexCmd.MarkFlagRequired("valset")
	_ = buildIndexCmd.MarkFlagRequired("output")
}

func runBuildIndex(cmd *cobra.Command, args []string) error {
	cfg := model.DefaultConfig()
	cfg.Index.Dir = indexOut
	cfg.Output.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return err
	}
	return pipeline.BuildIndex(cfg, valset, indexCompress)
}
