package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/liposome-ivr/internal/domain/dataset"
)

var (
	heatmapLong     bool
	heatmapNoTotals bool
)

// NewHeatmapCmd creates the heatmap command, which prints the drug by
// release-method experiment counts without writing any artifact.
func NewHeatmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Print experiment counts per drug and release method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runHeatmap(cmd, cliCtx)
		},
	}

	cmd.Flags().BoolVar(&heatmapLong, "long", false, "print one row per (drug, method) pair instead of the matrix")
	cmd.Flags().BoolVar(&heatmapNoTotals, "no-totals", false, "omit the Total row and column")

	return cmd
}

func runHeatmap(cmd *cobra.Command, cliCtx *CLIContext) error {
	cfg := *cliCtx.Config
	cfg.Storage.MinIO.Enabled = false
	cfg.Events.Kafka.Enabled = false

	p, err := openPipeline(cmd.Context(), &cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer p.Close()

	ds, err := p.service.Assemble(cmd.Context())
	if err != nil {
		return err
	}

	var t *dataset.Table
	switch {
	case heatmapLong:
		t = ds.Pairs.Table()
	case heatmapNoTotals:
		t = ds.Pairs.Pivot().Table()
	default:
		t = ds.Pairs.Pivot().WithTotals().Table()
	}
	return PrintResult(cmd, tableView{table: t})
}
