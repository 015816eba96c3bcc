package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/liposome-ivr/internal/application/backend"
	"github.com/turtacn/liposome-ivr/internal/domain/dataset"
)

// BuildOptions holds the build command flags.
type BuildOptions struct {
	OutputDir string
	DryRun    bool
	NoUpload  bool
}

// NewBuildCmd creates the build command, which runs the full dataset pipeline.
func NewBuildCmd() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the IVR dataset and its summary artifacts",
		Long: `Build joins IVR experiments with formulation quality attributes and API
molecular descriptors, derives the distribution, heatmap and missing-data
summaries, and writes every table as CSV under output.dir together with a
YAML run manifest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd, cliCtx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "override output.dir")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "assemble every table without writing artifacts")
	cmd.Flags().BoolVar(&opts.NoUpload, "no-upload", false, "skip the object-storage upload even when enabled")

	return cmd
}

func runBuild(cmd *cobra.Command, cliCtx *CLIContext, opts *BuildOptions) error {
	cfg := *cliCtx.Config
	if opts.OutputDir != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if opts.NoUpload || opts.DryRun {
		cfg.Storage.MinIO.Enabled = false
	}
	if opts.DryRun {
		cfg.Events.Kafka.Enabled = false
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := openPipeline(ctx, &cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if opts.DryRun {
		ds, err := p.service.Assemble(ctx)
		if err != nil {
			return err
		}
		return PrintResult(cmd, summaryView(ds, nil))
	}

	if err := p.lockOutput(ctx, cfg.Output.Dir, cfg.Redis.LockTTL); err != nil {
		return err
	}

	result, err := p.service.Build(ctx)
	// Metrics are written for failed runs too.
	p.writeMetrics(cfg.Metrics.TextfilePath)
	if err != nil {
		return err
	}

	if err := PrintResult(cmd, summaryView(result.Dataset, result.Manifest)); err != nil {
		return err
	}
	if cliCtx.OutputFormat == "text" {
		PrintSuccess(cmd, fmt.Sprintf("dataset built (run %s, manifest %s)", result.Manifest.RunID, result.ManifestPath))
	}
	return nil
}

// summaryView lists the artifacts of a run.  Without a manifest (dry run) it
// lists the assembled tables and their row counts.
func summaryView(ds *backend.Dataset, m *backend.Manifest) tableView {
	if m != nil {
		t := dataset.MustNewTable("artifact", "rows", "path", "location")
		for _, a := range m.Artifacts {
			_ = t.AppendRow(a.Name, int64(a.Rows), a.Path, a.Location)
		}
		return tableView{title: "Artifacts (run " + m.RunID + ")", table: t}
	}

	t := dataset.MustNewTable("table", "rows")
	add := func(name string, rows int) { _ = t.AppendRow(name, int64(rows)) }
	add(backend.ArtifactCombined, ds.Combined.Len())
	add(backend.ArtifactDescriptors, ds.Descriptors.Len())
	add(backend.ArtifactTimeUnits, ds.TimeUnits.Len())
	add(backend.ArtifactAPIPercent, len(ds.APIPercent.Categories))
	add(backend.ArtifactMethodPercent, len(ds.MethodPercent.Categories))
	add(backend.ArtifactHeatmap, ds.HeatmapTable().Len())
	if ds.Missing != nil {
		add(backend.ArtifactMissing, len(ds.Missing.Entries))
	}
	if len(ds.ReleasePoints) > 0 {
		add(backend.ArtifactReleasePoints, len(ds.ReleasePoints))
	}
	return tableView{
		title: "Dry run: " + strconv.Itoa(ds.DescriptorFailures) + " descriptor failures",
		table: t,
	}
}
