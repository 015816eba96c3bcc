package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/liposome-ivr/internal/domain/dataset"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database/repositories"
)

var (
	descriptorNames string
	descriptorAll   bool
)

// NewDescriptorsCmd creates the descriptors command, which computes
// molecular descriptors for SMILES given on the command line.
func NewDescriptorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "descriptors <smiles>...",
		Short: "Compute molecular descriptors for SMILES strings",
		Long: `Descriptors parses each SMILES argument and prints one row of descriptor
values per structure.  Structures that do not parse, and descriptors that
cannot be computed, show the configured sentinel.`,
		Example: `  ivrdata descriptors CCO c1ccccc1
  ivrdata descriptors --names MolWt,TPSA -o json "CC(=O)Oc1ccccc1C(=O)O"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runDescriptors(cmd, cliCtx, args)
		},
	}

	cmd.Flags().StringVar(&descriptorNames, "names", "", "comma-separated descriptor names (default: pipeline.descriptors)")
	cmd.Flags().BoolVar(&descriptorAll, "all", false, "compute every known descriptor")

	return cmd
}

func runDescriptors(cmd *cobra.Command, cliCtx *CLIContext, smiles []string) error {
	pc := cliCtx.Config.Pipeline
	switch {
	case descriptorAll:
		pc.Descriptors = nil
	case descriptorNames != "":
		pc.Descriptors = repositories.ParseColumnList(descriptorNames)
	}

	extractor, err := newExtractor(pc, cliCtx.Logger)
	if err != nil {
		return err
	}

	t, err := dataset.NewTable(append([]string{"SMILES"}, extractor.Names()...)...)
	if err != nil {
		return err
	}
	for _, s := range smiles {
		vec, _ := extractor.ExtractSMILES(s)
		if err := t.AppendRow(append([]interface{}{s}, vec.Values()...)...); err != nil {
			return err
		}
	}

	return PrintResult(cmd, tableView{table: t})
}
