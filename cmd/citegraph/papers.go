package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newPapersCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "papers <id>...",
		Short: "Get several papers in one call",
		Long: `Get several papers by OpenAlex id. Ids may be given as separate
arguments or comma-separated. Ids that cannot be resolved are skipped.

Example:
  citegraph papers W2741809807,W1775749144 W2100837269`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.build(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeApp(a, cmd.ErrOrStderr())

			papers, err := a.Papers.GetPapers(cmd.Context(), splitIDs(args))
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), papers)
		},
	}
}

func splitIDs(args []string) []string {
	var ids []string
	for _, arg := range args {
		ids = append(ids, strings.Split(arg, ",")...)
	}
	return ids
}
