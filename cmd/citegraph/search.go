package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarsphere/citegraph-service/internal/service"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		perPage int
		cursor  string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search papers by keywords",
		Long: `Search OpenAlex works ordered by citation count. Comma-separated
keywords narrow the search: the first is the search term and the rest must
all appear in the title or abstract.

Pass the next_cursor from a previous result with --cursor to page.

Examples:
  citegraph search "graph neural networks"
  citegraph search "transformers, protein folding" --per-page 50`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.build(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeApp(a, cmd.ErrOrStderr())

			result, err := a.Search.Search(cmd.Context(), service.SearchParams{
				Query:   strings.Join(args, " "),
				PerPage: perPage,
				Cursor:  cursor,
			})
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVarP(&perPage, "per-page", "n", 0, "Results per page (default from config)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	return cmd
}
