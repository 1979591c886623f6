package main

import (
	"github.com/spf13/cobra"
)

type paperOptions struct {
	*rootOptions
	graph bool
}

func newPaperCmd(root *rootOptions) *cobra.Command {
	opts := &paperOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "paper <id>",
		Short: "Get a single paper by OpenAlex id",
		Long: `Get a single paper by its OpenAlex id, with or without the
https://openalex.org/ prefix.

With --graph the references and citations are materialized as full papers,
matching the /api/paper/{id} endpoint.

Examples:
  citegraph paper W2741809807
  citegraph paper https://openalex.org/W2741809807 --graph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaper(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.graph, "graph", "g", false, "Include references and citations")
	return cmd
}

func runPaper(cmd *cobra.Command, opts *paperOptions, id string) error {
	a, err := opts.build(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeApp(a, cmd.ErrOrStderr())

	if opts.graph {
		graph, err := a.Graphs.Assemble(cmd.Context(), id)
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), graph)
	}

	paper, err := a.Papers.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	return outputJSON(cmd.OutOrStdout(), paper)
}
