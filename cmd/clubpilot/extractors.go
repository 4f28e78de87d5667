package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ramosmx/clubpilot/pkg/extract"
)

func newExtractorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extractors",
		Short: "List the available data extractors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tNAVIGATES\tDESCRIPTION")
			for _, d := range extract.NewDefaultRegistry().Descriptors() {
				fmt.Fprintf(w, "%s\t%t\t%s\n", d.Name, d.RequiresNavigation, d.Description)
			}
			return w.Flush()
		},
	}
}
