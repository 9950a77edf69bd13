package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/lineage/internal/layout"
)

func newLayoutCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "layout IMAGE_ID",
		Short: "Fetch an uploaded image's lineage graph and print node coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.client.BuildGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res := layout.Compute(*g, a.cfg.Layout.Options())

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printLayout(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layout as JSON")
	return cmd
}

func printLayout(w io.Writer, res layout.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tLEVEL\tX\tY")
	for _, p := range res.Nodes {
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t%.0f\n", p.ID, p.Level, p.X, p.Y)
	}
	tw.Flush()

	if len(res.Edges) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, e := range res.Edges {
		marker := ""
		if e.Primary {
			marker = " *"
		}
		fmt.Fprintf(w, "%s -> %s  %s%s\n", e.Source, e.Target, e.Relationship, marker)
	}
}
