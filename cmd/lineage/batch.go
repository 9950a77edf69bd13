package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/lineage/internal/batch"
	"github.com/JaimeStill/lineage/internal/forensics"
)

func newBatchCmd(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Upload and analyze several images, printing a verdict per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files := make([]forensics.File, 0, len(args))
			for _, path := range args {
				f, err := readImage(path)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			n := a.cfg.Batch.Concurrency
			if cmd.Flags().Changed("concurrency") {
				n = concurrency
			}

			p := batch.New(a.client, nil, a.logger, batch.WithConcurrency(n))
			defer p.Close(ctx)

			if _, err := p.Enqueue(ctx, files); err != nil {
				return err
			}

			if err := p.RunAll(ctx); err != nil {
				return err
			}

			stats := p.Stats()
			printItems(cmd.OutOrStdout(), p.Items(), stats)

			if stats.Errored > 0 {
				return fmt.Errorf("%d of %d images failed", stats.Errored, stats.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "images processed at once (default from config)")
	return cmd
}

func printItems(w io.Writer, items []batch.Item, stats batch.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tVERDICT\tSCORE\tERROR")
	for _, it := range items {
		score := "-"
		if it.Score != nil {
			score = fmt.Sprintf("%.3f", *it.Score)
		}
		v := string(it.Verdict)
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Filename, it.Status, v, score, it.Error)
	}
	tw.Flush()

	fmt.Fprintf(w, "\ntotal %d  done %d  errored %d  deepfakes %d\n",
		stats.Total, stats.Done, stats.Errored, stats.Deepfakes)
}
