package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/lineage/internal/layout"
	"github.com/JaimeStill/lineage/internal/pipeline"
	"github.com/JaimeStill/lineage/internal/session"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		quick  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Upload an image and run analysis, provenance, spread, and report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readImage(args[0])
			if err != nil {
				return err
			}

			sess := session.New(nil, a.logger)
			defer sess.Close(cmd.Context())

			p := pipeline.New(a.client, sess, nil, a.logger,
				pipeline.WithLayout(a.cfg.Layout.Options()))

			run := p.Investigate
			if quick {
				run = p.Run
			}
			if err := run(cmd.Context(), &file); err != nil {
				return err
			}

			state := sess.Snapshot()
			var placed *layout.Result
			if state.Graph != nil {
				if res, err := p.Layout(); err == nil {
					placed = &res
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					session.State
					Layout *layout.Result `json:"layout,omitempty"`
				}{state, placed})
			}

			printSession(cmd.OutOrStdout(), state, placed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&quick, "quick", false, "stop after upload and analysis")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func printSession(w io.Writer, s session.State, placed *layout.Result) {
	fmt.Fprintf(w, "image     %s\n", s.ImageID)
	if s.Analysis != nil {
		score := s.Analysis.DeepfakeScore
		fmt.Fprintf(w, "score     %.3f (deepfake: %v)\n", score.OverallScore, score.IsDeepfake)
	}
	fmt.Fprintf(w, "verdict   %s\n", s.Verdict)

	if s.Report != nil {
		fmt.Fprintf(w, "report    %s %s (authenticity %.2f)\n",
			s.Report.ReportID, s.Report.Verdict, s.Report.OverallAuthenticityScore)
		for _, line := range s.Report.EvidenceSummary {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	if s.Social != nil {
		fmt.Fprintf(w, "spread    %d platforms, reach %d\n", len(s.Social.Platforms), s.Social.TotalReach)
	}
	if placed != nil {
		fmt.Fprintln(w)
		printLayout(w, *placed)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "error     %s\n", strings.TrimSpace(s.Error))
	}
}
