package main

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/lineage/internal/config"
	"github.com/JaimeStill/lineage/internal/forensics"
)

type clientFactory func(cfg *forensics.Config, logger *slog.Logger) (forensics.Client, error)

func defaultClient(cfg *forensics.Config, logger *slog.Logger) (forensics.Client, error) {
	return forensics.New(cfg, logger)
}

// app carries what every subcommand needs once the root pre-run has
// loaded config.
type app struct {
	cfg    *config.Config
	client forensics.Client
	logger *slog.Logger
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	a := &app{}

	var (
		server  string
		token   string
		timeout time.Duration
		verbose bool
	)

	root := &cobra.Command{
		Use:          "lineage",
		Short:        "Trace image provenance and deepfake verdicts through the forensics service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level:      level,
				TimeFormat: "15:04:05",
			}))

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if server != "" {
				cfg.Forensics.BaseURL = server
			}
			if token != "" {
				cfg.Forensics.Token = token
			}
			if timeout > 0 {
				cfg.Forensics.Timeout = timeout.String()
			}
			a.cfg = cfg

			client, err := newClient(&cfg.Forensics, a.logger)
			if err != nil {
				return fmt.Errorf("forensics client: %w", err)
			}
			a.client = client
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&server, "server", "", "forensics service URL (default from config or LINEAGE_FORENSICS_BASE_URL)")
	flags.StringVar(&token, "token", "", "bearer token for the forensics service")
	flags.DurationVar(&timeout, "timeout", 0, "per-request timeout")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newAnalyzeCmd(a),
		newBatchCmd(a),
		newLayoutCmd(a),
	)
	return root
}

func readImage(path string) (forensics.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return forensics.File{}, err
	}
	return forensics.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}
