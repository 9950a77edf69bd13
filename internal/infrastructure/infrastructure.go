// Package infrastructure builds the shared systems every module depends on:
// logging, lifecycle, the optional database and blob storage, the preview
// store, and the forensics client.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/JaimeStill/lineage/internal/config"
	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/pkg/database"
	"github.com/JaimeStill/lineage/pkg/lifecycle"
	"github.com/JaimeStill/lineage/pkg/storage"
)

// Infrastructure holds the core systems. Database and Storage are nil when
// their sections are not configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Previews  previews.Store
	Forensics forensics.Client

	unauthorized *hooks
}

type hooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *hooks) add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

func (h *hooks) run() {
	h.mu.Lock()
	fns := append([]func(){}, h.fns...)
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// New creates every system from cfg without starting any of them.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle:    lifecycle.New(),
		Logger:       logger,
		unauthorized: &hooks{},
	}

	if cfg.Database.Configured() {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
	}

	if cfg.Storage.Configured() {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Storage = store
	}

	store, err := previews.New(&cfg.Previews, infra.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("previews init failed: %w", err)
	}
	infra.Previews = store

	client, err := forensics.New(
		&cfg.Forensics,
		logger,
		forensics.WithUnauthorizedHook(func() {
			logger.Warn("forensics service rejected credentials")
			infra.unauthorized.run()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("forensics init failed: %w", err)
	}
	infra.Forensics = client

	return infra, nil
}

// OnUnauthorized registers fn to run whenever the forensics service rejects
// the configured credentials. Handlers run synchronously on the failing call.
func (i *Infrastructure) OnUnauthorized(fn func()) {
	i.unauthorized.add(fn)
}

// Start registers the configured systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}
