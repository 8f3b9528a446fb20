// Package infrastructure provides core service initialization for application
// startup. It assembles the common dependencies (logging, database, archive
// connectivity) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/config"
	"github.com/wboerner/archivar/pkg/database"
	"github.com/wboerner/archivar/pkg/lifecycle"
)

// Infrastructure holds the core systems required by all domain modules: the
// lifecycle coordinator, logging, the outcome database, and the archive
// connection with its entity cache.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Archive   *archive.Client
	Cache     *archive.Cache
	Wellknown *archive.Wellknown
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	client, err := archive.NewClient(
		cfg.Archive.BaseURL,
		cfg.Archive.Token,
		cfg.Archive.TimeoutDuration(),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("archive client init failed: %w", err)
	}

	cache := archive.NewCache(client, logger)

	// The initial cache load and well-known resolution happen here because
	// domain systems bind to the resolved entities at construction time. A
	// missing trigger tag or custom field fails startup.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := cache.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("archive cache load failed: %w", err)
	}

	wellknown, err := archive.ResolveWellknown(cache, cfg.Archive.WellknownNames())
	if err != nil {
		return nil, fmt.Errorf("well-known entity resolution failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Archive:   client,
		Cache:     cache,
		Wellknown: wellknown,
	}, nil
}

// Start registers the database with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	return nil
}
