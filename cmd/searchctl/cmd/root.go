// Package cmd provides the searchctl CLI commands. Each command
// constructs the same services the API server wires, runs one
// operation, and exits.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	bleveBackend "github.com/kailas-cloud/crmsearch/internal/backend/bleve"
	scanBackend "github.com/kailas-cloud/crmsearch/internal/backend/scan"
	"github.com/kailas-cloud/crmsearch/internal/config"
	"github.com/kailas-cloud/crmsearch/internal/db"
	dbMemory "github.com/kailas-cloud/crmsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/crmsearch/internal/db/redis"
	"github.com/kailas-cloud/crmsearch/internal/provider"
	"github.com/kailas-cloud/crmsearch/internal/version"
)

// NewRootCmd creates the root command for the searchctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "searchctl",
		Short:        "Operations CLI for the crmsearch service",
		Version:      version.Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("searchctl version {{.Version}}\n")

	cmd.AddCommand(
		newGraphCmd(),
		newIndexCmd(),
		newHealthCmd(),
		newInfoCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runtimeDeps bundles the collaborators a command needs.
type runtimeDeps struct {
	cfg      config.Config
	store    db.Store
	provider *provider.Static
	backend  backend.Finder
	logger   *zap.Logger
}

// buildDeps loads config and constructs the store and backend.
func buildDeps() (*runtimeDeps, error) {
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := zap.NewNop()

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create store: %w", err)
		}
	case "memory":
		store = dbMemory.NewStore()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	recordProvider := provider.NewStatic()

	var finder backend.Finder
	switch cfg.Search.Backend {
	case "provider":
		finder = scanBackend.New(recordProvider)
	case "bleve":
		engine, err := bleveBackend.New(cfg.Search.BlevePath, recordProvider, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open bleve index: %w", err)
		}
		finder = engine
	default:
		store.Close()
		return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
	}

	return &runtimeDeps{
		cfg:      cfg,
		store:    store,
		provider: recordProvider,
		backend:  finder,
		logger:   logger,
	}, nil
}

func (d *runtimeDeps) close() {
	d.store.Close()
}

func readinessTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.Database.ReadinessTimeout) * time.Second
}
