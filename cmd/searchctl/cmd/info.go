package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/crmsearch/internal/config"
	"github.com/kailas-cloud/crmsearch/internal/version"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print build and configuration summary",
		RunE: func(_ *cobra.Command, _ []string) error {
			env := config.GetEnv()
			cfg, err := config.Load(env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			fmt.Printf("version:    %s (%s, built %s)\n", version.Version, version.Commit, version.Date)
			fmt.Printf("env:        %s\n", env)
			fmt.Printf("db driver:  %s\n", cfg.Database.Driver)
			fmt.Printf("backend:    %s\n", cfg.Search.Backend)
			fmt.Printf("expansion:  %s\n", cfg.Search.ExpansionStrategy)
			fmt.Printf("cache ttl:  %ds\n", cfg.Search.CacheTTLSec)
			fmt.Printf("gdpr:       %v\n", cfg.GDPR.MaskingEnabled())
			return nil
		},
	}
}
