package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/crmsearch/internal/backend"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Search index operations",
	}
	cmd.AddCommand(newIndexRebuildCmd())
	return cmd
}

func newIndexRebuildCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Drop and repopulate a tenant's search index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			defer deps.close()

			engine, ok := deps.backend.(backend.Engine)
			if !ok {
				return fmt.Errorf(
					"backend %q maintains no index; nothing to rebuild", deps.backend.Name())
			}

			indexed, err := engine.RebuildIndex(cmd.Context(), tenantID)
			if err != nil {
				return fmt.Errorf("rebuild index: %w", err)
			}

			fmt.Printf("index rebuilt: %d records indexed\n", indexed)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
