package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	graphuc "github.com/kailas-cloud/crmsearch/internal/usecase/graph"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Relationship graph operations",
	}
	cmd.AddCommand(newGraphRebuildCmd())
	return cmd
}

func newGraphRebuildCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild a tenant's relationship graph from provider data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			defer deps.close()

			svc := graphuc.New(deps.provider, deps.logger)
			report, err := svc.Rebuild(cmd.Context(), tenantID)
			if err != nil {
				return fmt.Errorf("rebuild graph: %w", err)
			}

			fmt.Printf("graph rebuilt: %d edges, %d relations skipped\n", report.Edges, report.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
