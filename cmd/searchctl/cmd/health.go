package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	healthuc "github.com/kailas-cloud/crmsearch/internal/usecase/health"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the backend and store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			defer deps.close()

			if err := deps.store.WaitForReady(cmd.Context(), readinessTimeout(deps.cfg)); err != nil {
				return fmt.Errorf("store not ready: %w", err)
			}

			svc := healthuc.New(deps.backend, deps.store, deps.cfg.GDPR.MaskingEnabled())
			report := svc.Check(cmd.Context())

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Status != healthuc.Healthy {
				return fmt.Errorf("status: %s", report.Status)
			}
			return nil
		},
	}
}
