package cli

import (
	"github.com/spf13/cobra"

	"piggyvault-indexer/internal/app"
)

var initDBCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().InitDB(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display ingestion cursors per event category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Status(cmd.Context())
	},
}

var repairBankID string

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recalculate projected bank balances from event history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Repair(cmd.Context(), app.RepairOptions{BankID: repairBankID})
	},
}

func init() {
	repairCmd.Flags().StringVar(&repairBankID, "bank", "", "Repair a single bank (default: all banks)")
}
