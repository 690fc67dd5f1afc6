package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion loop and the HTTP query surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run only the ingestion loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Index(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run only the HTTP query surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context())
	},
}
