// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gazerhq/gazer/internal/config"
	"github.com/gazerhq/gazer/internal/observability"
	"github.com/gazerhq/gazer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the browser and serve the agent API.",
	Long: `Serve starts the managed browser, connects to the UI detector and the
vision model, and exposes the agent over HTTP. Turns are streamed back to the
caller as server-sent event records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}

		logger := observability.GetLogger()
		defer observability.Sync()

		app, err := server.NewApp(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("building application: %w", err)
		}
		return app.Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
