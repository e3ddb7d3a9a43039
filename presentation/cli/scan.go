package cli

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Open a page, capture its interactive elements once and print them as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger := app.cfg, app.logger

		gw, closer, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctrl, err := newBrowser(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize browser: %w", err)
		}
		defer ctrl.Close()

		if err := ctrl.Navigate(ctx, args[0]); err != nil {
			return err
		}

		eng := newEngine(ctrl, gw, cfg, logger)
		defer eng.Close()

		if gw != nil {
			eng.LoadBaseline(ctx)
		}
		descriptors := eng.CaptureInteractiveElements(ctx)
		logger.WithFields(logrus.Fields{
			"url":      args[0],
			"elements": len(descriptors),
		}).Info("Captured interactive elements")

		if gw != nil && !eng.Sync(ctx) {
			return fmt.Errorf("sync to %s gateway failed", cfg.Sync.Driver)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(descriptors)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
