package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai_registry/domain/entities"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// registryUpdate is one line of watch output.
type registryUpdate struct {
	URL      string                       `json:"url"`
	Elements []entities.ElementDescriptor `json:"elements"`
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Open a page and keep its registry current until interrupted, printing one JSON line per update.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := app.cfg, app.logger

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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

		updates := make(chan []entities.ElementDescriptor, 1)
		unsubscribe := eng.OnUpdate(func(d []entities.ElementDescriptor) {
			// keep only the newest pending update
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- d:
			default:
			}
		})
		defer unsubscribe()

		dispose := eng.Watch()
		logger.WithField("url", args[0]).Info("Watching page, press Ctrl+C to stop")

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			<-gctx.Done()
			dispose()
			return nil
		})
		g.Go(func() error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				select {
				case <-gctx.Done():
					return nil
				case d := <-updates:
					if err := enc.Encode(registryUpdate{URL: ctrl.CurrentURL(), Elements: d}); err != nil {
						return err
					}
				}
			}
		})
		if err := g.Wait(); err != nil {
			return err
		}

		stats := eng.Stats()
		logger.WithFields(logrus.Fields{
			"scans":    stats.Scans,
			"skipped":  stats.Skipped,
			"elements": stats.Elements,
		}).Info("Stopped watching")

		if gw != nil && !cfg.Sync.Auto {
			eng.Sync(context.WithoutCancel(ctx))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
