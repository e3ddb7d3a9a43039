package cli

import (
	"context"
	"fmt"
	"io"

	"ai_registry/application/engine"
	"ai_registry/application/scanner"
	"ai_registry/domain/interfaces"
	"ai_registry/infrastructure/browser"
	"ai_registry/infrastructure/config"
	"ai_registry/infrastructure/storage"
	syncgw "ai_registry/infrastructure/sync"

	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newGateway returns the configured gateway, or nil for the none driver.
func newGateway(cfg *config.Config, logger *logrus.Logger) (interfaces.SyncGateway, io.Closer, error) {
	switch cfg.Sync.Driver {
	case config.SyncHTTP:
		return syncgw.NewHTTPGateway(cfg.Sync.URL, syncgw.Options{
			Retries: cfg.Sync.Retries,
			Timeout: cfg.Sync.Timeout,
			Logger:  logger,
		}), nopCloser{}, nil
	case config.SyncFile:
		gw, err := storage.NewFileGateway(cfg.Sync.File)
		if err != nil {
			return nil, nil, err
		}
		return gw, nopCloser{}, nil
	case config.SyncSQLite:
		db, err := storage.Open(cfg.Sync.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Sync.Database, err)
		}
		return db, db, nil
	default:
		return nil, nopCloser{}, nil
	}
}

// newBrowser attaches over CDP when a debugger URL is configured and launches
// Chromium through playwright otherwise.
func newBrowser(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (interfaces.BrowserController, error) {
	opts := browser.Options{
		Headless:          cfg.Browser.Headless,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Logger:            logger,
	}
	if cfg.Browser.CDPURL != "" {
		return browser.NewRodController(ctx, cfg.Browser.CDPURL, opts)
	}
	return browser.NewBrowserController(opts)
}

func newEngine(dom interfaces.DOM, gw interfaces.SyncGateway, cfg *config.Config, logger *logrus.Logger) *engine.Engine {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithWatcherConfig(cfg.Watcher),
		engine.WithScanner(scanner.New(scanner.WithClassifier(scanner.Classifier{OcclusionCheck: cfg.OcclusionCheck}))),
		engine.WithAutoSync(cfg.Sync.Auto),
	}
	if gw != nil {
		opts = append(opts, engine.WithGateway(gw))
	}
	return engine.New(dom, opts...)
}
