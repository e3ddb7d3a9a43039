package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai_registry/application/scanner"
	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// pollInterval is how often queued hook events are drained from the page.
const pollInterval = 250 * time.Millisecond

type rodController struct {
	*events

	browser  *rod.Browser
	page     *rod.Page
	attached bool
	opts     Options
	logger   *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRodController connects to Chrome over CDP. A non-empty controlURL attaches to
// a running browser and adopts its first tab; otherwise a browser is launched.
func NewRodController(ctx context.Context, controlURL string, opts Options) (interfaces.BrowserController, error) {
	opts = opts.withDefaults()
	attached := controlURL != ""

	if attached {
		resolved, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("resolve debugger url: %w", err)
		}
		controlURL = resolved
	} else {
		url, err := launcher.New().Headless(opts.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	runCtx, cancel := context.WithCancel(context.Background())
	browser := rod.New().ControlURL(controlURL).Context(runCtx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := firstPage(browser, attached)
	if err != nil {
		cancel()
		return nil, err
	}

	c := &rodController{
		events:   newEvents(opts.Logger),
		browser:  browser,
		page:     page,
		attached: attached,
		opts:     opts,
		logger:   opts.Logger,
		cancel:   cancel,
	}

	if !attached {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}).Call(page); err != nil {
			c.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}

	if _, err := page.EvalOnNewDocument(hookScript); err != nil {
		c.Close()
		return nil, fmt.Errorf("install hooks: %w", err)
	}
	// the current document predates EvalOnNewDocument
	if _, err := page.Context(ctx).Evaluate(&rod.EvalOptions{JS: "() => " + hookScript, ByValue: true}); err != nil {
		c.logger.WithError(err).Debug("Failed to hook current document")
	}

	if info, err := page.Info(); err == nil {
		c.setURL(info.URL)
	}

	c.start(runCtx)
	return c, nil
}

func firstPage(browser *rod.Browser, attached bool) (*rod.Page, error) {
	if attached {
		pages, err := browser.Pages()
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		if len(pages) > 0 {
			return pages.First(), nil
		}
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

// start follows main-frame navigations and drains the hook queue until Close.
func (c *rodController) start(ctx context.Context) {
	waitNav := c.page.Context(ctx).EachEvent(func(ev *proto.PageFrameNavigated) {
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		c.navigate(entities.NavigationEvent{URL: ev.Frame.URL, Kind: entities.NavigationFull})
	})

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		waitNav()
	}()
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				raw, err := c.eval(ctx, drainScript, nil)
				if err != nil {
					continue
				}
				payload, err := decodeString(raw)
				if err != nil {
					continue
				}
				if err := c.dispatchQueue(payload); err != nil {
					c.logger.WithError(err).Debug("Failed to drain hook queue")
				}
			}
		}
	}()
}

func (c *rodController) eval(ctx context.Context, js string, arg any) ([]byte, error) {
	opts := &rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	}
	if arg != nil {
		opts.JSArgs = []interface{}{arg}
	}
	res, err := c.page.Context(ctx).Evaluate(opts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []byte("null"), nil
	}
	return res.Value.MarshalJSON()
}

func (c *rodController) Document(ctx context.Context) (interfaces.Document, error) {
	if c.page == nil {
		return nil, interfaces.ErrNoDocument
	}
	return capture(ctx, c.eval, scanner.InteractiveSelector)
}

func (c *rodController) Navigate(ctx context.Context, url string) error {
	page := c.page.Context(ctx).Timeout(c.opts.NavigationTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", url, err)
	}
	c.setURL(url)
	if info, err := c.page.Info(); err == nil {
		c.setURL(info.URL)
	}
	return nil
}

func (c *rodController) element(ctx context.Context, targetID string) (*rod.Element, error) {
	el, err := c.page.Context(ctx).Timeout(5 * time.Second).Element(scanner.TargetSelector(targetID))
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", targetID, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("element %s not visible: %w", targetID, err)
	}
	return el, nil
}

func (c *rodController) Click(ctx context.Context, targetID string) error {
	el, err := c.element(ctx, targetID)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (c *rodController) Type(ctx context.Context, targetID string, text string) error {
	el, err := c.element(ctx, targetID)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

// Close stops event handling. A launched browser is closed; an attached one is
// only disconnected.
func (c *rodController) Close() error {
	var closeErr error
	c.once.Do(func() {
		if !c.attached && c.browser != nil {
			if err := c.browser.Close(); err != nil && !isClosedErr(err) {
				closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
		c.cancel()
		c.wg.Wait()
	})
	return closeErr
}
