package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ai_registry/application/scanner"
	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// bindingName is the page function the hook script reports through.
const bindingName = "__aiRegistryBinding"

// Options configures both browser controllers.
type Options struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	Logger            *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 720
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetOutput(io.Discard)
	}
	return o
}

type browserController struct {
	*events

	pw         *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext
	page       playwright.Page
	pages      []playwright.Page
	pagesMutex sync.Mutex
	opts       Options
	logger     *logrus.Logger
}

// NewBrowserController - launches Chromium through playwright
func NewBrowserController(opts Options) (interfaces.BrowserController, error) {
	opts = opts.withDefaults()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-popup-blocking",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-infobars",
			"--disable-notifications",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
		BypassCSP:         playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	controller := &browserController{
		events:  newEvents(opts.Logger),
		pw:      pw,
		browser: browser,
		context: context,
		opts:    opts,
		logger:  opts.Logger,
	}

	if err := context.ExposeFunction(bindingName, controller.onBinding); err != nil {
		controller.Close()
		return nil, fmt.Errorf("failed to expose hook binding: %w", err)
	}
	if err := context.AddInitScript(playwright.Script{Content: playwright.String(hookScript)}); err != nil {
		controller.Close()
		return nil, fmt.Errorf("failed to install hooks: %w", err)
	}

	context.OnPage(func(newPage playwright.Page) {
		controller.adopt(newPage)
	})

	page, err := context.NewPage()
	if err != nil {
		controller.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	controller.adopt(page)

	return controller, nil
}

// adopt makes newPage the current page and wires its events. OnPage also fires
// for pages created through NewPage, so adoption is idempotent.
func (b *browserController) adopt(newPage playwright.Page) {
	b.pagesMutex.Lock()
	defer b.pagesMutex.Unlock()

	for _, p := range b.pages {
		if p == newPage {
			return
		}
	}
	b.pages = append(b.pages, newPage)
	b.page = newPage

	newPage.OnDialog(func(dialog playwright.Dialog) {
		dialog.Accept()
	})

	newPage.OnDOMContentLoaded(func(p playwright.Page) {
		if b.currentPage() != p {
			return
		}
		b.navigate(entities.NavigationEvent{URL: p.URL(), Kind: entities.NavigationFull})
	})

	newPage.OnClose(func(closedPage playwright.Page) {
		b.pagesMutex.Lock()
		defer b.pagesMutex.Unlock()

		for i, p := range b.pages {
			if p == closedPage {
				b.pages = append(b.pages[:i], b.pages[i+1:]...)
				break
			}
		}

		if b.page == closedPage {
			b.page = nil
			if len(b.pages) > 0 {
				b.page = b.pages[0]
			}
		}
	})
}

func (b *browserController) currentPage() playwright.Page {
	b.pagesMutex.Lock()
	defer b.pagesMutex.Unlock()
	return b.page
}

// onBinding receives hook events. It runs on the driver's dispatch goroutine and
// must not call back into the page.
func (b *browserController) onBinding(args ...interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	payload, ok := args[0].(string)
	if !ok {
		return nil
	}
	if err := b.dispatch([]byte(payload)); err != nil {
		b.logger.WithError(err).Debug("Dropped hook event")
	}
	return nil
}

func (b *browserController) eval(page playwright.Page) evalFunc {
	return func(ctx context.Context, js string, arg any) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := page.Evaluate(js, arg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}
}

// Document - captures the current page as a committable snapshot
func (b *browserController) Document(ctx context.Context) (interfaces.Document, error) {
	page := b.currentPage()
	if page == nil || page.IsClosed() {
		return nil, interfaces.ErrNoDocument
	}
	return capture(ctx, b.eval(page), scanner.InteractiveSelector)
}

// CurrentURL - returns the URL of the current page
func (b *browserController) CurrentURL() string {
	page := b.currentPage()
	if page == nil {
		return b.events.CurrentURL()
	}
	return page.URL()
}

// Navigate - navigates to the specified URL
func (b *browserController) Navigate(ctx context.Context, url string) error {
	page := b.currentPage()
	if page == nil {
		return interfaces.ErrNoDocument
	}

	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(b.opts.NavigationTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	b.setURL(page.URL())
	return nil
}

// Click - clicks on the element carrying targetID
func (b *browserController) Click(ctx context.Context, targetID string) error {
	page := b.currentPage()
	if page == nil {
		return interfaces.ErrNoDocument
	}

	locator := page.Locator(scanner.TargetSelector(targetID)).First()

	err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		return fmt.Errorf("element %s not found or not visible: %w", targetID, err)
	}

	if err := locator.Click(); err != nil {
		return err
	}

	page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(5000),
	})
	return nil
}

// Type - replaces the value of the input carrying targetID
func (b *browserController) Type(ctx context.Context, targetID string, text string) error {
	page := b.currentPage()
	if page == nil {
		return interfaces.ErrNoDocument
	}

	locator := page.Locator(scanner.TargetSelector(targetID)).First()

	err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		return fmt.Errorf("input field %s not found: %w", targetID, err)
	}

	return locator.Fill(text)
}

// Close - closes the browser and stops the driver
func (b *browserController) Close() error {
	var closeErr error

	if b.context != nil {
		if err := b.context.Close(); err != nil && !isClosedErr(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		b.context = nil
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil && !isClosedErr(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to close browser: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
		b.browser = nil
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("failed to stop playwright: %w", err)
		}
		b.pw = nil
	}

	return closeErr
}

func isClosedErr(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}
