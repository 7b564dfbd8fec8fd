package headless

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"tosho/internal/logging"
)

// BrowserOptions tunes the managed Chromium instance.
type BrowserOptions struct {
	// Bin is the browser executable. Empty lets the launcher locate one.
	Bin string
	// NavTimeout bounds a single page navigation.
	NavTimeout time.Duration
	// Settle is how long to wait after load for scripts to populate the
	// reader.
	Settle time.Duration
}

// Browser owns a lazily launched Chromium session.
type Browser struct {
	opts   BrowserOptions
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowser prepares a browser handle without launching anything yet.
func NewBrowser(opts BrowserOptions, logger *slog.Logger) *Browser {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 45 * time.Second
	}
	return &Browser{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "headless"),
	}
}

// HTML navigates to a URL and returns the rendered document.
func (b *Browser) HTML(ctx context.Context, pageURL string) (string, error) {
	browser, err := b.ensure()
	if err != nil {
		return "", err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("open page %s: %w", pageURL, err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(b.opts.NavTimeout)
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", pageURL, err)
	}
	if b.opts.Settle > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(b.opts.Settle):
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html %s: %w", pageURL, err)
	}
	return html, nil
}

// Renew tears the current browser down; the next navigation launches a fresh
// one with clean cookies and memory.
func (b *Browser) Renew(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	b.logger.Debug("browser session renewed")
	return nil
}

// Close shuts the browser down for good.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	launch := launcher.New().Headless(true)
	if b.opts.Bin != "" {
		launch = launch.Bin(b.opts.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	b.browser = browser
	return browser, nil
}
