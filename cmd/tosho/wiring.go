package main

import (
	"log/slog"
	"time"

	"tosho/internal/config"
	"tosho/internal/sources"
	"tosho/internal/sources/headless"
	"tosho/internal/sources/mangadex"
	"tosho/internal/sources/web"
)

// buildSources assembles the adapter registry: one scraping site per builtin
// profile, the MangaDex API client, and a headless-browser generic adapter as
// the fallback for unclaimed hosts. The returned closer shuts the browser
// down; the browser only launches once the fallback actually renders a page.
func buildSources(cfg *config.Config, logger *slog.Logger) (*sources.Registry, func()) {
	client := sources.NewClient(sources.ClientOptions{
		Timeout:   time.Duration(cfg.Check.FetchTimeoutSeconds) * time.Second,
		RateLimit: time.Duration(cfg.Check.RateLimitMillis) * time.Millisecond,
	})

	registry := sources.NewRegistry()
	for _, profile := range web.BuiltinProfiles() {
		site := web.NewSite(profile, client, logger)
		for _, host := range site.Hosts() {
			registry.Register(host, site)
		}
	}
	registry.Register(mangadex.Host, mangadex.NewSite(client, logger))

	browser := headless.NewBrowser(headless.BrowserOptions{
		Bin:        cfg.Headless.BrowserBin,
		NavTimeout: time.Duration(cfg.Headless.NavTimeoutSeconds) * time.Second,
		Settle:     time.Duration(cfg.Headless.SettleMillis) * time.Millisecond,
	}, logger)
	registry.SetFallback(headless.NewSite(web.GenericProfile(), browser, client, logger))

	return registry, func() { _ = browser.Close() }
}
