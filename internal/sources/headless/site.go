package headless

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tosho/internal/logging"
	"tosho/internal/sources"
	"tosho/internal/sources/web"
)

// Renderer produces rendered HTML for a URL. *Browser is the production
// implementation.
type Renderer interface {
	HTML(ctx context.Context, pageURL string) (string, error)
	Renew(ctx context.Context) error
}

// Site scrapes a script-rendered site through a browser.
type Site struct {
	profile  web.Profile
	renderer Renderer
	client   *sources.Client
	logger   *slog.Logger
}

// NewSite builds a browser-backed adapter for the profile's hosts.
func NewSite(profile web.Profile, renderer Renderer, client *sources.Client, logger *slog.Logger) *Site {
	return &Site{
		profile:  profile,
		renderer: renderer,
		client:   client,
		logger:   logging.NewComponentLogger(logger, profile.Name),
	}
}

// Name implements sources.Source.
func (s *Site) Name() string { return s.profile.Name }

// Hosts returns the domains the site's profile claims.
func (s *Site) Hosts() []string { return s.profile.Hosts }

// RenewSession implements sources.SessionCycler.
func (s *Site) RenewSession(ctx context.Context) error {
	return s.renderer.Renew(ctx)
}

// ListInstallments implements sources.Source.
func (s *Site) ListInstallments(ctx context.Context, titleURL string) ([]float64, error) {
	chapters, err := s.chapterLinks(ctx, titleURL)
	if err != nil {
		return nil, err
	}

	ordinals := make([]float64, 0, len(chapters))
	for ordinal := range chapters {
		ordinals = append(ordinals, ordinal)
	}
	sort.Float64s(ordinals)
	return ordinals, nil
}

// FetchPages implements sources.Source. Page images are fetched over plain
// HTTP; only the HTML needs the browser.
func (s *Site) FetchPages(ctx context.Context, titleURL string, ordinal float64) ([]sources.Page, error) {
	chapters, err := s.chapterLinks(ctx, titleURL)
	if err != nil {
		return nil, err
	}

	chapterURL, ok := chapters[ordinal]
	if !ok {
		return nil, fmt.Errorf("chapter %v not listed at %s", ordinal, titleURL)
	}

	doc, base, err := s.render(ctx, chapterURL)
	if err != nil {
		return nil, err
	}

	imageURLs := web.ImageURLs(doc, s.profile, base)
	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("no page images found at %s", chapterURL)
	}

	pages := make([]sources.Page, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		data, contentType, err := s.client.Get(ctx, imageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch page image %s: %w", imageURL, err)
		}
		pages = append(pages, sources.Page{Data: data, ContentType: contentType})
	}

	s.logger.Debug("fetched chapter pages",
		logging.String("url", chapterURL),
		logging.Int("pages", len(pages)))
	return pages, nil
}

func (s *Site) chapterLinks(ctx context.Context, titleURL string) (map[float64]string, error) {
	doc, base, err := s.render(ctx, titleURL)
	if err != nil {
		return nil, err
	}
	return web.ChapterLinks(doc, s.profile, base), nil
}

func (s *Site) render(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	html, err := s.renderer.HTML(ctx, pageURL)
	if err != nil {
		return nil, nil, sources.Unavailable(s.profile.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, sources.Unavailable(s.profile.Name, fmt.Errorf("parse rendered html: %w", err))
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page url: %w", err)
	}
	return doc, base, nil
}
