package web

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tosho/internal/logging"
	"tosho/internal/sources"
)

// Site scrapes chapters according to a Profile.
type Site struct {
	profile Profile
	client  *sources.Client
	logger  *slog.Logger
}

// NewSite builds an adapter for the profile's hosts.
func NewSite(profile Profile, client *sources.Client, logger *slog.Logger) *Site {
	return &Site{
		profile: profile,
		client:  client,
		logger:  logging.NewComponentLogger(logger, profile.Name),
	}
}

// Name implements sources.Source.
func (s *Site) Name() string { return s.profile.Name }

// Hosts returns the domains the site's profile claims.
func (s *Site) Hosts() []string { return s.profile.Hosts }

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

// FetchPages implements sources.Source.
func (s *Site) FetchPages(ctx context.Context, titleURL string, ordinal float64) ([]sources.Page, error) {
	chapters, err := s.chapterLinks(ctx, titleURL)
	if err != nil {
		return nil, err
	}

	chapterURL, ok := chapters[ordinal]
	if !ok {
		return nil, fmt.Errorf("chapter %v not listed at %s", ordinal, titleURL)
	}

	body, _, err := s.client.Get(ctx, chapterURL)
	if err != nil {
		return nil, sources.Unavailable(s.profile.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, sources.Unavailable(s.profile.Name, fmt.Errorf("parse chapter page: %w", err))
	}

	base, err := url.Parse(chapterURL)
	if err != nil {
		return nil, fmt.Errorf("parse chapter url: %w", err)
	}
	imageURLs := ImageURLs(doc, s.profile, base)
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

// chapterLinks maps each listed ordinal to its absolute chapter URL. When a
// site lists an ordinal more than once the first occurrence wins, which on
// newest-first listings is the canonical upload.
func (s *Site) chapterLinks(ctx context.Context, titleURL string) (map[float64]string, error) {
	body, _, err := s.client.Get(ctx, titleURL)
	if err != nil {
		return nil, sources.Unavailable(s.profile.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, sources.Unavailable(s.profile.Name, fmt.Errorf("parse title page: %w", err))
	}

	base, err := url.Parse(titleURL)
	if err != nil {
		return nil, fmt.Errorf("parse title url: %w", err)
	}

	return ChapterLinks(doc, s.profile, base), nil
}

// ChapterLinks extracts ordinal-to-URL mappings from a parsed title page.
// Duplicate ordinals keep their first occurrence.
func ChapterLinks(doc *goquery.Document, profile Profile, base *url.URL) map[float64]string {
	chapters := make(map[float64]string)
	doc.Find(profile.ChapterLink).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ordinal, ok := sources.ParseOrdinal(strings.TrimSpace(sel.Text()))
		if !ok {
			ordinal, ok = sources.ParseOrdinal(href)
		}
		if !ok {
			return
		}
		if _, exists := chapters[ordinal]; exists {
			return
		}
		chapters[ordinal] = resolveURL(base, href)
	})
	return chapters
}

// ImageURLs extracts reader image URLs from a parsed chapter page.
func ImageURLs(doc *goquery.Document, profile Profile, base *url.URL) []string {
	var urls []string
	doc.Find(profile.PageImage).Each(func(_ int, sel *goquery.Selection) {
		var src string
		if profile.ImageAttr != "" {
			src, _ = sel.Attr(profile.ImageAttr)
		}
		if src == "" {
			src, _ = sel.Attr("src")
		}
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		urls = append(urls, resolveURL(base, src))
	})
	return urls
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
