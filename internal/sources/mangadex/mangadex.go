package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"tosho/internal/logging"
	"tosho/internal/sources"
)

const (
	defaultAPIBase = "https://api.mangadex.org"
	feedPageSize   = 500
	// Hosts the adapter claims in the registry.
	Host = "mangadex.org"
)

// Site is the MangaDex API adapter.
type Site struct {
	client   *sources.Client
	apiBase  string
	language string
	logger   *slog.Logger
}

// Option customizes the adapter.
type Option func(*Site)

// WithAPIBase points the adapter at a different API endpoint. Tests use this
// to target a local server.
func WithAPIBase(base string) Option {
	return func(s *Site) { s.apiBase = strings.TrimRight(base, "/") }
}

// WithLanguage restricts the feed to one translated language.
func WithLanguage(lang string) Option {
	return func(s *Site) { s.language = lang }
}

// NewSite builds the adapter.
func NewSite(client *sources.Client, logger *slog.Logger, opts ...Option) *Site {
	site := &Site{
		client:   client,
		apiBase:  defaultAPIBase,
		language: "en",
		logger:   logging.NewComponentLogger(logger, "mangadex"),
	}
	for _, opt := range opts {
		opt(site)
	}
	return site
}

// Name implements sources.Source.
func (s *Site) Name() string { return "mangadex" }

// Hosts returns the domains the adapter claims.
func (s *Site) Hosts() []string { return []string{Host} }

type feedResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Chapter string `json:"chapter"`
		} `json:"attributes"`
	} `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type atHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash string   `json:"hash"`
		Data []string `json:"data"`
	} `json:"chapter"`
}

// ListInstallments implements sources.Source.
func (s *Site) ListInstallments(ctx context.Context, titleURL string) ([]float64, error) {
	chapters, err := s.chapterIndex(ctx, titleURL)
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
	chapters, err := s.chapterIndex(ctx, titleURL)
	if err != nil {
		return nil, err
	}

	chapterID, ok := chapters[ordinal]
	if !ok {
		return nil, fmt.Errorf("chapter %v not listed for %s", ordinal, titleURL)
	}

	body, _, err := s.client.Get(ctx, s.apiBase+"/at-home/server/"+chapterID)
	if err != nil {
		return nil, sources.Unavailable(s.Name(), err)
	}
	var atHome atHomeResponse
	if err := json.Unmarshal(body, &atHome); err != nil {
		return nil, sources.Unavailable(s.Name(), fmt.Errorf("decode at-home response: %w", err))
	}
	if atHome.BaseURL == "" || atHome.Chapter.Hash == "" {
		return nil, sources.Unavailable(s.Name(), fmt.Errorf("incomplete at-home response for chapter %s", chapterID))
	}

	pages := make([]sources.Page, 0, len(atHome.Chapter.Data))
	for _, file := range atHome.Chapter.Data {
		imageURL := fmt.Sprintf("%s/data/%s/%s", atHome.BaseURL, atHome.Chapter.Hash, file)
		data, contentType, err := s.client.Get(ctx, imageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch page %s: %w", file, err)
		}
		pages = append(pages, sources.Page{Data: data, ContentType: contentType})
	}

	s.logger.Debug("fetched chapter pages",
		logging.String("chapter", chapterID),
		logging.Int("pages", len(pages)))
	return pages, nil
}

// chapterIndex walks the feed and maps each ordinal to its chapter ID. When
// multiple uploads carry the same chapter number the first feed entry wins.
func (s *Site) chapterIndex(ctx context.Context, titleURL string) (map[float64]string, error) {
	mangaID, err := MangaID(titleURL)
	if err != nil {
		return nil, err
	}

	chapters := make(map[float64]string)
	for offset := 0; ; {
		feedURL := fmt.Sprintf(
			"%s/manga/%s/feed?limit=%d&offset=%d&translatedLanguage[]=%s&order[chapter]=asc",
			s.apiBase, mangaID, feedPageSize, offset, url.QueryEscape(s.language),
		)
		body, _, err := s.client.Get(ctx, feedURL)
		if err != nil {
			return nil, sources.Unavailable(s.Name(), err)
		}

		var feed feedResponse
		if err := json.Unmarshal(body, &feed); err != nil {
			return nil, sources.Unavailable(s.Name(), fmt.Errorf("decode feed: %w", err))
		}

		for _, entry := range feed.Data {
			ordinal, ok := sources.ParseOrdinal(entry.Attributes.Chapter)
			if !ok {
				continue
			}
			if _, exists := chapters[ordinal]; exists {
				continue
			}
			chapters[ordinal] = entry.ID
		}

		offset += len(feed.Data)
		if len(feed.Data) == 0 || offset >= feed.Total {
			break
		}
	}
	return chapters, nil
}

// MangaID extracts the manga UUID from a MangaDex title URL.
func MangaID(titleURL string) (string, error) {
	parsed, err := url.Parse(titleURL)
	if err != nil {
		return "", fmt.Errorf("parse title url: %w", err)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, part := range parts {
		if part == "title" && i+1 < len(parts) {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("no manga id in %q", titleURL)
}
