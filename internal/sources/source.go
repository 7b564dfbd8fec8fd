package sources

import (
	"context"
	"regexp"
	"strconv"
)

// Page is one downloaded chapter page image.
type Page struct {
	Data        []byte
	ContentType string
}

// Source lists and fetches chapters for title URLs on the hosts it serves.
type Source interface {
	// Name identifies the adapter in logs and reports.
	Name() string
	// ListInstallments returns the chapter ordinals currently available at
	// the title URL. An unreachable or unparseable site returns
	// ErrUnavailable.
	ListInstallments(ctx context.Context, titleURL string) ([]float64, error)
	// FetchPages downloads the page images for one chapter in reading
	// order.
	FetchPages(ctx context.Context, titleURL string, ordinal float64) ([]Page, error)
}

// SessionCycler is implemented by adapters holding per-session resources
// that should be torn down and rebuilt periodically during long runs.
type SessionCycler interface {
	RenewSession(ctx context.Context) error
}

var ordinalPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// ParseOrdinal extracts the first chapter number from a label such as
// "Chapter 1090.5" or "/manga/x/chapter-12".
func ParseOrdinal(label string) (float64, bool) {
	match := ordinalPattern.FindString(label)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
