package library

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Status describes where a tracked title sits in the reader's rotation. Only
// titles in StatusReading are examined during a check cycle.
type Status string

const (
	StatusReading   Status = "reading"
	StatusOnHold    Status = "on-hold"
	StatusDropped   Status = "dropped"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a user-supplied status string.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusReading:
		return StatusReading, nil
	case StatusOnHold:
		return StatusOnHold, nil
	case StatusDropped:
		return StatusDropped, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown status %q (expected reading, on-hold, dropped, or completed)", value)
	}
}

// Title is a tracked series with an ordered list of sources.
type Title struct {
	ID          int64
	Slug        string
	DisplayName string
	Status      Status
	// FallbackDelayDays overrides the configured default when non-nil.
	FallbackDelayDays *int
	Sources           []SourceEntry
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Primary returns the position-zero source, or nil when the title has no
// sources configured.
func (t *Title) Primary() *SourceEntry {
	for i := range t.Sources {
		if t.Sources[i].Position == 0 {
			return &t.Sources[i]
		}
	}
	return nil
}

// Backups returns the non-primary sources in position order.
func (t *Title) Backups() []SourceEntry {
	var backups []SourceEntry
	for _, src := range t.Sources {
		if src.Position > 0 {
			backups = append(backups, src)
		}
	}
	return backups
}

// SourceEntry is one location a title can be fetched from. Position 0 is the
// primary source; higher positions are backups in preference order.
type SourceEntry struct {
	ID       int64
	TitleID  int64
	Position int
	URL      string
}

// IsPrimary reports whether the entry is the title's primary source.
func (e SourceEntry) IsPrimary() bool { return e.Position == 0 }

// DownloadRecord marks a chapter as permanently handled for a title.
type DownloadRecord struct {
	TitleID      int64
	Ordinal      float64
	SourceID     int64
	Location     string
	DownloadedAt time.Time
}

// FallbackWindow tracks a chapter seen only on a backup source. The window
// opens when the chapter is first observed and the chapter becomes eligible
// for backup download once the title's fallback delay has elapsed.
type FallbackWindow struct {
	TitleID  int64
	Ordinal  float64
	SourceID int64
	OpenedAt time.Time
}

// Promotion captures the window state consumed by PromoteWindow so a failed
// download can restore it.
type Promotion struct {
	SourceID int64
	OpenedAt time.Time
}

// CheckRun summarizes one completed check cycle.
type CheckRun struct {
	ID                 int64
	StartedAt          time.Time
	FinishedAt         time.Time
	TitlesChecked      int
	ChaptersDownloaded int
	Failures           int
	Notes              string
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the stable key a title is addressed by on the command line.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// FormatOrdinal renders a chapter number the way it appears in filenames and
// tables: integral ordinals lose the fraction, others keep it.
func FormatOrdinal(ordinal float64) string {
	if ordinal == math.Trunc(ordinal) {
		return strconv.FormatFloat(ordinal, 'f', 0, 64)
	}
	return strconv.FormatFloat(ordinal, 'f', -1, 64)
}

// PaddedOrdinal is FormatOrdinal with the integral part zero-padded to four
// digits so lexical and numeric ordering agree.
func PaddedOrdinal(ordinal float64) string {
	whole, frac, _ := strings.Cut(FormatOrdinal(ordinal), ".")
	for len(whole) < 4 {
		whole = "0" + whole
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
