package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tosho/internal/library"
	"tosho/internal/logging"
)

// Action is the outcome of a fallback decision.
type Action int

const (
	// ActionNone means no source currently lists the chapter.
	ActionNone Action = iota
	// ActionFetchPrimary means the primary source lists the chapter.
	ActionFetchPrimary
	// ActionFetchBackup means the waiting period elapsed and the window's
	// backup source should serve the chapter.
	ActionFetchBackup
	// ActionWait means a window is open but the delay has not elapsed.
	ActionWait
)

func (a Action) String() string {
	switch a {
	case ActionFetchPrimary:
		return "fetch-primary"
	case ActionFetchBackup:
		return "fetch-backup"
	case ActionWait:
		return "wait"
	default:
		return "none"
	}
}

// Decision carries the chosen action and the source to act on.
type Decision struct {
	Action Action
	// Source is set for fetch actions.
	Source *library.SourceEntry
	// ReadyAt is set for ActionWait: when the window becomes eligible.
	ReadyAt time.Time
}

// Engine applies the fallback rules against the library store.
type Engine struct {
	store            *library.Store
	defaultDelayDays int
	logger           *slog.Logger
}

// NewEngine builds an engine with the configured default waiting period.
func NewEngine(store *library.Store, defaultDelayDays int, logger *slog.Logger) *Engine {
	if defaultDelayDays < 0 {
		defaultDelayDays = 0
	}
	return &Engine{
		store:            store,
		defaultDelayDays: defaultDelayDays,
		logger:           logging.NewComponentLogger(logger, "fallback"),
	}
}

// Decide resolves one chapter. available must hold the title's sources that
// currently list the chapter, in position order. The engine updates window
// state as a side effect: it clears windows when the primary has caught up
// and opens one the first time a chapter is seen on a backup only.
//
// Callers are expected to have ruled out chapters that already have a
// download record.
func (e *Engine) Decide(ctx context.Context, title *library.Title, ordinal float64, available []library.SourceEntry, now time.Time) (Decision, error) {
	var primary *library.SourceEntry
	var firstBackup *library.SourceEntry
	for i := range available {
		if available[i].IsPrimary() {
			primary = &available[i]
		} else if firstBackup == nil {
			firstBackup = &available[i]
		}
	}

	if primary != nil {
		// The primary always wins, even over an expired window.
		if err := e.store.ClearWindow(ctx, title.ID, ordinal); err != nil {
			return Decision{}, err
		}
		return Decision{Action: ActionFetchPrimary, Source: primary}, nil
	}

	if firstBackup == nil {
		return Decision{Action: ActionNone}, nil
	}

	window, err := e.store.Window(ctx, title.ID, ordinal)
	if err != nil {
		return Decision{}, err
	}

	delay := e.delayFor(title)

	if window == nil {
		if err := e.store.OpenWindow(ctx, title.ID, ordinal, firstBackup.ID, now); err != nil {
			return Decision{}, err
		}
		e.logger.Debug("opened fallback window",
			logging.String("title", title.Slug),
			logging.String("chapter", library.FormatOrdinal(ordinal)),
			logging.Duration("delay", delay))
		return Decision{Action: ActionWait, ReadyAt: now.Add(delay)}, nil
	}

	readyAt := window.OpenedAt.Add(delay)
	if now.Before(readyAt) {
		return Decision{Action: ActionWait, ReadyAt: readyAt}, nil
	}

	source, err := e.windowSource(title, window, firstBackup)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Action: ActionFetchBackup, Source: source}, nil
}

func (e *Engine) delayFor(title *library.Title) time.Duration {
	days := e.defaultDelayDays
	if title.FallbackDelayDays != nil {
		days = *title.FallbackDelayDays
	}
	if days < 0 {
		days = 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// windowSource resolves the window's first-seen backup. When the source list
// changed since the window opened, the first backup still listing the chapter
// takes over.
func (e *Engine) windowSource(title *library.Title, window *library.FallbackWindow, firstBackup *library.SourceEntry) (*library.SourceEntry, error) {
	for i := range title.Sources {
		if title.Sources[i].ID == window.SourceID {
			return &title.Sources[i], nil
		}
	}
	if firstBackup != nil {
		return firstBackup, nil
	}
	return nil, fmt.Errorf("window source %d no longer configured for %s", window.SourceID, title.Slug)
}
