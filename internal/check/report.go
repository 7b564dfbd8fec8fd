package check

import (
	"time"

	"tosho/internal/library"
)

// ChapterOutcome says what happened to one candidate chapter.
type ChapterOutcome string

const (
	OutcomeDownloaded ChapterOutcome = "downloaded"
	OutcomeWaiting    ChapterOutcome = "waiting"
	OutcomePending    ChapterOutcome = "pending"
	OutcomeSkipped    ChapterOutcome = "skipped"
)

// ChapterResult is one chapter's line in the report.
type ChapterResult struct {
	Ordinal float64
	Outcome ChapterOutcome
	// Source is the adapter-facing source URL the chapter came from (or
	// would come from).
	Source string
	// FromBackup marks a chapter served through the fallback path.
	FromBackup bool
	// ReadyAt is set for waiting chapters: when the window expires.
	ReadyAt time.Time
	// Location is the delivered document path, when one exists.
	Location string
	// Err captures why a chapter was skipped.
	Err error
}

// TitleReport aggregates one title's cycle results.
type TitleReport struct {
	Slug           string
	DisplayName    string
	Chapters       []ChapterResult
	SourceFailures []string
	// Aborted is set when a persistence failure stopped the title's
	// remaining work.
	Aborted error
}

// Downloaded counts chapters fetched this cycle.
func (r *TitleReport) Downloaded() int {
	return r.count(OutcomeDownloaded)
}

// Skipped counts chapters that failed and were left for the next cycle.
func (r *TitleReport) Skipped() int {
	return r.count(OutcomeSkipped)
}

// Waiting counts chapters sitting in fallback windows.
func (r *TitleReport) Waiting() int {
	return r.count(OutcomeWaiting)
}

// Pending counts chapters found but not downloaded (list-only runs).
func (r *TitleReport) Pending() int {
	return r.count(OutcomePending)
}

func (r *TitleReport) count(outcome ChapterOutcome) int {
	n := 0
	for _, ch := range r.Chapters {
		if ch.Outcome == outcome {
			n++
		}
	}
	return n
}

// Report is the full result of one check cycle.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Titles     []TitleReport
}

// Downloaded counts chapters fetched across all titles.
func (r *Report) Downloaded() int {
	n := 0
	for i := range r.Titles {
		n += r.Titles[i].Downloaded()
	}
	return n
}

// Failures counts skips, aborts, and source failures across all titles.
func (r *Report) Failures() int {
	n := 0
	for i := range r.Titles {
		n += r.Titles[i].Skipped() + len(r.Titles[i].SourceFailures)
		if r.Titles[i].Aborted != nil {
			n++
		}
	}
	return n
}

// Run converts the report into its check-history row.
func (r *Report) Run() library.CheckRun {
	return library.CheckRun{
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		TitlesChecked:      len(r.Titles),
		ChaptersDownloaded: r.Downloaded(),
		Failures:           r.Failures(),
	}
}
