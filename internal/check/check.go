package check

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"tosho/internal/assemble"
	"tosho/internal/deliver"
	"tosho/internal/fallback"
	"tosho/internal/library"
	"tosho/internal/logging"
	"tosho/internal/sources"
)

// Orchestrator drives one check cycle end to end.
type Orchestrator struct {
	store      *library.Store
	engine     *fallback.Engine
	registry   *sources.Registry
	assembler  assemble.Assembler
	deliverer  deliver.Deliverer
	outputDir  string
	renewEvery int
	logger     *slog.Logger
	now        func() time.Time

	// fetchCounts tracks installments fetched per source within one run, so
	// session renewal fires per strategy rather than across all adapters.
	fetchCounts map[sources.Source]int
}

// Config wires an Orchestrator.
type Config struct {
	Store     *library.Store
	Engine    *fallback.Engine
	Registry  *sources.Registry
	Assembler assemble.Assembler
	Deliverer deliver.Deliverer
	// OutputDir is where assembled documents are written.
	OutputDir string
	// RenewEvery recycles session-backed sources after this many fetches.
	RenewEvery int
	Logger     *slog.Logger
	// Now overrides the clock; tests use it to step through fallback
	// windows.
	Now func() time.Time
}

// Options scope a single run.
type Options struct {
	// Slug restricts the cycle to one title. Explicitly named titles are
	// checked regardless of status.
	Slug string
	// From ignores chapters below the given ordinal.
	From *float64
	// ListOnly reports pending chapters without downloading them. Window
	// bookkeeping still happens.
	ListOnly bool
}

// New builds an orchestrator.
func New(cfg Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.RenewEvery <= 0 {
		cfg.RenewEvery = 3
	}
	return &Orchestrator{
		store:      cfg.Store,
		engine:     cfg.Engine,
		registry:   cfg.Registry,
		assembler:  cfg.Assembler,
		deliverer:  cfg.Deliverer,
		outputDir:  cfg.OutputDir,
		renewEvery: cfg.RenewEvery,
		logger:     logging.NewComponentLogger(cfg.Logger, "check"),
		now:        now,
	}
}

// Run executes a cycle and records it in the check history.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{StartedAt: o.now()}
	o.fetchCounts = make(map[sources.Source]int)

	titles, err := o.selectTitles(ctx, opts)
	if err != nil {
		return nil, err
	}

	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Titles = append(report.Titles, o.checkTitle(ctx, title, opts))
	}

	report.FinishedAt = o.now()
	if err := o.store.RecordCheck(ctx, report.Run()); err != nil {
		o.logger.Warn("failed to record check history", logging.Error(err))
	}
	return report, nil
}

func (o *Orchestrator) selectTitles(ctx context.Context, opts Options) ([]*library.Title, error) {
	if opts.Slug != "" {
		title, err := o.store.TitleBySlug(ctx, opts.Slug)
		if err != nil {
			return nil, err
		}
		return []*library.Title{title}, nil
	}
	return o.store.Titles(ctx, library.StatusReading)
}

func (o *Orchestrator) checkTitle(ctx context.Context, title *library.Title, opts Options) TitleReport {
	tr := TitleReport{Slug: title.Slug, DisplayName: title.DisplayName}

	listings := o.listSources(ctx, title, &tr)

	recorded, err := o.store.RecordedOrdinals(ctx, title.ID)
	if err != nil {
		tr.Aborted = err
		return tr
	}
	recordedSet := make(map[float64]struct{}, len(recorded))
	for _, ordinal := range recorded {
		recordedSet[ordinal] = struct{}{}
	}

	candidates := candidateOrdinals(listings, recordedSet, opts.From)

	for _, ordinal := range candidates {
		available := availableEntries(title, listings, ordinal)

		decision, err := o.engine.Decide(ctx, title, ordinal, available, o.now())
		if err != nil {
			if errors.Is(err, library.ErrPersistence) {
				tr.Aborted = err
				return tr
			}
			tr.Chapters = append(tr.Chapters, ChapterResult{Ordinal: ordinal, Outcome: OutcomeSkipped, Err: err})
			continue
		}

		switch decision.Action {
		case fallback.ActionWait:
			tr.Chapters = append(tr.Chapters, ChapterResult{
				Ordinal: ordinal,
				Outcome: OutcomeWaiting,
				ReadyAt: decision.ReadyAt,
			})
		case fallback.ActionFetchPrimary, fallback.ActionFetchBackup:
			fromBackup := decision.Action == fallback.ActionFetchBackup
			if opts.ListOnly {
				tr.Chapters = append(tr.Chapters, ChapterResult{
					Ordinal:    ordinal,
					Outcome:    OutcomePending,
					Source:     decision.Source.URL,
					FromBackup: fromBackup,
				})
				continue
			}

			result, err := o.download(ctx, title, ordinal, decision.Source, fromBackup)
			if err != nil {
				tr.Aborted = err
				tr.Chapters = append(tr.Chapters, result)
				return tr
			}
			tr.Chapters = append(tr.Chapters, result)
		}
	}
	return tr
}

// listSources queries every source of a title. A failing source contributes
// an empty listing and a report entry instead of stopping the cycle.
func (o *Orchestrator) listSources(ctx context.Context, title *library.Title, tr *TitleReport) map[int64]map[float64]struct{} {
	listings := make(map[int64]map[float64]struct{}, len(title.Sources))
	for _, entry := range title.Sources {
		src, err := o.registry.Resolve(entry.URL)
		if err != nil {
			o.logger.Warn("no adapter for source",
				logging.String("title", title.Slug),
				logging.String("url", entry.URL),
				logging.Error(err))
			tr.SourceFailures = append(tr.SourceFailures, entry.URL)
			continue
		}

		ordinals, err := src.ListInstallments(ctx, entry.URL)
		if err != nil {
			o.logger.Warn("source listing failed",
				logging.String("title", title.Slug),
				logging.String("source", src.Name()),
				logging.Error(err))
			tr.SourceFailures = append(tr.SourceFailures, entry.URL)
			continue
		}

		set := make(map[float64]struct{}, len(ordinals))
		for _, ordinal := range ordinals {
			set[ordinal] = struct{}{}
		}
		listings[entry.ID] = set
	}
	return listings
}

func (o *Orchestrator) download(ctx context.Context, title *library.Title, ordinal float64, entry *library.SourceEntry, fromBackup bool) (ChapterResult, error) {
	result := ChapterResult{Ordinal: ordinal, Source: entry.URL, FromBackup: fromBackup}

	src, err := o.registry.Resolve(entry.URL)
	if err != nil {
		result.Outcome = OutcomeSkipped
		result.Err = err
		return result, nil
	}

	var promo library.Promotion
	if fromBackup {
		promo, err = o.store.PromoteWindow(ctx, title.ID, ordinal, "", o.now())
		if err != nil {
			if errors.Is(err, library.ErrDuplicateRecord) {
				result.Outcome = OutcomeSkipped
				result.Err = err
				return result, nil
			}
			result.Outcome = OutcomeSkipped
			result.Err = err
			return result, err
		}
	}

	revert := func() error {
		if !fromBackup {
			return nil
		}
		if err := o.store.RevertPromotion(ctx, title.ID, ordinal, promo); err != nil {
			o.logger.Error("failed to revert promotion",
				logging.String("title", title.Slug),
				logging.String("chapter", library.FormatOrdinal(ordinal)),
				logging.Error(err))
			return err
		}
		return nil
	}

	outPath := filepath.Join(o.outputDir, assemble.OutputName(title.Slug, ordinal, o.assembler.Format()))
	if err := o.fetchAndAssemble(ctx, src, title, entry.URL, ordinal, outPath); err != nil {
		result.Outcome = OutcomeSkipped
		result.Err = err
		return result, revert()
	}

	if fromBackup {
		if err := o.store.SetRecordLocation(ctx, title.ID, ordinal, outPath); err != nil {
			result.Outcome = OutcomeSkipped
			result.Err = err
			return result, err
		}
	} else {
		err := o.store.CommitRecord(ctx, library.DownloadRecord{
			TitleID:  title.ID,
			Ordinal:  ordinal,
			SourceID: entry.ID,
			Location: outPath,
		})
		if errors.Is(err, library.ErrDuplicateRecord) {
			// The engine ruled out recorded chapters before deciding, so a
			// duplicate here means something else wrote the record mid-cycle.
			o.logger.Error("chapter was already recorded",
				logging.String("title", title.Slug),
				logging.String("chapter", library.FormatOrdinal(ordinal)),
				logging.Error(err))
			result.Outcome = OutcomeSkipped
			result.Err = err
			return result, nil
		}
		if err != nil {
			result.Outcome = OutcomeSkipped
			result.Err = err
			return result, err
		}
	}

	result.Outcome = OutcomeDownloaded
	result.Location = outPath

	receipt, err := o.deliverer.Deliver(ctx, outPath)
	if err != nil {
		// The record stays committed; the document is on disk for manual
		// handling.
		o.logger.Warn("delivery failed",
			logging.String("title", title.Slug),
			logging.String("chapter", library.FormatOrdinal(ordinal)),
			logging.Error(err))
		return result, nil
	}
	if receipt.Location != outPath {
		result.Location = receipt.Location
		if err := o.store.SetRecordLocation(ctx, title.ID, ordinal, receipt.Location); err != nil {
			o.logger.Warn("failed to update record location", logging.Error(err))
		}
	}

	o.logger.Info("chapter downloaded",
		logging.String("title", title.Slug),
		logging.String("chapter", library.FormatOrdinal(ordinal)),
		logging.Bool("fallback", fromBackup),
		logging.String("via", o.deliverer.Name()))
	return result, nil
}

// fetchAndAssemble recycles a session-backed source once it has served
// renewEvery installments this run, then fetches the pages and assembles the
// document. A fetch or assembly failure is retried once immediately; the
// second failure gives up on the chapter.
func (o *Orchestrator) fetchAndAssemble(ctx context.Context, src sources.Source, title *library.Title, titleURL string, ordinal float64, outPath string) error {
	if cycler, ok := src.(sources.SessionCycler); ok && o.fetchCounts[src] >= o.renewEvery {
		if err := cycler.RenewSession(ctx); err != nil {
			o.logger.Warn("session renewal failed",
				logging.String("source", src.Name()),
				logging.Error(err))
		}
		o.fetchCounts[src] = 0
	}

	attempt := func() error {
		pages, err := src.FetchPages(ctx, titleURL, ordinal)
		if err != nil {
			return err
		}
		return o.assembler.Assemble(assemble.Chapter{
			TitleName: title.DisplayName,
			TitleSlug: title.Slug,
			Ordinal:   ordinal,
			Pages:     pages,
		}, outPath)
	}

	if err := attempt(); err != nil {
		o.logger.Warn("chapter download failed, retrying",
			logging.String("title", title.Slug),
			logging.String("chapter", library.FormatOrdinal(ordinal)),
			logging.Error(err))
		if err := attempt(); err != nil {
			return err
		}
	}

	o.fetchCounts[src]++
	return nil
}

func candidateOrdinals(listings map[int64]map[float64]struct{}, recorded map[float64]struct{}, from *float64) []float64 {
	seen := make(map[float64]struct{})
	var candidates []float64
	for _, set := range listings {
		for ordinal := range set {
			if _, done := recorded[ordinal]; done {
				continue
			}
			if from != nil && ordinal < *from {
				continue
			}
			if _, dup := seen[ordinal]; dup {
				continue
			}
			seen[ordinal] = struct{}{}
			candidates = append(candidates, ordinal)
		}
	}
	sort.Float64s(candidates)
	return candidates
}

func availableEntries(title *library.Title, listings map[int64]map[float64]struct{}, ordinal float64) []library.SourceEntry {
	var available []library.SourceEntry
	for _, entry := range title.Sources {
		set, ok := listings[entry.ID]
		if !ok {
			continue
		}
		if _, listed := set[ordinal]; listed {
			available = append(available, entry)
		}
	}
	return available
}
