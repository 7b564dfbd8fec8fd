package check_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"tosho/internal/assemble"
	"tosho/internal/check"
	"tosho/internal/deliver"
	"tosho/internal/fallback"
	"tosho/internal/library"
	"tosho/internal/logging"
	"tosho/internal/sources"
	"tosho/internal/testsupport"
)

type fakeSource struct {
	name       string
	listings   map[string][]float64
	listErr    error
	fetchFails map[float64]int
	fetched    []float64
	renewals   int
	// beforeFetch runs at the top of every FetchPages call, letting tests
	// mutate store state mid-download.
	beforeFetch func(ordinal float64)
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) ListInstallments(_ context.Context, titleURL string) ([]float64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings[titleURL], nil
}

func (f *fakeSource) FetchPages(_ context.Context, _ string, ordinal float64) ([]sources.Page, error) {
	if f.beforeFetch != nil {
		f.beforeFetch(ordinal)
	}
	if remaining := f.fetchFails[ordinal]; remaining > 0 {
		f.fetchFails[ordinal] = remaining - 1
		return nil, fmt.Errorf("fetch chapter %v: connection reset", ordinal)
	}
	f.fetched = append(f.fetched, ordinal)
	return []sources.Page{{Data: []byte("page"), ContentType: "image/png"}}, nil
}

// cyclingSource adds session renewal to fakeSource.
type cyclingSource struct {
	fakeSource
}

func (c *cyclingSource) RenewSession(context.Context) error {
	c.renewals++
	return nil
}

// stubAssembler writes a marker file so delivery has something to move.
type stubAssembler struct{}

func (stubAssembler) Format() string { return "pdf" }

func (stubAssembler) Assemble(_ assemble.Chapter, outputPath string) error {
	return os.WriteFile(outputPath, []byte("doc"), 0o644)
}

// flakyAssembler fails its first failures calls, then writes the marker file.
type flakyAssembler struct {
	failures int
	calls    int
}

func (a *flakyAssembler) Format() string { return "pdf" }

func (a *flakyAssembler) Assemble(_ assemble.Chapter, outputPath string) error {
	a.calls++
	if a.failures > 0 {
		a.failures--
		return fmt.Errorf("%w: corrupt page stream", assemble.ErrAssembly)
	}
	return os.WriteFile(outputPath, []byte("doc"), 0o644)
}

type failingDeliverer struct{}

func (failingDeliverer) Name() string { return "failing" }

func (failingDeliverer) Deliver(context.Context, string) (deliver.Receipt, error) {
	return deliver.Receipt{}, fmt.Errorf("%w: smtp refused", deliver.ErrDelivery)
}

type testEnv struct {
	store    *library.Store
	registry *sources.Registry
	orch     *check.Orchestrator
	now      time.Time
}

func newEnv(t *testing.T, renewEvery int, deliverer deliver.Deliverer) *testEnv {
	t.Helper()
	return newEnvWith(t, renewEvery, deliverer, stubAssembler{})
}

func newEnvWith(t *testing.T, renewEvery int, deliverer deliver.Deliverer, assembler assemble.Assembler) *testEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	registry := sources.NewRegistry()

	if deliverer == nil {
		deliverer = deliver.NewLocal(cfg.Paths.DownloadDir)
	}

	env := &testEnv{
		store:    store,
		registry: registry,
		now:      time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC),
	}
	env.orch = check.New(check.Config{
		Store:      store,
		Engine:     fallback.NewEngine(store, 2, logging.NewNop()),
		Registry:   registry,
		Assembler:  assembler,
		Deliverer:  deliverer,
		OutputDir:  cfg.Paths.DownloadDir,
		RenewEvery: renewEvery,
		Logger:     logging.NewNop(),
		Now:        func() time.Time { return env.now },
	})
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.now = env.now.Add(d)
}

const (
	primaryURL = "https://primary.example/manga"
	backupURL  = "https://backup.example/manga"
)

func (env *testEnv) addTitle(t *testing.T) *library.Title {
	t.Helper()
	return testsupport.AddTitle(t, env.store, "Test Manga", primaryURL, backupURL)
}

func TestRunDownloadsInAscendingOrder(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	primary := &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {3, 1, 2}},
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Downloaded(); got != 3 {
		t.Fatalf("downloaded = %d, want 3", got)
	}
	want := []float64{1, 2, 3}
	if len(primary.fetched) != len(want) {
		t.Fatalf("fetched = %v, want %v", primary.fetched, want)
	}
	for i := range want {
		if primary.fetched[i] != want[i] {
			t.Fatalf("fetched = %v, want ascending %v", primary.fetched, want)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	primary := &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1, 2}},
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	if _, err := env.orch.Run(context.Background(), check.Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := report.Downloaded(); got != 0 {
		t.Fatalf("second run downloaded = %d, want 0", got)
	}
	if len(primary.fetched) != 2 {
		t.Fatalf("total fetches = %d, want 2", len(primary.fetched))
	}
}

func TestListingFailureTreatedAsEmpty(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	env.registry.Register("primary.example", &fakeSource{
		name:    "primary",
		listErr: sources.Unavailable("primary", errors.New("timeout")),
	})
	env.registry.Register("backup.example", &fakeSource{
		name:     "backup",
		listings: map[string][]float64{backupURL: {9}},
	})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tr := report.Titles[0]
	if len(tr.SourceFailures) != 1 || tr.SourceFailures[0] != primaryURL {
		t.Fatalf("source failures = %v", tr.SourceFailures)
	}
	// Chapter 9 is backup-only, so a window opens and nothing downloads.
	if tr.Waiting() != 1 {
		t.Fatalf("waiting = %d, want 1", tr.Waiting())
	}
	if report.Downloaded() != 0 {
		t.Fatalf("downloaded = %d, want 0", report.Downloaded())
	}
}

func TestFromFloorSkipsOldChapters(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	primary := &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1, 2, 3, 4, 5}},
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	from := 4.0
	report, err := env.orch.Run(context.Background(), check.Options{From: &from})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Downloaded(); got != 2 {
		t.Fatalf("downloaded = %d, want 2 (chapters 4 and 5)", got)
	}
	if len(primary.fetched) != 2 || primary.fetched[0] != 4 || primary.fetched[1] != 5 {
		t.Fatalf("fetched = %v", primary.fetched)
	}
}

func TestFetchRetriesOnceThenSkips(t *testing.T) {
	env := newEnv(t, 3, nil)
	title := env.addTitle(t)

	primary := &fakeSource{
		name:       "primary",
		listings:   map[string][]float64{primaryURL: {1}},
		fetchFails: map[float64]int{1: 2}, // both attempts fail
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	tr := report.Titles[0]
	if tr.Skipped() != 1 {
		t.Fatalf("skipped = %d, want 1", tr.Skipped())
	}

	has, err := env.store.HasRecord(context.Background(), title.ID, 1)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if has {
		t.Fatal("skipped chapter must not be recorded")
	}

	// Next run retries the chapter and succeeds.
	report, err = env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Downloaded() != 1 {
		t.Fatalf("second run downloaded = %d, want 1", report.Downloaded())
	}
}

func TestFetchRetrySucceedsOnSecondAttempt(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	primary := &fakeSource{
		name:       "primary",
		listings:   map[string][]float64{primaryURL: {1}},
		fetchFails: map[float64]int{1: 1}, // first attempt fails
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Downloaded() != 1 {
		t.Fatalf("downloaded = %d, want 1", report.Downloaded())
	}
}

func TestSessionRenewalEveryThreeFetches(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	primary := &cyclingSource{fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1, 2, 3, 4, 5, 6, 7}},
	}}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Downloaded() != 7 {
		t.Fatalf("downloaded = %d, want 7", report.Downloaded())
	}
	// Renewal happens before the 4th and 7th fetches; no trailing renewal
	// after the last chapter.
	if primary.renewals != 2 {
		t.Fatalf("renewals = %d, want 2", primary.renewals)
	}
}

func TestAssemblyFailureIsRetriedOnce(t *testing.T) {
	assembler := &flakyAssembler{failures: 1}
	env := newEnvWith(t, 3, nil, assembler)
	env.addTitle(t)

	primary := &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1}},
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Downloaded() != 1 {
		t.Fatalf("downloaded = %d, want 1 after retried assembly", report.Downloaded())
	}
	if assembler.calls != 2 {
		t.Fatalf("assembler calls = %d, want 2", assembler.calls)
	}
	// The retry repeats the whole fetch, not just the assembly.
	if len(primary.fetched) != 2 {
		t.Fatalf("fetches = %v, want the chapter fetched twice", primary.fetched)
	}
}

func TestAssemblyFailingTwiceSkipsChapter(t *testing.T) {
	assembler := &flakyAssembler{failures: 2}
	env := newEnvWith(t, 3, nil, assembler)
	title := env.addTitle(t)

	env.registry.Register("primary.example", &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1}},
	})
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Titles[0].Skipped() != 1 {
		t.Fatalf("skipped = %d, want 1", report.Titles[0].Skipped())
	}

	has, err := env.store.HasRecord(context.Background(), title.ID, 1)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if has {
		t.Fatal("chapter skipped on assembly failure must not be recorded")
	}
}

func TestMidCycleDuplicateRecordIsSurfaced(t *testing.T) {
	env := newEnv(t, 3, nil)
	title := env.addTitle(t)

	primary := &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1}},
	}
	primary.beforeFetch = func(ordinal float64) {
		err := env.store.CommitRecord(context.Background(), library.DownloadRecord{
			TitleID:  title.ID,
			Ordinal:  ordinal,
			SourceID: title.Sources[0].ID,
			Location: "elsewhere.pdf",
		})
		if err != nil {
			t.Fatalf("CommitRecord: %v", err)
		}
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tr := report.Titles[0]
	if tr.Downloaded() != 0 || tr.Skipped() != 1 {
		t.Fatalf("downloaded = %d skipped = %d, want the duplicate surfaced as a skip", tr.Downloaded(), tr.Skipped())
	}
	if !errors.Is(tr.Chapters[0].Err, library.ErrDuplicateRecord) {
		t.Fatalf("chapter err = %v, want ErrDuplicateRecord", tr.Chapters[0].Err)
	}
	if tr.Aborted != nil {
		t.Fatalf("aborted = %v, a duplicate must not stop the title", tr.Aborted)
	}

	record, err := env.store.Record(context.Background(), title.ID, 1)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record == nil || record.Location != "elsewhere.pdf" {
		t.Fatalf("record = %+v, want the pre-existing record untouched", record)
	}
}

func TestPersistenceFailureAbortsTitleButNotRun(t *testing.T) {
	env := newEnv(t, 3, nil)
	doomed := testsupport.AddTitle(t, env.store, "Alpha Manga", "https://primary.example/alpha")
	testsupport.AddTitle(t, env.store, "Zeta Manga", "https://primary.example/zeta")

	primary := &fakeSource{
		name: "primary",
		listings: map[string][]float64{
			"https://primary.example/alpha": {1, 2},
			"https://primary.example/zeta":  {5},
		},
	}
	// Deleting the title mid-fetch makes the record commit fail its foreign
	// key, which surfaces as a persistence error.
	primary.beforeFetch = func(ordinal float64) {
		if ordinal != 1 {
			return
		}
		if err := env.store.RemoveTitle(context.Background(), doomed.Slug); err != nil {
			t.Fatalf("RemoveTitle: %v", err)
		}
	}
	env.registry.Register("primary.example", primary)

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	alpha := report.Titles[0]
	if alpha.Slug != "alpha-manga" {
		t.Fatalf("first title = %q, want alpha-manga", alpha.Slug)
	}
	if alpha.Aborted == nil || !errors.Is(alpha.Aborted, library.ErrPersistence) {
		t.Fatalf("aborted = %v, want ErrPersistence", alpha.Aborted)
	}
	for _, ordinal := range primary.fetched {
		if ordinal == 2 {
			t.Fatal("remaining chapter of the aborted title must not be fetched")
		}
	}

	zeta := report.Titles[1]
	if zeta.Downloaded() != 1 {
		t.Fatalf("other title downloaded = %d, want 1", zeta.Downloaded())
	}
}

func TestSessionRenewalScopedToServingSource(t *testing.T) {
	env := newEnv(t, 3, nil)
	testsupport.AddTitle(t, env.store, "Alpha Web", "https://plain.example/alpha")
	testsupport.AddTitle(t, env.store, "Zeta Browser", "https://browser.example/zeta")

	plain := &fakeSource{
		name:     "plain",
		listings: map[string][]float64{"https://plain.example/alpha": {1, 2, 3, 4, 5}},
	}
	browser := &cyclingSource{fakeSource{
		name:     "browser",
		listings: map[string][]float64{"https://browser.example/zeta": {1, 2}},
	}}
	env.registry.Register("plain.example", plain)
	env.registry.Register("browser.example", browser)

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Downloaded() != 7 {
		t.Fatalf("downloaded = %d, want 7", report.Downloaded())
	}
	// Five plain-HTTP fetches must not cycle the browser session; it only
	// served two chapters.
	if browser.renewals != 0 {
		t.Fatalf("renewals = %d, want 0", browser.renewals)
	}
}

func TestDeliveryFailureKeepsRecord(t *testing.T) {
	env := newEnv(t, 3, failingDeliverer{})
	title := env.addTitle(t)

	env.registry.Register("primary.example", &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1}},
	})
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Downloaded() != 1 {
		t.Fatalf("downloaded = %d, want 1", report.Downloaded())
	}

	has, err := env.store.HasRecord(context.Background(), title.ID, 1)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if !has {
		t.Fatal("record must survive a delivery failure")
	}
}

func TestBackupFallbackAfterDelay(t *testing.T) {
	env := newEnv(t, 3, nil)
	title := env.addTitle(t)

	backup := &fakeSource{
		name:     "backup",
		listings: map[string][]float64{backupURL: {42}},
	}
	env.registry.Register("primary.example", &fakeSource{name: "primary"})
	env.registry.Register("backup.example", backup)

	// Day 0: window opens.
	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run day 0: %v", err)
	}
	if report.Titles[0].Waiting() != 1 {
		t.Fatalf("day 0 waiting = %d, want 1", report.Titles[0].Waiting())
	}

	// Day 1: still waiting.
	env.advance(24 * time.Hour)
	report, err = env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run day 1: %v", err)
	}
	if report.Downloaded() != 0 {
		t.Fatalf("day 1 downloaded = %d, want 0", report.Downloaded())
	}

	// Day 2: delay elapsed, the backup serves the chapter.
	env.advance(24 * time.Hour)
	report, err = env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run day 2: %v", err)
	}
	if report.Downloaded() != 1 {
		t.Fatalf("day 2 downloaded = %d, want 1", report.Downloaded())
	}
	chapter := report.Titles[0].Chapters[0]
	if !chapter.FromBackup {
		t.Fatal("chapter not marked as fallback download")
	}

	record, err := env.store.Record(context.Background(), title.ID, 42)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record == nil || record.SourceID != title.Sources[1].ID {
		t.Fatalf("record = %+v, want backup source attribution", record)
	}
}

func TestFailedBackupFetchRestoresWindow(t *testing.T) {
	env := newEnv(t, 3, nil)
	title := env.addTitle(t)

	backup := &fakeSource{
		name:       "backup",
		listings:   map[string][]float64{backupURL: {42}},
		fetchFails: map[float64]int{42: 2},
	}
	env.registry.Register("primary.example", &fakeSource{name: "primary"})
	env.registry.Register("backup.example", backup)

	// Open the window, then reach expiry with a broken backup.
	if _, err := env.orch.Run(context.Background(), check.Options{}); err != nil {
		t.Fatalf("Run day 0: %v", err)
	}
	openedAt := env.now

	env.advance(48 * time.Hour)
	report, err := env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run day 2: %v", err)
	}
	if report.Titles[0].Skipped() != 1 {
		t.Fatalf("skipped = %d, want 1", report.Titles[0].Skipped())
	}

	has, err := env.store.HasRecord(context.Background(), title.ID, 42)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if has {
		t.Fatal("failed backup download must not leave a record")
	}

	window, err := env.store.Window(context.Background(), title.ID, 42)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if window == nil {
		t.Fatal("window must be restored after failed promotion")
	}
	if !window.OpenedAt.Equal(openedAt) {
		t.Fatalf("window opened at = %v, want original %v", window.OpenedAt, openedAt)
	}

	// With the backup healthy again the next run downloads immediately.
	report, err = env.orch.Run(context.Background(), check.Options{})
	if err != nil {
		t.Fatalf("Run recovery: %v", err)
	}
	if report.Downloaded() != 1 {
		t.Fatalf("recovery downloaded = %d, want 1", report.Downloaded())
	}
}

func TestListOnlyReportsWithoutDownloading(t *testing.T) {
	env := newEnv(t, 3, nil)
	title := env.addTitle(t)

	primary := &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1, 2}},
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{ListOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Titles[0].Pending() != 2 {
		t.Fatalf("pending = %d, want 2", report.Titles[0].Pending())
	}
	if len(primary.fetched) != 0 {
		t.Fatalf("fetched = %v, want none in list-only mode", primary.fetched)
	}

	has, err := env.store.HasRecord(context.Background(), title.ID, 1)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if has {
		t.Fatal("list-only run must not record chapters")
	}
}

func TestSlugScopedRunChecksNamedTitleOnly(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)
	testsupport.AddTitle(t, env.store, "Other Manga", "https://primary.example/other")

	primary := &fakeSource{
		name: "primary",
		listings: map[string][]float64{
			primaryURL:                     {1},
			"https://primary.example/other": {5},
		},
	}
	env.registry.Register("primary.example", primary)
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	report, err := env.orch.Run(context.Background(), check.Options{Slug: "test-manga"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Titles) != 1 || report.Titles[0].Slug != "test-manga" {
		t.Fatalf("titles = %+v", report.Titles)
	}
	if len(primary.fetched) != 1 || primary.fetched[0] != 1 {
		t.Fatalf("fetched = %v", primary.fetched)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	env := newEnv(t, 3, nil)
	env.addTitle(t)

	env.registry.Register("primary.example", &fakeSource{
		name:     "primary",
		listings: map[string][]float64{primaryURL: {1}},
	})
	env.registry.Register("backup.example", &fakeSource{name: "backup"})

	if _, err := env.orch.Run(context.Background(), check.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	last, err := env.store.LastCheck(context.Background())
	if err != nil {
		t.Fatalf("LastCheck: %v", err)
	}
	if last == nil {
		t.Fatal("check run not recorded")
	}
	if last.ChaptersDownloaded != 1 || last.TitlesChecked != 1 {
		t.Fatalf("history = %+v", last)
	}
}
