package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tosho/internal/library"
	"tosho/internal/testsupport"
)

func TestAddTitleCreatesOrderedSources(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title, err := store.AddTitle(ctx, "One Piece", []string{
		"https://primary.example/one-piece",
		"https://backup-a.example/one-piece",
		"https://backup-b.example/one-piece",
	})
	if err != nil {
		t.Fatalf("AddTitle: %v", err)
	}

	if title.Slug != "one-piece" {
		t.Fatalf("slug = %q, want one-piece", title.Slug)
	}
	if title.Status != library.StatusReading {
		t.Fatalf("status = %q, want reading", title.Status)
	}
	if len(title.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(title.Sources))
	}
	primary := title.Primary()
	if primary == nil || primary.URL != "https://primary.example/one-piece" {
		t.Fatalf("primary = %+v", primary)
	}
	if backups := title.Backups(); len(backups) != 2 || backups[0].Position != 1 {
		t.Fatalf("backups = %+v", backups)
	}
}

func TestAddTitleRejectsDuplicateSlug(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.AddTitle(t, store, "Berserk")
	if _, err := store.AddTitle(ctx, "Berserk", []string{"https://x.example/berserk"}); err == nil {
		t.Fatal("expected duplicate slug error")
	}
}

func TestTitleBySlugMissing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := store.TitleBySlug(context.Background(), "nope")
	if !errors.Is(err, library.ErrTitleNotFound) {
		t.Fatalf("err = %v, want ErrTitleNotFound", err)
	}
}

func TestSetSourcesReplacesPrimary(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Vagabond", "https://old.example/v")
	if err := store.SetSources(ctx, title.Slug, []string{
		"https://new.example/v",
		"https://backup.example/v",
	}); err != nil {
		t.Fatalf("SetSources: %v", err)
	}

	reloaded, err := store.TitleBySlug(ctx, title.Slug)
	if err != nil {
		t.Fatalf("TitleBySlug: %v", err)
	}
	if got := reloaded.Primary().URL; got != "https://new.example/v" {
		t.Fatalf("primary after SetSources = %q", got)
	}
	if len(reloaded.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(reloaded.Sources))
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Naruto")
	if err := store.SetStatus(ctx, title.Slug, library.StatusCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	reading, err := store.Titles(ctx, library.StatusReading)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(reading) != 0 {
		t.Fatalf("reading titles = %d, want 0", len(reading))
	}

	all, err := store.Titles(ctx)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(all) != 1 || all[0].Status != library.StatusCompleted {
		t.Fatalf("all titles = %+v", all)
	}
}

func TestRemoveTitleCascades(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Bleach")
	if err := store.CommitRecord(ctx, library.DownloadRecord{
		TitleID:  title.ID,
		Ordinal:  1,
		SourceID: title.Sources[0].ID,
	}); err != nil {
		t.Fatalf("CommitRecord: %v", err)
	}
	if err := store.OpenWindow(ctx, title.ID, 2, title.Sources[0].ID, time.Now()); err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}

	if err := store.RemoveTitle(ctx, title.Slug); err != nil {
		t.Fatalf("RemoveTitle: %v", err)
	}

	ordinals, err := store.RecordedOrdinals(ctx, title.ID)
	if err != nil {
		t.Fatalf("RecordedOrdinals: %v", err)
	}
	if len(ordinals) != 0 {
		t.Fatalf("records survived title removal: %v", ordinals)
	}
	windows, err := store.Windows(ctx, title.ID)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("windows survived title removal: %v", windows)
	}
}

func TestCommitRecordRejectsDuplicate(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Monster")
	record := library.DownloadRecord{
		TitleID:  title.ID,
		Ordinal:  12.5,
		SourceID: title.Sources[0].ID,
		Location: "/tmp/monster-0012.5.pdf",
	}
	if err := store.CommitRecord(ctx, record); err != nil {
		t.Fatalf("first CommitRecord: %v", err)
	}

	err := store.CommitRecord(ctx, record)
	if !errors.Is(err, library.ErrDuplicateRecord) {
		t.Fatalf("second commit err = %v, want ErrDuplicateRecord", err)
	}

	has, err := store.HasRecord(ctx, title.ID, 12.5)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if !has {
		t.Fatal("record missing after duplicate commit")
	}
}

func TestRecordedOrdinalsAscending(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Dorohedoro")
	for _, ordinal := range []float64{3, 1, 2.5} {
		if err := store.CommitRecord(ctx, library.DownloadRecord{
			TitleID:  title.ID,
			Ordinal:  ordinal,
			SourceID: title.Sources[0].ID,
		}); err != nil {
			t.Fatalf("CommitRecord(%v): %v", ordinal, err)
		}
	}

	ordinals, err := store.RecordedOrdinals(ctx, title.ID)
	if err != nil {
		t.Fatalf("RecordedOrdinals: %v", err)
	}
	want := []float64{1, 2.5, 3}
	if len(ordinals) != len(want) {
		t.Fatalf("ordinals = %v, want %v", ordinals, want)
	}
	for i := range want {
		if ordinals[i] != want[i] {
			t.Fatalf("ordinals = %v, want %v", ordinals, want)
		}
	}
}

func TestOpenWindowKeepsFirstSeen(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Kingdom",
		"https://primary.example/kingdom",
		"https://backup-a.example/kingdom",
		"https://backup-b.example/kingdom",
	)
	backupA := title.Sources[1]
	backupB := title.Sources[2]

	first := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	if err := store.OpenWindow(ctx, title.ID, 700, backupA.ID, first); err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}
	if err := store.OpenWindow(ctx, title.ID, 700, backupB.ID, first.Add(24*time.Hour)); err != nil {
		t.Fatalf("second OpenWindow: %v", err)
	}

	window, err := store.Window(ctx, title.ID, 700)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if window == nil {
		t.Fatal("window missing")
	}
	if window.SourceID != backupA.ID {
		t.Fatalf("window source = %d, want first-seen backup %d", window.SourceID, backupA.ID)
	}
	if !window.OpenedAt.Equal(first) {
		t.Fatalf("opened at = %v, want %v", window.OpenedAt, first)
	}
}

func TestPromoteWindowCommitsRecordAtomically(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Vinland Saga",
		"https://primary.example/vs",
		"https://backup.example/vs",
	)
	backup := title.Sources[1]

	opened := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	if err := store.OpenWindow(ctx, title.ID, 210, backup.ID, opened); err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}

	now := opened.Add(48 * time.Hour)
	promo, err := store.PromoteWindow(ctx, title.ID, 210, "/tmp/vs-0210.pdf", now)
	if err != nil {
		t.Fatalf("PromoteWindow: %v", err)
	}
	if promo.SourceID != backup.ID {
		t.Fatalf("promotion source = %d, want %d", promo.SourceID, backup.ID)
	}
	if !promo.OpenedAt.Equal(opened) {
		t.Fatalf("promotion opened at = %v, want %v", promo.OpenedAt, opened)
	}

	window, err := store.Window(ctx, title.ID, 210)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if window != nil {
		t.Fatal("window still open after promotion")
	}

	record, err := store.Record(ctx, title.ID, 210)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record == nil || record.SourceID != backup.ID {
		t.Fatalf("record = %+v, want source %d", record, backup.ID)
	}
}

func TestPromoteWindowWithoutWindowFails(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Claymore")
	if _, err := store.PromoteWindow(ctx, title.ID, 5, "", time.Now()); err == nil {
		t.Fatal("expected error promoting missing window")
	}
}

func TestRevertPromotionRestoresWindow(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Golden Kamuy",
		"https://primary.example/gk",
		"https://backup.example/gk",
	)
	backup := title.Sources[1]

	opened := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)
	if err := store.OpenWindow(ctx, title.ID, 300, backup.ID, opened); err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}

	promo, err := store.PromoteWindow(ctx, title.ID, 300, "", opened.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("PromoteWindow: %v", err)
	}

	if err := store.RevertPromotion(ctx, title.ID, 300, promo); err != nil {
		t.Fatalf("RevertPromotion: %v", err)
	}

	has, err := store.HasRecord(ctx, title.ID, 300)
	if err != nil {
		t.Fatalf("HasRecord: %v", err)
	}
	if has {
		t.Fatal("record survived revert")
	}

	window, err := store.Window(ctx, title.ID, 300)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if window == nil {
		t.Fatal("window not restored")
	}
	if !window.OpenedAt.Equal(opened) {
		t.Fatalf("restored opened at = %v, want original %v", window.OpenedAt, opened)
	}
}

func TestSetRecordLocation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	title := testsupport.AddTitle(t, store, "Akira")
	if err := store.CommitRecord(ctx, library.DownloadRecord{
		TitleID:  title.ID,
		Ordinal:  1,
		SourceID: title.Sources[0].ID,
		Location: "/tmp/akira-0001.pdf",
	}); err != nil {
		t.Fatalf("CommitRecord: %v", err)
	}

	if err := store.SetRecordLocation(ctx, title.ID, 1, ""); err != nil {
		t.Fatalf("SetRecordLocation: %v", err)
	}
	record, err := store.Record(ctx, title.ID, 1)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.Location != "" {
		t.Fatalf("location = %q, want empty after delete-after-send", record.Location)
	}
}

func TestCheckHistoryTrimsToLimit(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 55; i++ {
		run := library.CheckRun{
			StartedAt:     base.Add(time.Duration(i) * time.Hour),
			FinishedAt:    base.Add(time.Duration(i)*time.Hour + time.Minute),
			TitlesChecked: i,
		}
		if err := store.RecordCheck(ctx, run); err != nil {
			t.Fatalf("RecordCheck(%d): %v", i, err)
		}
	}

	runs, err := store.CheckHistory(ctx, 0)
	if err != nil {
		t.Fatalf("CheckHistory: %v", err)
	}
	if len(runs) != 50 {
		t.Fatalf("history length = %d, want 50", len(runs))
	}
	if runs[0].TitlesChecked != 54 {
		t.Fatalf("newest run titles checked = %d, want 54", runs[0].TitlesChecked)
	}
}

func TestStatsCounts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.AddTitle(t, store, "Alpha")
	second := testsupport.AddTitle(t, store, "Beta")
	if err := store.SetStatus(ctx, second.Slug, library.StatusDropped); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.CommitRecord(ctx, library.DownloadRecord{
		TitleID:  first.ID,
		Ordinal:  1,
		SourceID: first.Sources[0].ID,
	}); err != nil {
		t.Fatalf("CommitRecord: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Titles != 2 || stats.Reading != 1 || stats.Records != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := library.ParseStatus("paused"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	status, err := library.ParseStatus(" On-Hold ")
	if err != nil {
		t.Fatalf("ParseStatus: %v", err)
	}
	if status != library.StatusOnHold {
		t.Fatalf("status = %q", status)
	}
}

func TestOrdinalFormatting(t *testing.T) {
	if got := library.FormatOrdinal(1090); got != "1090" {
		t.Fatalf("FormatOrdinal(1090) = %q", got)
	}
	if got := library.FormatOrdinal(10.5); got != "10.5" {
		t.Fatalf("FormatOrdinal(10.5) = %q", got)
	}
	if got := library.PaddedOrdinal(7); got != "0007" {
		t.Fatalf("PaddedOrdinal(7) = %q", got)
	}
	if got := library.PaddedOrdinal(12.5); got != "0012.5" {
		t.Fatalf("PaddedOrdinal(12.5) = %q", got)
	}
}
