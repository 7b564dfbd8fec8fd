package main

import (
	"strings"
	"testing"
)

func TestAddListRemoveRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"add", "one piece",
		"https://weebcentral.com/series/01J76XYCT5GT2DG2YMPbEQ/One-Piece",
		"https://mangakakalot.gg/manga/one-piece",
	}, env.configPath, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Tracking One Piece (one-piece) with 2 source(s)")

	out, _, err = runCLI(t, []string{"list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "one-piece")
	requireContains(t, out, "reading")

	out, _, err = runCLI(t, []string{"remove", "one-piece"}, env.configPath, "")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	requireContains(t, out, "Removed One Piece")

	out, _, err = runCLI(t, []string{"list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	requireContains(t, out, "No titles tracked")
}

func TestSetStatusAndDelay(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{
		"add", "Berserk", "https://weebcentral.com/series/berserk",
	}, env.configPath, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, []string{"set", "status", "berserk", "on-hold"}, env.configPath, "")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	requireContains(t, out, "berserk is now on-hold")

	if _, _, err := runCLI(t, []string{"set", "status", "berserk", "reading-it-maybe"}, env.configPath, ""); err == nil {
		t.Fatal("expected error for unknown status")
	}

	out, _, err = runCLI(t, []string{"set", "delay", "berserk", "5"}, env.configPath, "")
	if err != nil {
		t.Fatalf("set delay: %v", err)
	}
	requireContains(t, out, "waits 5 day(s)")

	out, _, err = runCLI(t, []string{"list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "5d")

	out, _, err = runCLI(t, []string{"set", "delay", "berserk", "default"}, env.configPath, "")
	if err != nil {
		t.Fatalf("set delay default: %v", err)
	}
	requireContains(t, out, "configured fallback delay")
}

func TestRemoveUnknownTitleFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"remove", "nope"}, env.configPath, ""); err == nil {
		t.Fatal("expected error removing unknown title")
	}
}

func TestCheckAutoOnEmptyLibrary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "--auto"}, env.configPath, "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "0 title(s) checked")

	out, _, err = runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "0 tracked")
	requireContains(t, out, "Last check")
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"one piece":      "One Piece",
		"JoJo's Bizarre": "JoJo's Bizarre",
		"  spaced   out": "Spaced Out",
	}
	for input, want := range cases {
		if got := displayName(input); got != want {
			t.Fatalf("displayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSourcesListsAdapters(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sources"}, env.configPath, "")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	for _, adapter := range []string{"weebcentral", "mangakakalot", "mangadex", "generic-web"} {
		if !strings.Contains(out, adapter) {
			t.Fatalf("sources output missing %q:\n%s", adapter, out)
		}
	}
}
