package model

import (
	"testing"
	"time"
)

func TestFutureOnly(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	shows := []Show{
		{Title: "Movie X", Time: now.Add(-time.Hour)},
		{Title: "Movie X", Time: now},
		{Title: "Movie X", Time: now.Add(time.Minute)},
		{Title: "Movie X", Time: now.Add(2 * time.Hour)},
	}
	got := FutureOnly(shows, now)
	if len(got) != 2 {
		t.Fatalf("want 2 future shows, got %d", len(got))
	}
	for _, s := range got {
		if !s.Time.After(now) {
			t.Fatalf("show at %s is not strictly after now", s.Time)
		}
	}
}

func TestSelectionToggle(t *testing.T) {
	var s Selection
	s.ToggleTitle("Inception")
	s.ToggleTitle("Dune")
	s.ToggleCinema("Skalvija")
	if !s.HasTitle("Inception") || !s.HasTitle("Dune") || !s.HasCinema("Skalvija") {
		t.Fatalf("unexpected selection: %+v", s)
	}
	clone := s.Clone()
	s.ToggleTitle("Inception")
	if s.HasTitle("Inception") {
		t.Fatal("toggle should remove a selected title")
	}
	if !clone.HasTitle("Inception") {
		t.Fatal("clone must not share backing storage")
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeStandard, ModeCompact, ModePicks} {
		if !m.Valid() {
			t.Fatalf("%s should be valid", m)
		}
	}
	if Mode("grid").Valid() {
		t.Fatal("unknown mode should be invalid")
	}
}
