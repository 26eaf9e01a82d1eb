package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustRotator(t *testing.T, retentionDays int) *Rotator {
	t.Helper()
	r, err := New(t.TempDir(), retentionDays)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestWrite_RotatesAtUTCDateChange(t *testing.T) {
	r := mustRotator(t, 7)
	day1 := time.Date(2026, 7, 20, 23, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return day1 }
	r.currentDate = day1.Format(dateFormat)

	if _, err := r.Write([]byte("day one\n")); err != nil {
		t.Fatalf("write day1: %v", err)
	}

	day2 := time.Date(2026, 7, 21, 0, 0, 1, 0, time.UTC)
	r.now = func() time.Time { return day2 }
	if _, err := r.Write([]byte("day two\n")); err != nil {
		t.Fatalf("write day2: %v", err)
	}

	rotated, err := os.ReadFile(filepath.Join(r.dir, "gateway-2026-07-20.log"))
	if err != nil {
		t.Fatalf("read rotated file: %v", err)
	}
	if string(rotated) != "day one\n" {
		t.Fatalf("rotated file contents = %q", rotated)
	}

	current, err := os.ReadFile(filepath.Join(r.dir, currentLogName))
	if err != nil {
		t.Fatalf("read current file: %v", err)
	}
	if string(current) != "day two\n" {
		t.Fatalf("current file contents = %q", current)
	}
}

func TestWrite_PrunesFilesOlderThanRetention(t *testing.T) {
	r := mustRotator(t, 2)
	day0 := time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return day0 }
	r.currentDate = day0.Format(dateFormat)

	stale := filepath.Join(r.dir, "gateway-2026-07-01.log")
	kept := filepath.Join(r.dir, "gateway-2026-07-19.log")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	if err := os.WriteFile(kept, []byte("kept"), 0o644); err != nil {
		t.Fatalf("write kept: %v", err)
	}

	day1 := time.Date(2026, 7, 21, 0, 0, 1, 0, time.UTC)
	r.now = func() time.Time { return day1 }
	if _, err := r.Write([]byte("triggers rotation\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale file to be pruned, stat err = %v", err)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("expected recent file to survive pruning: %v", err)
	}
}

func TestParseRotatedDate_RejectsNonRotatedNames(t *testing.T) {
	cases := []string{"gateway.log", "notes.txt", "gateway-bad-date.log", "gateway-2026-07-20.txt"}
	for _, name := range cases {
		if _, ok := parseRotatedDate(name); ok {
			t.Errorf("parseRotatedDate(%q) = ok, want rejected", name)
		}
	}
	if date, ok := parseRotatedDate("gateway-2026-07-20.log"); !ok || !date.Equal(time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseRotatedDate(valid) = %v, %v", date, ok)
	}
}
