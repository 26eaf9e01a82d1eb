// Package logging provides a minimal daily-rotating log file writer: it
// renames the current log file at UTC midnight and prunes rotated files
// older than a configured retention window. No rotation library in the
// pack fits this narrow a need (see DESIGN.md), so it is hand-rolled over
// plain os.File, matching the teacher's own plain os.File-based logging
// setup in spirit.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	currentLogName = "gateway.log"
	dateFormat     = "2006-01-02"
)

// Rotator is an io.Writer that rotates its backing file once per UTC day.
type Rotator struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	file          *os.File
	currentDate   string
	now           func() time.Time
}

// New creates dir if needed, opens (or appends to) today's current log
// file, and returns a ready-to-use Rotator.
func New(dir string, retentionDays int) (*Rotator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log directory: %w", err)
	}
	r := &Rotator{dir: dir, retentionDays: retentionDays, now: time.Now}
	if err := r.openCurrent(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rotator) openCurrent() error {
	f, err := os.OpenFile(filepath.Join(r.dir, currentLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	r.file = f
	r.currentDate = r.now().UTC().Format(dateFormat)
	return nil
}

// Write implements io.Writer. A write that crosses a UTC day boundary
// rotates the current file to a dated name and prunes anything older than
// retentionDays before writing.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if today := r.now().UTC().Format(dateFormat); today != r.currentDate {
		if err := r.rotate(today); err != nil {
			return 0, err
		}
	}
	return r.file.Write(p)
}

func (r *Rotator) rotate(today string) error {
	rotatedName := filepath.Join(r.dir, fmt.Sprintf("gateway-%s.log", r.currentDate))
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("logging: close current log file: %w", err)
	}
	if err := os.Rename(filepath.Join(r.dir, currentLogName), rotatedName); err != nil {
		return fmt.Errorf("logging: rotate log file: %w", err)
	}
	if err := r.openCurrent(); err != nil {
		return err
	}
	r.currentDate = today
	r.prune()
	return nil
}

// prune removes rotated files (gateway-YYYY-MM-DD.log) dated before the
// retention cutoff. A retentionDays of 0 or less disables pruning.
// Individual removal failures are swallowed: a stale log file left behind
// is not worth failing the request that triggered rotation over.
func (r *Rotator) prune() {
	if r.retentionDays <= 0 {
		return
	}
	now := r.now().UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -r.retentionDays)

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == currentLogName {
			continue
		}
		date, ok := parseRotatedDate(e.Name())
		if !ok {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(r.dir, e.Name()))
		}
	}
}

func parseRotatedDate(name string) (time.Time, bool) {
	const prefix, suffix = "gateway-", ".log"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateFormat, strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Close closes the current log file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
