// Package registry fans a single piece of text out to every configured
// scanner concurrently and collects whatever matches come back.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pii-redactor/sidecar/internal/scanner"
)

// Registry holds an ordered set of scanners and invokes all of them on each
// call to Invoke. Order only matters for readability of the named source —
// matches from every scanner are merged before the caller (the resolver)
// ever sees them, so scan order never affects the final redaction output.
type Registry struct {
	scanners []scanner.Scanner
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report per-scanner failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a registry over scanners, skipping any nil entries so a
// disabled optional scanner (e.g. NER when no bundle is configured) can be
// passed straight through from config without a caller-side nil check.
func New(scanners []scanner.Scanner, opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, s := range scanners {
		if s != nil {
			r.scanners = append(r.scanners, s)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs every scanner on text concurrently and returns the union of
// their matches. A scanner that errors contributes nothing and is logged —
// Invoke itself never fails, since one failing detection layer must never
// take down a redaction request (spec.md's ScannerFailure contract).
func (r *Registry) Invoke(ctx context.Context, text string) []scanner.Match {
	if text == "" || len(r.scanners) == 0 {
		return nil
	}

	results := make([][]scanner.Match, len(r.scanners))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range r.scanners {
		i, s := i, s
		g.Go(func() error {
			matches, err := s.Scan(gctx, text)
			if err != nil {
				r.logger.Warn("scanner failed", "scanner", i, "error", err)
				return nil
			}
			mu.Lock()
			results[i] = matches
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // scanners never return a fatal error; this can't fail

	var all []scanner.Match
	for _, matches := range results {
		all = append(all, matches...)
	}
	return all
}
