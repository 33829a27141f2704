// Package ner implements the optional NER detection layer: an ONNX
// token-classification model behind the same scanner.Scanner interface the
// regex layer implements. It never makes Scan fail — a missing or
// unloadable model bundle downgrades the scanner to zero matches for the
// rest of the process lifetime, so the registry can always run with regex
// coverage alone.
package ner

import (
	"context"
	"fmt"
	"sync"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/scanner"
)

const source = "ner"

// Config controls how the NER scanner loads its model and filters its
// output. It's set once at construction — spec scan-time parameters like
// score_threshold and allowed_types are resolved here rather than per-call,
// since scanners are built once at startup.
type Config struct {
	BundleDir      string
	SeqLen         int
	ScoreThreshold float64
	AllowedTypes   map[entity.Type]bool // nil/empty means no filter
}

// Scanner is the NER detection layer. It loads its ONNX model lazily on
// first use (or via an explicit Warm call) rather than at construction,
// because model loading can be slow and a process that never calls /redact
// with NER enabled shouldn't pay that cost.
type Scanner struct {
	cfg Config

	once      sync.Once
	loadErr   error
	model     *model
	available bool
}

// New builds a NER scanner that has not yet attempted to load its model.
func New(cfg Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Warm forces the model load to happen now rather than on first Scan, and
// reports whether the scanner is usable. Once attempted, the result is
// cached for the process lifetime — a later retry never happens
// automatically, matching the "downgrades permanently" contract.
func (s *Scanner) Warm() error {
	s.once.Do(s.load)
	return s.loadErr
}

// Available reports whether the model is loaded and ready, without
// triggering a load attempt. Used by /health so a cold scanner doesn't look
// like a failure before anything has asked it to run.
func (s *Scanner) Available() bool {
	return s.available
}

func (s *Scanner) load() {
	m, err := loadModel(s.cfg.BundleDir, s.cfg.SeqLen)
	if err != nil {
		s.loadErr = err
		return
	}
	s.model = m
	s.available = true
}

// Scan implements scanner.Scanner. A model load failure (including "no
// bundle configured") is not reported as an error here — Scan simply
// contributes no matches, per the scanner's downgrade contract. A failure
// during inference on an already-loaded model IS reported, since that's an
// unexpected per-request failure rather than the known "NER is off" state.
func (s *Scanner) Scan(ctx context.Context, text string) ([]scanner.Match, error) {
	if text == "" {
		return nil, nil
	}
	s.once.Do(s.load)
	if !s.available {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels, scores, offsets, err := s.model.infer(text)
	if err != nil {
		return nil, fmt.Errorf("ner inference: %w", err)
	}

	spans := entitiesFromTokenLabels(labels, scores, offsets)
	if len(spans) == 0 {
		return nil, nil
	}

	byteToRune := newByteRuneIndex(text)
	runes := []rune(text)
	matches := make([]scanner.Match, 0, len(spans))
	for _, sp := range spans {
		if len(s.cfg.AllowedTypes) > 0 && !s.cfg.AllowedTypes[sp.typ] {
			continue
		}
		if sp.score() < s.cfg.ScoreThreshold {
			continue
		}
		start := byteToRune.rune(sp.start)
		end := byteToRune.rune(sp.end)
		if start < 0 || end > len(runes) || start >= end {
			continue
		}
		matches = append(matches, scanner.Match{
			Type:   sp.typ,
			Text:   string(runes[start:end]),
			Start:  start,
			End:    end,
			Score:  sp.score(),
			Source: source,
		})
	}
	return matches, nil
}

// Close releases the underlying ONNX session, if one was loaded.
func (s *Scanner) Close() {
	if s.model != nil {
		s.model.close()
	}
}

// byteRuneIndex maps a byte offset within a string to its rune offset.
type byteRuneIndex struct {
	runeAt []int
}

func newByteRuneIndex(s string) *byteRuneIndex {
	idx := &byteRuneIndex{runeAt: make([]int, 0, len(s)+1)}
	for b := range s {
		idx.runeAt = append(idx.runeAt, b)
	}
	idx.runeAt = append(idx.runeAt, len(s))
	return idx
}

func (idx *byteRuneIndex) rune(byteOffset int) int {
	lo, hi := 0, len(idx.runeAt)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.runeAt[mid] < byteOffset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
