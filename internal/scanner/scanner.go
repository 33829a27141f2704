// Package scanner defines the detector interface and the match type every
// detection layer (regex, NER, custom) produces.
package scanner

import (
	"context"

	"github.com/pii-redactor/sidecar/internal/entity"
)

// Match is a single detected PII span, reported in rune (character) offsets
// relative to the scanned text.
type Match struct {
	Type   entity.Type
	Text   string
	Start  int
	End    int
	Score  float64
	Source string
}

// Scanner detects PII spans in text. Implementations must be safe for
// concurrent use by multiple goroutines and must not mutate any shared
// state across calls — the registry invokes every enabled scanner on the
// same input concurrently.
type Scanner interface {
	// Scan returns every match this scanner finds in text. An error means
	// the scanner itself failed (e.g. a model that can't run); the caller
	// treats that scanner's contribution as empty for this call rather than
	// failing the whole request.
	Scan(ctx context.Context, text string) ([]Match, error)
}
