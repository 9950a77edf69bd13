// Package verdict maps deepfake scores to the authenticity labels shown
// across the dashboard.
package verdict

import (
	"errors"
	"fmt"
	"strings"
)

// Verdict is an authenticity label for an analyzed image.
type Verdict string

const (
	Authentic   Verdict = "AUTHENTIC"
	Suspicious  Verdict = "SUSPICIOUS"
	Manipulated Verdict = "MANIPULATED"
	Deepfake    Verdict = "DEEPFAKE"
)

// SuspiciousThreshold is the overall score above which a non-deepfake image
// is labeled suspicious. The comparison is strict.
const SuspiciousThreshold = 0.3

// ErrUnknownVerdict is returned by Parse for labels outside the four known values.
var ErrUnknownVerdict = errors.New("unknown verdict")

// Classify derives the interim verdict for a score bundle. It is the only
// place a verdict is computed client-side, so the pipeline, the batch queue,
// and the history list always agree for the same inputs.
//
// Classify never yields Manipulated; that label only arrives with a finished
// server report.
func Classify(score float64, isDeepfake bool) Verdict {
	if isDeepfake {
		return Deepfake
	}
	if score > SuspiciousThreshold {
		return Suspicious
	}
	return Authentic
}

// Parse validates a server-assigned verdict. The value is consumed as-is.
func Parse(s string) (Verdict, error) {
	v := Verdict(strings.TrimSpace(s))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
	}
	return v, nil
}

// Valid reports whether v is one of the four known labels.
func (v Verdict) Valid() bool {
	switch v {
	case Authentic, Suspicious, Manipulated, Deepfake:
		return true
	}
	return false
}

func (v Verdict) String() string {
	return string(v)
}
