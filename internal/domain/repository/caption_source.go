// Package repository defines the data-access-layer interfaces the core consumes.
package repository

import (
	"context"
	"errors"

	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// Distinguished CaptionSource outcomes (spec §4.4). The caller treats
// ErrNoTranscript and ErrTranscriptsDisabled as terminal negative outcomes
// and populates the no-captions cache; any other error is transient.
var (
	ErrNoTranscript        = errors.New("caption source: no transcript available")
	ErrTranscriptsDisabled = errors.New("caption source: transcripts disabled")
)

// CaptionSource fetches timed captions and the selected language for a video.
type CaptionSource interface {
	Fetch(ctx context.Context, vid string) ([]entity.TimedText, string, error)
}
