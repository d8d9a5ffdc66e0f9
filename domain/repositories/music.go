package repositories

import (
	"context"
	"errors"
)

// ErrEmptyResult is returned when the provider answers without any audio
var ErrEmptyResult = errors.New("no audio returned by provider")

// SegmentRequest is a single provider call for one planned segment
type SegmentRequest struct {
	Index          int
	Prompt         string
	NegativePrompt string
	// DurationSeconds is rounded to whole seconds before submission
	DurationSeconds int
	Seed            *int
	// Temperature is nil when the caller did not choose one
	Temperature *float64
}

// AudioPayload is the decoded audio returned for one segment
type AudioPayload struct {
	Data     []byte
	MimeType string
}

// MusicGenerator abstracts a generative-audio provider.
// Implementations must not retry.
type MusicGenerator interface {
	// Generate renders one segment and returns exactly one audio payload
	Generate(ctx context.Context, req SegmentRequest) (*AudioPayload, error)
	// Model names the provider model, reported in generation metadata
	Model() string
}
