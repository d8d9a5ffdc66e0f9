package entities

import (
	"encoding/base64"
	"errors"
	"math"
	"strings"
)

const (
	// MaxSegmentSeconds is the longest clip the provider renders per call
	MaxSegmentSeconds = 30

	// SegmentUnitSeconds is the billing unit for generated audio
	SegmentUnitSeconds = 30.0

	MinDurationSeconds     = 1
	MaxDurationSeconds     = 300
	DefaultDurationSeconds = 30

	// generationCostPerUnit is the price of one 30-second unit
	generationCostPerUnit = 0.08

	// WAVMimeType is the only container format handled
	WAVMimeType = "audio/wav"
)

// GenerationRequest is a user's request for a track
type GenerationRequest struct {
	Prompt           string
	NegativePrompt   string
	Seed             *int
	Duration         int
	Temperature      *float64
	InspirationAudio []byte

	// SessionID is only used to route progress notifications
	SessionID string
}

// ClampDuration bounds a requested duration to the supported range.
// Zero means the caller did not ask for a duration.
func ClampDuration(seconds int) int {
	if seconds == 0 {
		return DefaultDurationSeconds
	}
	if seconds < MinDurationSeconds {
		return MinDurationSeconds
	}
	if seconds > MaxDurationSeconds {
		return MaxDurationSeconds
	}
	return seconds
}

// Validate validates the request before it enters the pipeline
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is required")
	}
	if r.Duration < MinDurationSeconds || r.Duration > MaxDurationSeconds {
		return errors.New("duration must be clamped before use")
	}
	return nil
}

// GenerationCost prices an original generation of the given length
func GenerationCost(durationSeconds float64) float64 {
	return (durationSeconds / SegmentUnitSeconds) * generationCostPerUnit
}

// PlannedSegment is one entry of a SegmentPlan
type PlannedSegment struct {
	Index           int     `json:"index"`
	StartTime       float64 `json:"startTime"`
	EndTime         float64 `json:"endTime"`
	DurationSeconds float64 `json:"durationSeconds"`
	PromptText      string  `json:"promptText"`
	EffectivePrompt string  `json:"effectivePrompt"`
	IsContinuation  bool    `json:"isContinuation"`
}

// RequestSeconds is the whole-second duration sent to the provider
func (p PlannedSegment) RequestSeconds() int {
	return int(math.Round(p.DurationSeconds))
}

// SegmentPlan is the ordered, contiguous list of segments for one request
type SegmentPlan struct {
	TotalDuration   float64          `json:"totalDuration"`
	SegmentDuration float64          `json:"segmentDuration"`
	Structured      bool             `json:"structured"`
	Segments        []PlannedSegment `json:"segments"`
}

// AudioSegment is one generated slice of the final track
type AudioSegment struct {
	Data               []byte
	StartTime          float64
	EndTime            float64
	PromptText         string
	SeamlessTransition bool
}

// ConcatenatedAudio is the stitched track. It is never mutated after creation.
type ConcatenatedAudio struct {
	Data         []byte
	TotalSize    int
	SegmentCount int
	// Degraded is set when stitching failed and only the first segment was kept
	Degraded bool
}

// DataURI encodes an audio payload as a data URI
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI extracts the payload of a base64 data URI
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, errors.New("not a data URI")
	}
	idx := strings.Index(uri, ";base64,")
	if idx < 0 {
		return nil, errors.New("data URI is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(uri[idx+len(";base64,"):])
}
