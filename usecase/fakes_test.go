package usecase

import (
	"context"
	"sync"

	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
	"github.com/RAWENTERISLIVE/music-ai/internal/audio"
)

// fakeGenerator returns small WAV payloads and records every request
type fakeGenerator struct {
	mu       sync.Mutex
	requests []repositories.SegmentRequest
	// failAt makes the call with this index fail with err
	failAt int
	err    error
	empty  bool
	// truncateAt makes the call with this index return a headerless payload
	truncateAt int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{failAt: -1, truncateAt: -1}
}

func (f *fakeGenerator) Generate(ctx context.Context, req repositories.SegmentRequest) (*repositories.AudioPayload, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Index == f.failAt {
		return nil, f.err
	}
	if f.empty {
		return &repositories.AudioPayload{}, nil
	}
	if req.Index == f.truncateAt {
		return &repositories.AudioPayload{Data: []byte("RIFF"), MimeType: "audio/wav"}, nil
	}

	samples := make([]int16, 10*(req.Index+1))
	data, err := audio.EncodePCM16(samples, 8000, 1)
	if err != nil {
		return nil, err
	}
	return &repositories.AudioPayload{Data: data, MimeType: "audio/wav"}, nil
}

func (f *fakeGenerator) Model() string { return "lyria-002" }

func (f *fakeGenerator) calls() []repositories.SegmentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repositories.SegmentRequest(nil), f.requests...)
}

type fakeSuggester struct{}

func (fakeSuggester) Suggest(ctx context.Context, prompt string) (repositories.PromptSuggestions, error) {
	return repositories.PromptSuggestions{
		Suggestions:         []string{"add strings"},
		ContinuationPrompts: []string{"build to a finale"},
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []repositories.ProgressEvent
}

func (r *recordingNotifier) Publish(event repositories.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) types() []repositories.ProgressEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repositories.ProgressEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
