// Package lyria talks to the Lyria music model on Vertex AI.
package lyria

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
	"github.com/RAWENTERISLIVE/music-ai/internal/audio"
)

const mockSampleRate = 8000

// pentatonic steps so consecutive segments are audibly distinct
var mockFrequencies = []float64{261.63, 293.66, 329.63, 392.00, 440.00}

// MockLyriaClient renders sine tones locally, for running without a
// Google Cloud project
type MockLyriaClient struct {
	latency time.Duration
	logger  *zap.Logger
}

var _ repositories.MusicGenerator = (*MockLyriaClient)(nil)

// NewMockLyriaClient creates a new mock Lyria client
func NewMockLyriaClient(latency time.Duration, logger *zap.Logger) *MockLyriaClient {
	return &MockLyriaClient{latency: latency, logger: logger}
}

// Model implements MusicGenerator interface
func (m *MockLyriaClient) Model() string {
	return "lyria-002-mock"
}

// Generate implements MusicGenerator interface
func (m *MockLyriaClient) Generate(ctx context.Context, req repositories.SegmentRequest) (*repositories.AudioPayload, error) {
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	seconds := req.DurationSeconds
	if seconds < 1 {
		seconds = 1
	}

	freq := mockFrequencies[req.Index%len(mockFrequencies)]
	data, err := audio.EncodePCM16(audio.SineTone(freq, seconds, mockSampleRate), mockSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("mock segment %d: %w", req.Index, err)
	}

	m.logger.Debug("Mock segment generated",
		zap.Int("segment", req.Index),
		zap.Int("seconds", seconds),
		zap.Float64("frequency", freq))

	return &repositories.AudioPayload{Data: data, MimeType: entities.WAVMimeType}, nil
}
