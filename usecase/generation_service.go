package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
	"github.com/RAWENTERISLIVE/music-ai/internal/audio"
	"github.com/RAWENTERISLIVE/music-ai/internal/failure"
	"github.com/RAWENTERISLIVE/music-ai/internal/prompt"
	"github.com/RAWENTERISLIVE/music-ai/internal/telemetry"
)

// metadataSeedRange bounds the seed reported when the caller gave none
const metadataSeedRange = 100000

// SegmentResult is one generated slice as returned to clients
type SegmentResult struct {
	URL                string  `json:"url"`
	StartTime          float64 `json:"startTime"`
	EndTime            float64 `json:"endTime"`
	Prompt             string  `json:"prompt"`
	SeamlessTransition bool    `json:"seamlessTransition"`
}

// GenerationResult is the outcome of a successful generation
type GenerationResult struct {
	FullAudioURL        string                      `json:"fullAudioUrl"`
	AudioSegments       []SegmentResult             `json:"audioSegments"`
	Metadata            entities.GenerationMetadata `json:"metadata"`
	Suggestions         []string                    `json:"suggestions"`
	ContinuationPrompts []string                    `json:"continuationPrompts"`
}

// GenerationService runs the segmented generation pipeline: plan, render
// each segment in order, stitch, describe
type GenerationService struct {
	generator    repositories.MusicGenerator
	suggester    repositories.PromptSuggester
	notifier     repositories.ProgressNotifier
	planner      *prompt.Planner
	concatenator *audio.Concatenator
	tracer       trace.Tracer
	metrics      *telemetry.Metrics
	logger       *zap.Logger
}

// NewGenerationService creates a new generation service. A nil notifier
// disables progress events.
func NewGenerationService(
	generator repositories.MusicGenerator,
	suggester repositories.PromptSuggester,
	notifier repositories.ProgressNotifier,
	tel *telemetry.Telemetry,
	logger *zap.Logger,
) *GenerationService {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if tel == nil {
		tel = telemetry.Noop()
	}

	return &GenerationService{
		generator:    generator,
		suggester:    suggester,
		notifier:     notifier,
		planner:      prompt.NewPlanner(logger),
		concatenator: audio.NewConcatenator(logger),
		tracer:       tel.Tracer,
		metrics:      tel.Metrics,
		logger:       logger,
	}
}

// Generate renders the requested track. Any failure is returned as a
// *failure.Error; partial results are discarded.
func (s *GenerationService) Generate(ctx context.Context, req entities.GenerationRequest) (*GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		fe := failure.MissingPrompt()
		fe.UserPrompt = req.Prompt
		return nil, fe
	}

	req.Duration = entities.ClampDuration(req.Duration)
	if err := req.Validate(); err != nil {
		return nil, failure.Classify(err, req.Prompt)
	}

	parts := prompt.ParseStructured(req.Prompt)
	plan := s.planner.Plan(req.Duration, req.Prompt, parts)

	ctx, span := s.tracer.Start(ctx, "generation.run",
		trace.WithAttributes(
			attribute.Int("duration_seconds", req.Duration),
			attribute.Int("segments", len(plan.Segments)),
			attribute.Bool("structured", plan.Structured),
		))
	defer span.End()

	s.logger.Info("Starting generation",
		zap.String("session_id", req.SessionID),
		zap.Int("duration", req.Duration),
		zap.Int("segments", len(plan.Segments)),
		zap.Bool("structured", plan.Structured),
		zap.Int("inspiration_bytes", len(req.InspirationAudio)))

	s.publish(req.SessionID, repositories.ProgressGenerationStarted, 0, len(plan.Segments), "")

	segments, err := s.renderSegments(ctx, req, plan)
	if err != nil {
		fe := failure.Classify(err, req.Prompt)

		span.RecordError(err)
		span.SetStatus(codes.Error, string(fe.Kind))
		s.metrics.RecordGeneration(ctx, telemetry.OutcomeFailure)
		s.metrics.RecordFailure(ctx, string(fe.Kind))
		s.publish(req.SessionID, repositories.ProgressGenerationFailed, 0, len(plan.Segments), string(fe.Kind))

		s.logger.Error("Generation failed",
			zap.String("session_id", req.SessionID),
			zap.String("error_type", string(fe.Kind)),
			zap.Error(err))
		return nil, fe
	}

	combined := s.concatenator.Concatenate(segments)

	result := &GenerationResult{
		FullAudioURL:  entities.DataURI(entities.WAVMimeType, combined.Data),
		AudioSegments: make([]SegmentResult, 0, len(segments)),
		Metadata:      s.metadata(req, plan, combined),
	}
	for i, seg := range segments {
		result.AudioSegments = append(result.AudioSegments, SegmentResult{
			URL:                entities.DataURI(entities.WAVMimeType, seg.Data),
			StartTime:          seg.StartTime,
			EndTime:            seg.EndTime,
			Prompt:             seg.PromptText,
			SeamlessTransition: i > 0,
		})
	}

	suggestions, err := s.suggester.Suggest(ctx, req.Prompt)
	if err != nil {
		s.logger.Warn("Failed to get prompt suggestions", zap.Error(err))
	}
	result.Suggestions = nonNil(suggestions.Suggestions)
	result.ContinuationPrompts = nonNil(suggestions.ContinuationPrompts)

	s.metrics.RecordGeneration(ctx, telemetry.OutcomeSuccess)
	s.publish(req.SessionID, repositories.ProgressGenerationCompleted, 0, len(plan.Segments), "")

	s.logger.Info("Generation completed",
		zap.String("session_id", req.SessionID),
		zap.Int("segments", len(segments)),
		zap.Int("total_size", combined.TotalSize),
		zap.Bool("degraded", combined.Degraded))

	return result, nil
}

// renderSegments calls the provider once per planned segment, strictly in
// order, and stops at the first failure
func (s *GenerationService) renderSegments(ctx context.Context, req entities.GenerationRequest, plan entities.SegmentPlan) ([]entities.AudioSegment, error) {
	segments := make([]entities.AudioSegment, 0, len(plan.Segments))
	total := len(plan.Segments)

	for _, planned := range plan.Segments {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("segment %d: %w", planned.Index, err)
		}

		s.publish(req.SessionID, repositories.ProgressSegmentStarted, planned.Index, total, "")

		payload, err := s.renderSegment(ctx, req, planned)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", planned.Index, err)
		}

		segments = append(segments, entities.AudioSegment{
			Data:               payload.Data,
			StartTime:          planned.StartTime,
			EndTime:            planned.EndTime,
			PromptText:         planned.PromptText,
			SeamlessTransition: planned.IsContinuation,
		})

		s.publish(req.SessionID, repositories.ProgressSegmentCompleted, planned.Index, total, "")
	}

	return segments, nil
}

func (s *GenerationService) renderSegment(ctx context.Context, req entities.GenerationRequest, planned entities.PlannedSegment) (*repositories.AudioPayload, error) {
	ctx, span := s.tracer.Start(ctx, "generation.segment",
		trace.WithAttributes(
			attribute.Int("index", planned.Index),
			attribute.Int("duration_seconds", planned.RequestSeconds()),
		))
	defer span.End()

	segmentReq := repositories.SegmentRequest{
		Index:           planned.Index,
		Prompt:          planned.EffectivePrompt,
		NegativePrompt:  req.NegativePrompt,
		DurationSeconds: planned.RequestSeconds(),
	}
	if req.Seed != nil {
		seed := *req.Seed + planned.Index
		segmentReq.Seed = &seed
	}
	if req.Temperature != nil {
		temperature := *req.Temperature
		segmentReq.Temperature = &temperature
	}

	s.logger.Debug("Generating segment",
		zap.Int("segment", planned.Index),
		zap.Float64("start", planned.StartTime),
		zap.Float64("end", planned.EndTime))

	start := time.Now()
	payload, err := s.generator.Generate(ctx, segmentReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "segment failed")
		return nil, err
	}
	if payload == nil || len(payload.Data) == 0 {
		return nil, repositories.ErrEmptyResult
	}

	s.metrics.RecordSegment(ctx, time.Since(start))
	return payload, nil
}

func (s *GenerationService) metadata(req entities.GenerationRequest, plan entities.SegmentPlan, combined entities.ConcatenatedAudio) entities.GenerationMetadata {
	seed := rand.IntN(metadataSeedRange)
	if req.Seed != nil {
		seed = *req.Seed
	}

	return entities.GenerationMetadata{
		Duration:        float64(req.Duration),
		Model:           s.generator.Model(),
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		Seed:            &seed,
		Version:         1,
		Cost:            entities.GenerationCost(float64(req.Duration)),
		Segments:        len(plan.Segments),
		SegmentDuration: plan.SegmentDuration,
		Concatenated:    !combined.Degraded,
		TotalSize:       combined.TotalSize,
	}
}

func (s *GenerationService) publish(sessionID string, eventType repositories.ProgressEventType, index, total int, errorType string) {
	if sessionID == "" {
		return
	}
	s.notifier.Publish(repositories.ProgressEvent{
		Type:          eventType,
		SessionID:     sessionID,
		SegmentIndex:  index,
		TotalSegments: total,
		ErrorType:     errorType,
		Timestamp:     time.Now(),
	})
}

type discardNotifier struct{}

func (discardNotifier) Publish(repositories.ProgressEvent) {}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
