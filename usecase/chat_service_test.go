package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/RAWENTERISLIVE/music-ai/adapters"
	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/internal/failure"
)

func newTestChatService(t *testing.T, gen *fakeGenerator) *ChatService {
	logger := zaptest.NewLogger(t)
	generation := NewGenerationService(gen, fakeSuggester{}, nil, nil, logger)
	return NewChatService(adapters.NewMemorySessionRepository(logger), generation, logger)
}

func TestChatService_CreateSession(t *testing.T) {
	svc := newTestChatService(t, newFakeGenerator())

	session := svc.CreateSession(context.Background(), "")
	if session.Title != entities.DefaultSessionTitle {
		t.Errorf("Expected default title, got %s", session.Title)
	}
	if len(session.Messages) != 1 || session.Messages[0].Role != entities.MessageRoleAssistant {
		t.Fatalf("Expected a welcome message, got %+v", session.Messages)
	}
	if !strings.HasPrefix(session.Messages[0].Content, "🎵 Welcome to Lyria Chat!") {
		t.Errorf("Unexpected welcome message: %s", session.Messages[0].Content)
	}
	if session.TotalCost != 0 {
		t.Errorf("Welcome message must be free, got %f", session.TotalCost)
	}
}

func TestChatService_UnknownSession(t *testing.T) {
	svc := newTestChatService(t, newFakeGenerator())
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.AddMessage(ctx, "missing", entities.MessageDraft{Role: entities.MessageRoleUser}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Generate(ctx, "missing", entities.GenerationRequest{Prompt: "p"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.GenerateVariation(ctx, "missing", "m", "more brass"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestChatService_GenerateRecordsMessages(t *testing.T) {
	svc := newTestChatService(t, newFakeGenerator())
	ctx := context.Background()
	session := svc.CreateSession(ctx, "Score")

	out, err := svc.Generate(ctx, session.ID, entities.GenerationRequest{Prompt: "heroic brass", Duration: 60})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	msgs := out.Session.Messages
	// welcome, user prompt, result, suggestions
	if len(msgs) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(msgs))
	}
	if msgs[1].Role != entities.MessageRoleUser || msgs[1].Content != "heroic brass" {
		t.Errorf("Unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Content != "🎵 Generated 60s of music! Cost: $0.160" {
		t.Errorf("Unexpected result message: %s", msgs[2].Content)
	}
	if msgs[2].MusicURL != out.Result.FullAudioURL || msgs[2].Metadata == nil {
		t.Error("Result message must carry the track and its metadata")
	}
	if !strings.Contains(msgs[3].Content, "• add strings") || !strings.Contains(msgs[3].Content, `• "build to a finale"`) {
		t.Errorf("Unexpected suggestions message: %s", msgs[3].Content)
	}
	if math.Abs(out.Session.TotalCost-0.16) > 1e-9 {
		t.Errorf("Expected total cost 0.16, got %f", out.Session.TotalCost)
	}
}

func TestChatService_GenerateFailure(t *testing.T) {
	gen := newFakeGenerator()
	gen.failAt = 0
	gen.err = errors.New("Quota exceeded for lyria")
	svc := newTestChatService(t, gen)
	ctx := context.Background()
	session := svc.CreateSession(ctx, "")

	out, err := svc.Generate(ctx, session.ID, entities.GenerationRequest{Prompt: "p", Duration: 30})
	fe, ok := failure.As(err)
	if !ok || fe.Kind != failure.KindServiceUnavailable {
		t.Fatalf("Expected SERVICE_UNAVAILABLE, got %v", err)
	}

	last := out.Session.Messages[len(out.Session.Messages)-1]
	if last.Content != "❌ **Generation failed:** The music generation service is temporarily unavailable." {
		t.Errorf("Unexpected failure message: %s", last.Content)
	}
	if last.Metadata == nil || last.Metadata.Cost != 0 {
		t.Error("Failure messages carry zero-cost metadata")
	}
	if out.Session.TotalCost != 0 {
		t.Errorf("Failures must not cost anything, got %f", out.Session.TotalCost)
	}
}

func TestChatService_GenerateVariation(t *testing.T) {
	gen := newFakeGenerator()
	svc := newTestChatService(t, gen)
	ctx := context.Background()
	session := svc.CreateSession(ctx, "")
	seed := 7

	original, err := svc.Generate(ctx, session.ID, entities.GenerationRequest{
		Prompt:         "ambient pads",
		NegativePrompt: "drums",
		Duration:       60,
		Seed:           &seed,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	parent := original.Session.Messages[2]

	variation, err := svc.GenerateVariation(ctx, session.ID, parent.ID, "add a cello line")
	if err != nil {
		t.Fatalf("GenerateVariation failed: %v", err)
	}

	calls := gen.calls()
	first := calls[len(calls)-2]
	if !strings.Contains(first.Prompt, "ambient pads. add a cello line") {
		t.Errorf("Expected combined prompt, got %s", first.Prompt)
	}
	if first.NegativePrompt != "drums" {
		t.Errorf("Expected parent negative prompt, got %s", first.NegativePrompt)
	}
	if first.Seed == nil || *first.Seed != 8 {
		t.Errorf("Expected seed 8, got %v", first.Seed)
	}

	meta := variation.Result.Metadata
	if meta.Version != 2 || meta.ParentID != parent.ID {
		t.Errorf("Expected version 2 with parent %s, got %+v", parent.ID, meta)
	}
	if math.Abs(meta.Cost-0.06) > 1e-9 {
		t.Errorf("Expected variation cost 0.06, got %f", meta.Cost)
	}
	if meta.Duration != 60 {
		t.Errorf("Expected parent duration, got %v", meta.Duration)
	}

	last := variation.Session.Messages[len(variation.Session.Messages)-1]
	if !strings.HasPrefix(last.Content, "🎵 **Variation created:** add a cello line") {
		t.Errorf("Unexpected variation message: %s", last.Content)
	}
	if math.Abs(variation.Session.TotalCost-(0.16+0.06)) > 1e-9 {
		t.Errorf("Expected total cost 0.22, got %f", variation.Session.TotalCost)
	}

	// A variation of the variation bumps the version again
	second, err := svc.GenerateVariation(ctx, session.ID, last.ID, "slower")
	if err != nil {
		t.Fatalf("Second variation failed: %v", err)
	}
	if second.Result.Metadata.Version != 3 {
		t.Errorf("Expected version 3, got %d", second.Result.Metadata.Version)
	}
}

func TestChatService_VariationTargets(t *testing.T) {
	svc := newTestChatService(t, newFakeGenerator())
	ctx := context.Background()
	session := svc.CreateSession(ctx, "")

	if _, err := svc.GenerateVariation(ctx, session.ID, "missing", "x"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}

	welcome := session.Messages[0]
	if _, err := svc.GenerateVariation(ctx, session.ID, welcome.ID, "x"); !errors.Is(err, ErrNotAGeneration) {
		t.Errorf("Expected ErrNotAGeneration, got %v", err)
	}
}

func TestChatService_BlankPromptAddsNoUserMessage(t *testing.T) {
	gen := newFakeGenerator()
	svc := newTestChatService(t, gen)
	ctx := context.Background()
	session := svc.CreateSession(ctx, "")

	out, err := svc.Generate(ctx, session.ID, entities.GenerationRequest{Prompt: "   "})
	fe, ok := failure.As(err)
	if !ok || fe.Kind != failure.KindGenerationFailed {
		t.Fatalf("Expected GENERATION_FAILED, got %v", err)
	}
	if len(gen.calls()) != 0 {
		t.Errorf("Expected no provider calls, got %d", len(gen.calls()))
	}

	// welcome, failure
	if len(out.Session.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(out.Session.Messages))
	}
	for _, msg := range out.Session.Messages {
		if msg.Role == entities.MessageRoleUser {
			t.Errorf("Expected no user message, got %q", msg.Content)
		}
	}
}
