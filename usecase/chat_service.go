package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
	"github.com/RAWENTERISLIVE/music-ai/internal/failure"
)

const welcomeMessage = "🎵 Welcome to Lyria Chat! I can generate up to 5 minutes of professional instrumental music. Describe the music you'd like to create, and I'll craft it using Google's Lyria-002 model. You can also ask me to modify, extend, or create variations of any generated music."

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotAGeneration is returned when a variation targets a message
	// without generation metadata
	ErrNotAGeneration = errors.New("message has no generated music")
)

// SessionGeneration is a generation run inside a chat session
type SessionGeneration struct {
	Result  *GenerationResult
	Session *entities.ChatSession
}

// ChatService keeps chat sessions in step with the generations run in them
type ChatService struct {
	sessions   repositories.SessionRepository
	generation *GenerationService
	logger     *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(sessions repositories.SessionRepository, generation *GenerationService, logger *zap.Logger) *ChatService {
	return &ChatService{
		sessions:   sessions,
		generation: generation,
		logger:     logger,
	}
}

// CreateSession creates a session opened by the assistant's welcome message
func (s *ChatService) CreateSession(ctx context.Context, title string) *entities.ChatSession {
	session := s.sessions.Create(ctx, title)

	updated, ok := s.sessions.AppendMessage(ctx, session.ID, entities.MessageDraft{
		Role:    entities.MessageRoleAssistant,
		Content: welcomeMessage,
	})
	if !ok {
		return session
	}
	return updated
}

func (s *ChatService) GetSession(ctx context.Context, id string) (*entities.ChatSession, error) {
	session, ok := s.sessions.GetByID(ctx, id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context) []*entities.ChatSession {
	return s.sessions.List(ctx)
}

func (s *ChatService) DeleteSession(ctx context.Context, id string) {
	s.sessions.Delete(ctx, id)
}

// AddMessage appends a plain chat message
func (s *ChatService) AddMessage(ctx context.Context, sessionID string, draft entities.MessageDraft) (*entities.ChatSession, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	session, ok := s.sessions.AppendMessage(ctx, sessionID, draft)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Generate runs a generation inside a session. The user's prompt and the
// outcome are recorded as messages. A failed generation returns the updated
// session alongside a *failure.Error.
func (s *ChatService) Generate(ctx context.Context, sessionID string, req entities.GenerationRequest) (*SessionGeneration, error) {
	if _, ok := s.sessions.GetByID(ctx, sessionID); !ok {
		return nil, ErrSessionNotFound
	}

	userMessage := strings.TrimSpace(req.Prompt)
	if userMessage == "" && len(req.InspirationAudio) > 0 {
		userMessage = "Generate music inspired by the uploaded audio."
	}
	if userMessage != "" {
		s.sessions.AppendMessage(ctx, sessionID, entities.MessageDraft{
			Role:    entities.MessageRoleUser,
			Content: userMessage,
		})
	}

	req.SessionID = sessionID
	result, err := s.generation.Generate(ctx, req)
	if err != nil {
		return s.recordFailure(ctx, sessionID, req, err)
	}

	meta := result.Metadata
	s.sessions.AppendMessage(ctx, sessionID, entities.MessageDraft{
		Role:     entities.MessageRoleAssistant,
		Content:  fmt.Sprintf("🎵 Generated %gs of music! Cost: $%.3f", meta.Duration, meta.Cost),
		MusicURL: result.FullAudioURL,
		Metadata: &meta,
	})

	session := s.appendSuggestions(ctx, sessionID, result)

	return &SessionGeneration{Result: result, Session: session}, nil
}

// GenerateVariation re-generates a previous result with extra instructions.
// The variation keeps the parent's negative prompt and duration, shifts its
// seed by one and is billed at the variation rate.
func (s *ChatService) GenerateVariation(ctx context.Context, sessionID, messageID, instructions string) (*SessionGeneration, error) {
	session, ok := s.sessions.GetByID(ctx, sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	parent, ok := session.FindMessage(messageID)
	if !ok {
		return nil, ErrMessageNotFound
	}
	if parent.Role != entities.MessageRoleAssistant || parent.Metadata == nil || parent.Metadata.Prompt == "" {
		return nil, ErrNotAGeneration
	}

	req := entities.GenerationRequest{
		Prompt:         fmt.Sprintf("%s. %s", parent.Metadata.Prompt, instructions),
		NegativePrompt: parent.Metadata.NegativePrompt,
		Duration:       int(parent.Metadata.Duration),
		SessionID:      sessionID,
	}
	if parent.Metadata.Seed != nil {
		seed := *parent.Metadata.Seed + 1
		req.Seed = &seed
	}

	s.logger.Info("Generating variation",
		zap.String("session_id", sessionID),
		zap.String("parent_id", parent.ID),
		zap.Int("parent_version", parent.Metadata.Version))

	result, err := s.generation.Generate(ctx, req)
	if err != nil {
		return s.recordFailure(ctx, sessionID, req, err)
	}

	result.Metadata = entities.VariationMetadata(parent, result.Metadata)
	meta := result.Metadata

	updated, ok := s.sessions.AppendMessage(ctx, sessionID, entities.MessageDraft{
		Role:     entities.MessageRoleAssistant,
		Content:  fmt.Sprintf("🎵 **Variation created:** %s\nDuration: %gs | Cost: $%.3f", instructions, meta.Duration, meta.Cost),
		MusicURL: result.FullAudioURL,
		Metadata: &meta,
	})
	if !ok {
		return nil, ErrSessionNotFound
	}

	return &SessionGeneration{Result: result, Session: updated}, nil
}

// recordFailure appends the failure message with zero-cost metadata
func (s *ChatService) recordFailure(ctx context.Context, sessionID string, req entities.GenerationRequest, err error) (*SessionGeneration, error) {
	fe := failure.Classify(err, req.Prompt)

	session, ok := s.sessions.AppendMessage(ctx, sessionID, entities.MessageDraft{
		Role:    entities.MessageRoleAssistant,
		Content: fmt.Sprintf("❌ **Generation failed:** %s", fe.Text),
		Metadata: &entities.GenerationMetadata{
			Duration: float64(entities.ClampDuration(req.Duration)),
			Model:    s.generation.generator.Model(),
			Prompt:   req.Prompt,
			Version:  1,
		},
	})
	if !ok {
		return nil, ErrSessionNotFound
	}

	return &SessionGeneration{Session: session}, fe
}

func (s *ChatService) appendSuggestions(ctx context.Context, sessionID string, result *GenerationResult) *entities.ChatSession {
	if len(result.Suggestions) == 0 {
		session, _ := s.sessions.GetByID(ctx, sessionID)
		return session
	}

	var sb strings.Builder
	sb.WriteString("💡 **Suggestions for improvement:**\n")
	for _, suggestion := range result.Suggestions {
		sb.WriteString("• " + suggestion + "\n")
	}
	sb.WriteString("\n**Quick variations:**\n")
	for i, p := range result.ContinuationPrompts {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(`• "` + p + `"`)
	}

	session, _ := s.sessions.AppendMessage(ctx, sessionID, entities.MessageDraft{
		Role:    entities.MessageRoleAssistant,
		Content: sb.String(),
	})
	return session
}
