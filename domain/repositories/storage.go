package repositories

import (
	"context"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
)

// SessionRepository owns every chat session for the process lifetime.
// Lookups on unknown ids report absence instead of failing.
type SessionRepository interface {
	Create(ctx context.Context, title string) *entities.ChatSession
	GetByID(ctx context.Context, id string) (*entities.ChatSession, bool)
	// List returns sessions ordered newest-created first
	List(ctx context.Context) []*entities.ChatSession
	// Delete is idempotent
	Delete(ctx context.Context, id string)
	AppendMessage(ctx context.Context, sessionID string, draft entities.MessageDraft) (*entities.ChatSession, bool)
}
