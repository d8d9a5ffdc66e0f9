package adapters

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

// MemorySessionRepository is the in-memory Session Store.
// Sessions live for the lifetime of the process; a restart loses them.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.ChatSession // id -> session mapping
	logger   *zap.Logger
}

// Ensure MemorySessionRepository implements the SessionRepository interface
var _ repositories.SessionRepository = (*MemorySessionRepository)(nil)

// NewMemorySessionRepository creates an empty session store
func NewMemorySessionRepository(logger *zap.Logger) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*entities.ChatSession),
		logger:   logger,
	}
}

// Create implements SessionRepository interface
func (m *MemorySessionRepository) Create(ctx context.Context, title string) *entities.ChatSession {
	session := entities.NewChatSession(title)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("title", session.Title))

	return session.Clone()
}

// GetByID implements SessionRepository interface
func (m *MemorySessionRepository) GetByID(ctx context.Context, id string) (*entities.ChatSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, false
	}

	// Return a copy to prevent external modifications
	return session.Clone(), true
}

// List implements SessionRepository interface
func (m *MemorySessionRepository) List(ctx context.Context) []*entities.ChatSession {
	m.mu.RLock()
	result := make([]*entities.ChatSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session.Clone())
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Delete implements SessionRepository interface
func (m *MemorySessionRepository) Delete(ctx context.Context, id string) {
	m.mu.Lock()
	_, existed := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if existed {
		m.logger.Info("Session deleted", zap.String("session_id", id))
	}
}

// AppendMessage implements SessionRepository interface
func (m *MemorySessionRepository) AppendMessage(ctx context.Context, sessionID string, draft entities.MessageDraft) (*entities.ChatSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		m.logger.Warn("Append to unknown session", zap.String("session_id", sessionID))
		return nil, false
	}

	message := session.AddMessage(draft)

	m.logger.Debug("Message appended",
		zap.String("session_id", sessionID),
		zap.String("message_id", message.ID),
		zap.String("role", string(message.Role)),
		zap.Float64("total_cost", session.TotalCost))

	return session.Clone(), true
}
