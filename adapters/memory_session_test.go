package adapters

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
)

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(zaptest.NewLogger(t))

	t.Run("CreateAndGetSession", func(t *testing.T) {
		session := repo.Create(ctx, "Orchestral ideas")

		retrieved, ok := repo.GetByID(ctx, session.ID)
		if !ok {
			t.Fatalf("Expected session %s to exist", session.ID)
		}
		if retrieved.Title != "Orchestral ideas" {
			t.Errorf("Expected title 'Orchestral ideas', got %s", retrieved.Title)
		}
		if len(retrieved.Messages) != 0 || retrieved.TotalCost != 0 {
			t.Error("Expected a fresh session to be empty")
		}
	})

	t.Run("DefaultTitle", func(t *testing.T) {
		session := repo.Create(ctx, "")
		if session.Title != entities.DefaultSessionTitle {
			t.Errorf("Expected default title, got %s", session.Title)
		}
	})

	t.Run("GetUnknownSession", func(t *testing.T) {
		if _, ok := repo.GetByID(ctx, "does-not-exist"); ok {
			t.Error("Expected unknown session to be absent")
		}
	})

	t.Run("AppendToUnknownSession", func(t *testing.T) {
		session, ok := repo.AppendMessage(ctx, "does-not-exist", entities.MessageDraft{
			Role:    entities.MessageRoleUser,
			Content: "hello",
		})
		if ok || session != nil {
			t.Error("Expected append to unknown session to report absence")
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		session := repo.Create(ctx, "to delete")
		repo.Delete(ctx, session.ID)
		repo.Delete(ctx, session.ID)

		if _, ok := repo.GetByID(ctx, session.ID); ok {
			t.Error("Expected deleted session to be absent")
		}
	})
}

func TestMemorySessionRepository_RunningCost(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(zaptest.NewLogger(t))
	session := repo.Create(ctx, "")

	costs := []float64{0.08, 0.24, 0.03}
	expected := 0.0
	for _, cost := range costs {
		repo.AppendMessage(ctx, session.ID, entities.MessageDraft{Role: entities.MessageRoleUser, Content: "prompt"})
		updated, ok := repo.AppendMessage(ctx, session.ID, entities.MessageDraft{
			Role:     entities.MessageRoleAssistant,
			Content:  "done",
			Metadata: &entities.GenerationMetadata{Cost: cost},
		})
		if !ok {
			t.Fatal("Expected append to succeed")
		}
		expected += cost
		if math.Abs(updated.TotalCost-expected) > 1e-9 {
			t.Errorf("Expected running cost %f, got %f", expected, updated.TotalCost)
		}
	}

	// Re-reading must not re-apply any cost
	for i := 0; i < 3; i++ {
		reread, _ := repo.GetByID(ctx, session.ID)
		if math.Abs(reread.TotalCost-expected) > 1e-9 {
			t.Errorf("Expected re-read cost %f, got %f", expected, reread.TotalCost)
		}
	}
}

func TestMemorySessionRepository_SnapshotsAreNotAliased(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(zaptest.NewLogger(t))
	session := repo.Create(ctx, "")

	first, _ := repo.AppendMessage(ctx, session.ID, entities.MessageDraft{Role: entities.MessageRoleUser, Content: "one"})
	repo.AppendMessage(ctx, session.ID, entities.MessageDraft{Role: entities.MessageRoleUser, Content: "two"})

	if len(first.Messages) != 1 {
		t.Errorf("Expected earlier snapshot to keep 1 message, got %d", len(first.Messages))
	}

	first.Messages[0].Content = "mutated"
	current, _ := repo.GetByID(ctx, session.ID)
	if current.Messages[0].Content != "one" {
		t.Error("Mutating a snapshot must not change stored messages")
	}
}

func TestMemorySessionRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(zaptest.NewLogger(t))

	older := repo.Create(ctx, "older")
	time.Sleep(5 * time.Millisecond)
	newer := repo.Create(ctx, "newer")

	sessions := repo.List(ctx)
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != newer.ID || sessions[1].ID != older.ID {
		t.Error("Expected sessions ordered newest first")
	}
}

func TestMemorySessionRepository_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(zaptest.NewLogger(t))
	session := repo.Create(ctx, "")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			repo.AppendMessage(ctx, session.ID, entities.MessageDraft{
				Role:     entities.MessageRoleAssistant,
				Metadata: &entities.GenerationMetadata{Cost: 0.01},
			})
		}()
		go func() {
			defer wg.Done()
			repo.GetByID(ctx, session.ID)
			repo.List(ctx)
		}()
	}
	wg.Wait()

	final, _ := repo.GetByID(ctx, session.ID)
	if len(final.Messages) != writers {
		t.Errorf("Expected %d messages, got %d", writers, len(final.Messages))
	}
	if math.Abs(final.TotalCost-0.2) > 1e-9 {
		t.Errorf("Expected total cost 0.2, got %f", final.TotalCost)
	}
}
