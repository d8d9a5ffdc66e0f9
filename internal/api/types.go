package api

import (
	"time"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/internal/failure"
	"github.com/RAWENTERISLIVE/music-ai/usecase"
)

// ErrorResponse represents error response for non-generation routes
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerateSuccessResponse wraps a generation result
type GenerateSuccessResponse struct {
	Success bool `json:"success"`
	*usecase.GenerationResult
	Session *entities.ChatSession `json:"session,omitempty"`
}

// GenerateFailureResponse wraps a classified generation failure
type GenerateFailureResponse struct {
	Success bool `json:"success"`
	*failure.Error
	Session *entities.ChatSession `json:"session,omitempty"`
}

// CreateSessionRequest represents session creation request
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// AddMessageRequest represents a plain chat message
type AddMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// VariationRequest asks for a variation of a generated message
type VariationRequest struct {
	Instructions string `json:"instructions"`
}
