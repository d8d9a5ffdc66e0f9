package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/internal/failure"
	"github.com/RAWENTERISLIVE/music-ai/internal/websocket"
	"github.com/RAWENTERISLIVE/music-ai/usecase"
)

// Handlers holds the dependencies of the HTTP routes
type Handlers struct {
	Generation *usecase.GenerationService
	Chat       *usecase.ChatService
	Hub        *websocket.Hub
	// Metrics is mounted on /metrics when set
	Metrics http.Handler
	Logger  *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", h.health)
	e.GET("/api/health", h.health)

	e.POST("/generate", h.generate)
	e.POST("/api/generate-music", h.generate)

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/sessions", h.createSession)
	v1.GET("/sessions", h.listSessions)
	v1.GET("/sessions/:id", h.getSession)
	v1.DELETE("/sessions/:id", h.deleteSession)
	v1.POST("/sessions/:id/messages", h.addMessage)
	v1.POST("/sessions/:id/generate", h.generateInSession)
	v1.POST("/sessions/:id/messages/:messageId/variations", h.generateVariation)

	// Progress stream
	e.GET("/ws/sessions/:id", h.watchSession)

	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "Server is running",
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handlers) generate(c echo.Context) error {
	req, err := h.bindGenerationRequest(c)
	if err != nil {
		return err
	}

	result, err := h.Generation.Generate(c.Request().Context(), req)
	if err != nil {
		fe := failure.Classify(err, req.Prompt)
		return c.JSON(fe.Status, GenerateFailureResponse{Success: false, Error: fe})
	}

	return c.JSON(http.StatusOK, GenerateSuccessResponse{Success: true, GenerationResult: result})
}

// bindGenerationRequest reads the multipart generation form. Unparseable
// numeric fields are treated as absent.
func (h *Handlers) bindGenerationRequest(c echo.Context) (entities.GenerationRequest, error) {
	req := entities.GenerationRequest{
		Prompt:         strings.TrimSpace(c.FormValue("prompt")),
		NegativePrompt: strings.TrimSpace(c.FormValue("negativePrompt")),
	}

	if v := c.FormValue("duration"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			req.Duration = d
		}
	}
	if v := c.FormValue("seed"); v != "" {
		if seed, err := strconv.Atoi(v); err == nil {
			req.Seed = &seed
		}
	}
	if v := c.FormValue("temperature"); v != "" {
		if temp, err := strconv.ParseFloat(v, 64); err == nil {
			req.Temperature = &temp
		}
	}

	file, err := c.FormFile("inspirationAudio")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		h.Logger.Warn("Failed to read inspiration audio", zap.Error(err))
	default:
		src, err := file.Open()
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "invalid inspiration audio")
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "invalid inspiration audio")
		}
		req.InspirationAudio = data
		h.Logger.Info("Inspiration audio received",
			zap.String("filename", file.Filename),
			zap.Int("size", len(data)))
	}

	return req, nil
}

func (h *Handlers) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request format",
			})
		}
	}

	session := h.Chat.CreateSession(c.Request().Context(), strings.TrimSpace(req.Title))
	return c.JSON(http.StatusCreated, session)
}

func (h *Handlers) listSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Chat.ListSessions(c.Request().Context()))
}

func (h *Handlers) getSession(c echo.Context) error {
	session, err := h.Chat.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handlers) deleteSession(c echo.Context) error {
	h.Chat.DeleteSession(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) addMessage(c echo.Context) error {
	var req AddMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	session, err := h.Chat.AddMessage(c.Request().Context(), c.Param("id"), entities.MessageDraft{
		Role:    entities.MessageRole(req.Role),
		Content: req.Content,
	})
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handlers) generateInSession(c echo.Context) error {
	req, err := h.bindGenerationRequest(c)
	if err != nil {
		return err
	}

	out, err := h.Chat.Generate(c.Request().Context(), c.Param("id"), req)
	return sessionGenerationResponse(c, out, err)
}

func (h *Handlers) generateVariation(c echo.Context) error {
	var req VariationRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Instructions) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Variation instructions are required",
		})
	}

	out, err := h.Chat.GenerateVariation(c.Request().Context(), c.Param("id"), c.Param("messageId"), strings.TrimSpace(req.Instructions))
	return sessionGenerationResponse(c, out, err)
}

func (h *Handlers) watchSession(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := h.Chat.GetSession(c.Request().Context(), sessionID); err != nil {
		return sessionError(c, err)
	}
	return websocket.HandleWebSocket(h.Hub, c, sessionID, h.Logger)
}

func sessionGenerationResponse(c echo.Context, out *usecase.SessionGeneration, err error) error {
	if err != nil {
		fe, ok := failure.As(err)
		if !ok {
			return sessionError(c, err)
		}
		var session *entities.ChatSession
		if out != nil {
			session = out.Session
		}
		return c.JSON(fe.Status, GenerateFailureResponse{Success: false, Error: fe, Session: session})
	}

	return c.JSON(http.StatusOK, GenerateSuccessResponse{
		Success:          true,
		GenerationResult: out.Result,
		Session:          out.Session,
	})
}

// sessionError maps session lookup errors to responses
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Session not found",
		})
	case errors.Is(err, usecase.ErrMessageNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "message_not_found",
			Message: "Message not found",
		})
	case errors.Is(err, usecase.ErrNotAGeneration):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "not_a_generation",
			Message: err.Error(),
		})
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}
}
