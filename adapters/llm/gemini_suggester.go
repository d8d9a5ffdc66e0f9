package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.9
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 10

	suggestionCount = 5

	suggestionInstruction = `You help people write prompts for an instrumental music generator.
Given the user's prompt, reply with JSON only:
{"suggestions": [5 short tips to make the prompt more specific], "continuationPrompts": [5 short phrases that extend the piece]}
Never mention artists, bands or song titles.

Prompt: %s`
)

// GeminiConfig holds configuration for the Gemini prompt suggester
// Required fields:
// - APIKey: Google AI API key
// Optional fields with defaults:
// - Model: model name (default: "gemini-2.0-flash")
// - Temperature: sampling temperature between 0 and 2 (default: 0.9)
// - MaxOutputTokens: response token limit (default: 1024)
// - TimeoutSeconds: request timeout (default: 10)
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// contentGenerator is satisfied by genai's Models service
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSuggester asks Gemini for prompt tips and falls back to the static
// lists whenever the answer is unusable
type GeminiSuggester struct {
	models          contentGenerator
	model           string
	temperature     float32
	maxOutputTokens int
	timeout         time.Duration
	logger          *zap.Logger
}

var _ repositories.PromptSuggester = (*GeminiSuggester)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewGeminiSuggester creates a new Gemini backed suggester
func NewGeminiSuggester(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiSuggester, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiSuggester(client.Models, config, logger), nil
}

func newGeminiSuggester(models contentGenerator, config GeminiConfig, logger *zap.Logger) *GeminiSuggester {
	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultTemperature)
		logger.Info("Using default temperature", zap.Float32("temperature", temperature))
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", maxOutputTokens))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	return &GeminiSuggester{
		models:          models,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		timeout:         time.Duration(timeoutSeconds) * time.Second,
		logger:          logger,
	}
}

// Suggest implements PromptSuggester interface. It never returns an error;
// failures are logged and answered with the static lists.
func (g *GeminiSuggester) Suggest(ctx context.Context, prompt string) (repositories.PromptSuggestions, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(suggestionInstruction, prompt), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		MaxOutputTokens:  int32(g.maxOutputTokens),
		ResponseMIMEType: "application/json",
	}

	response, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Warn("Failed to generate suggestions, using static list", zap.Error(err))
		return StaticSuggestions(), nil
	}

	text := responseText(response)
	if text == "" {
		g.logger.Warn("Empty suggestion response, using static list")
		return StaticSuggestions(), nil
	}

	var parsed repositories.PromptSuggestions
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		g.logger.Warn("Unparseable suggestion response, using static list",
			zap.Error(err),
			zap.String("response_preview", text[:min(80, len(text))]))
		return StaticSuggestions(), nil
	}

	static := StaticSuggestions()
	return repositories.PromptSuggestions{
		Suggestions:         fill(clean(parsed.Suggestions), static.Suggestions),
		ContinuationPrompts: fill(clean(parsed.ContinuationPrompts), static.ContinuationPrompts),
	}, nil
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// fill tops up or cuts items to exactly suggestionCount entries
func fill(items, fallback []string) []string {
	if len(items) >= suggestionCount {
		return items[:suggestionCount]
	}
	for _, f := range fallback {
		if len(items) == suggestionCount {
			break
		}
		items = append(items, f)
	}
	return items
}
