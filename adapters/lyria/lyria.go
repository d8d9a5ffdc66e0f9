package lyria

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

const (
	defaultLocation       = "us-central1"
	defaultModel          = "lyria-002"
	defaultTimeout        = 120 * time.Second
	defaultNegativePrompt = "low quality, distorted, noise, static, poor audio quality"
	defaultTemperature    = 0.7

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	// maxErrorBodyBytes bounds how much of a failed response is kept
	maxErrorBodyBytes = 4096
)

// LyriaConfig holds configuration for the Lyria adapter
// Required fields:
// - ProjectID: Google Cloud project, read from the credentials file when empty
// Optional fields with defaults:
// - Location: Vertex AI region (default: "us-central1")
// - Model: publisher model id (default: "lyria-002")
// - CredentialsFile: service account key, Application Default Credentials otherwise
// - APIBaseURL: overrides https://{location}-aiplatform.googleapis.com/v1
// - Timeout: per segment request timeout (default: 120s)
// - TokenSource: overrides credential discovery
type LyriaConfig struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
	APIBaseURL      string
	Timeout         time.Duration
	TokenSource     oauth2.TokenSource
}

// ProviderError is a non-2xx answer from the prediction endpoint
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider request failed with status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the upstream status code
func (e *ProviderError) HTTPStatus() int {
	return e.StatusCode
}

// LyriaClient implements MusicGenerator against the Vertex AI predict endpoint
type LyriaClient struct {
	httpClient *http.Client
	endpoint   string
	model      string
	timeout    time.Duration
	logger     *zap.Logger
}

// Ensure LyriaClient implements the MusicGenerator interface
var _ repositories.MusicGenerator = (*LyriaClient)(nil)

type predictInstance struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Duration       int     `json:"duration"`
	Seed           *int    `json:"seed,omitempty"`
	Temperature    float64 `json:"temperature"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters map[string]any    `json:"parameters"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// ValidateLyriaConfig validates the LyriaConfig
func ValidateLyriaConfig(config LyriaConfig) error {
	if config.ProjectID == "" {
		return fmt.Errorf("vertex AI project id is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewLyriaClient creates a new Lyria client. Credentials are resolved once;
// the token source refreshes access tokens as needed.
func NewLyriaClient(ctx context.Context, config LyriaConfig, logger *zap.Logger) (*LyriaClient, error) {
	tokenSource := config.TokenSource
	if tokenSource == nil {
		creds, err := findCredentials(ctx, config.CredentialsFile)
		if err != nil {
			return nil, err
		}
		tokenSource = creds.TokenSource
		if config.ProjectID == "" && creds.ProjectID != "" {
			config.ProjectID = creds.ProjectID
			logger.Info("Using project id from credentials", zap.String("projectID", config.ProjectID))
		}
	}

	if err := ValidateLyriaConfig(config); err != nil {
		return nil, err
	}

	location := config.Location
	if location == "" {
		location = defaultLocation
		logger.Info("Using default location", zap.String("location", location))
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	baseURL := config.APIBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", location)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Timeout = timeout

	return &LyriaClient{
		httpClient: httpClient,
		endpoint: fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:predict",
			baseURL, config.ProjectID, location, model),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func findCredentials(ctx context.Context, credentialsFile string) (*google.Credentials, error) {
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		return creds, nil
	}

	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	return creds, nil
}

// Model implements MusicGenerator interface
func (l *LyriaClient) Model() string {
	return l.model
}

// Generate implements MusicGenerator interface. It issues exactly one request
// and never retries.
func (l *LyriaClient) Generate(ctx context.Context, req repositories.SegmentRequest) (*repositories.AudioPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	instance := predictInstance{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Duration:       req.DurationSeconds,
		Seed:           req.Seed,
		Temperature:    defaultTemperature,
	}
	if instance.NegativePrompt == "" {
		instance.NegativePrompt = defaultNegativePrompt
	}
	if req.Temperature != nil {
		instance.Temperature = *req.Temperature
	}

	requestBody, err := json.Marshal(predictRequest{
		Instances:  []predictInstance{instance},
		Parameters: map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	l.logger.Debug("Sending segment request to Lyria",
		zap.Int("segment", req.Index),
		zap.Int("duration", instance.Duration),
		zap.Int("promptLength", len(instance.Prompt)))

	start := time.Now()
	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		l.logger.Error("Lyria API returned error",
			zap.Int("segment", req.Index),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(errorBody)}
	}

	var prediction predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(prediction.Predictions) == 0 || prediction.Predictions[0].BytesBase64Encoded == "" {
		return nil, repositories.ErrEmptyResult
	}

	data, err := base64.StdEncoding.DecodeString(prediction.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}
	if len(data) == 0 {
		return nil, repositories.ErrEmptyResult
	}

	mimeType := prediction.Predictions[0].MimeType
	if mimeType == "" {
		mimeType = entities.WAVMimeType
	}

	l.logger.Info("Received segment from Lyria",
		zap.Int("segment", req.Index),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	return &repositories.AudioPayload{Data: data, MimeType: mimeType}, nil
}
