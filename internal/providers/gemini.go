package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/oguzhansen/comiclate/internal/imaging"
)

const (
	GeminiName    = "gemini"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	geminiDefaultModel = "gemini-2.5-flash"
	geminiTemperature  = 0.2
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Rate limiting and retry
	RateLimit  int           // Requests per minute (default: 60)
	MaxRetries int           // Max attempts (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// GeminiClient implements Translator using the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	client     *http.Client
	limiter    *RateLimiter
	rateLimit  int
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiClient creates a new Gemini translation client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 60
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    NewRateLimiter(cfg.RateLimit),
		rateLimit:  cfg.RateLimit,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string { return GeminiName }

// RequestsPerMinute returns the configured rate limit.
func (c *GeminiClient) RequestsPerMinute() int { return c.rateLimit }

// LimiterStatus reports the state of the client's token bucket.
func (c *GeminiClient) LimiterStatus() RateLimiterStatus { return c.limiter.Status() }

// Translate sends one page to Gemini and decodes the bubble batch.
func (c *GeminiClient) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result := &TranslateResult{
		RequestID: requestID,
		Provider:  GeminiName,
		ModelUsed: c.model,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		result.ErrorType = "rate_limit_wait"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	// Bound the upload before transmission; failures fall back silently.
	upload := imaging.Resize(req.Image, MaxUploadDimension)

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{MimeType: upload.MIME, Data: upload.Base64()}},
				{Text: translationPrompt(req.Language)},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   json.RawMessage(compactJSON(bubblesSchemaJSON)),
			Temperature:      geminiTemperature,
		},
	}

	attempts := 0
	resp, err := retry.DoWithData(
		func() (*geminiResponse, error) {
			attempts++
			return c.doRequest(ctx, &body)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.MaxJitter(c.retryDelay/2),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	)
	result.Attempts = attempts
	if err != nil {
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.text()
	result.RawResponse = text
	result.PromptTokens = resp.UsageMetadata.PromptTokenCount
	result.CompletionTokens = resp.UsageMetadata.CandidatesTokenCount
	result.TotalTokens = resp.UsageMetadata.TotalTokenCount
	if text == "" {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no candidates in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("%w: no candidates in response", ErrMalformedResponse)
	}

	bubbles, err := decodeBubbles(text)
	if err != nil {
		result.ErrorType = "malformed_response"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	result.Success = true
	result.Bubbles = bubbles
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// doRequest performs one generateContent call. Retryable failures
// (transport errors, 429, 5xx) return plain errors; anything else is
// marked unrecoverable so retry-go stops immediately.
func (c *GeminiClient) doRequest(ctx context.Context, body *geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, retry.Unrecoverable(err)
	}

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return &out, nil
}

// Gemini API types

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
	Temperature      float64         `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	out := ""
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// Verify interface
var _ Translator = (*GeminiClient)(nil)
