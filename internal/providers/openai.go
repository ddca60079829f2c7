package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/oguzhansen/comiclate/internal/imaging"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
	openAITemperature  = 0.2
)

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // Optional (tests, compatible gateways)
	Timeout    time.Duration
	RateLimit  int // Requests per minute (default: 60)
	MaxRetries int
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIClient implements Translator using the official OpenAI SDK
// chat completions with vision input.
type OpenAIClient struct {
	apiKey    string
	model     string
	rateLimit int
	limiter   *RateLimiter
	client    openai.Client
}

// NewOpenAIClient creates a new OpenAI translation client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
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

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		rateLimit: cfg.RateLimit,
		limiter:   NewRateLimiter(cfg.RateLimit),
		client:    openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// RequestsPerMinute returns the configured rate limit.
func (c *OpenAIClient) RequestsPerMinute() int { return c.rateLimit }

// LimiterStatus reports the state of the client's token bucket.
func (c *OpenAIClient) LimiterStatus() RateLimiterStatus { return c.limiter.Status() }

// Translate sends one page through the chat completions API and
// decodes the bubble batch. Structured output is enforced by prompt
// plus local schema validation; transport retries are handled by the
// SDK.
func (c *OpenAIClient) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result := &TranslateResult{
		RequestID: requestID,
		Provider:  OpenAIName,
		ModelUsed: c.model,
		Attempts:  1,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		result.ErrorType = "rate_limit_wait"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	upload := imaging.Resize(req.Image, MaxUploadDimension)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: upload.DataURI(),
		}),
		openai.TextContentPart(translationPrompt(req.Language)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		Temperature: openai.Float(openAITemperature),
	})
	if err != nil {
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("openai request failed: %w", err)
	}

	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ModelUsed = resp.Model

	if len(resp.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	content := resp.Choices[0].Message.Content
	result.RawResponse = content

	bubbles, err := decodeBubbles(content)
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

// Verify interface
var _ Translator = (*OpenAIClient)(nil)
