// Package callog records translation service calls for traceability.
// Every provider call is captured with its request context, response,
// and metrics, in a bounded in-memory log served by the diagnostics
// endpoints.
package callog

import (
	"time"

	"github.com/google/uuid"

	"github.com/oguzhansen/comiclate/internal/providers"
)

// Call represents a recorded translation service call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	SessionID string `json:"session_id,omitempty"`
	PageIndex int    `json:"page_index"`
	Language  string `json:"language,omitempty"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	RequestID   string `json:"request_id,omitempty"`
	Attempts    int    `json:"attempts"`
	BubbleCount int    `json:"bubble_count"`
	Response    string `json:"response,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides session context for recording a call.
type RecordOptions struct {
	SessionID string
	PageIndex int
	Language  string
}

// FromTranslateResult creates a Call from a TranslateResult.
// Returns nil if result is nil.
func FromTranslateResult(result *providers.TranslateResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		SessionID:    opts.SessionID,
		PageIndex:    opts.PageIndex,
		Language:     opts.Language,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		RequestID:    result.RequestID,
		Attempts:     result.Attempts,
		BubbleCount:  len(result.Bubbles),
		Response:     result.RawResponse,
		Success:      result.Success,
	}

	if !result.Success {
		call.Error = result.ErrorMessage
	}

	return call
}
