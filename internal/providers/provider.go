// Package providers implements clients for the external vision-language
// services that detect and translate speech bubbles. Providers are
// registered by name and selected through config, with hot reload.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oguzhansen/comiclate/internal/imaging"
)

// MaxUploadDimension is the bound applied to page images before they
// are transmitted to a provider.
const MaxUploadDimension = 1536

var (
	// ErrMalformedResponse indicates the service returned nothing,
	// unparseable content, or a schema-violating payload.
	ErrMalformedResponse = errors.New("malformed translation response")

	// ErrTranslationFailed is the normalized user-facing failure for
	// any translation error. The cause is logged, not surfaced.
	ErrTranslationFailed = errors.New("failed to translate page, please try again")
)

// Translator is the interface every translation provider implements.
type Translator interface {
	// Translate detects and translates the speech bubbles on one page.
	Translate(ctx context.Context, req *TranslateRequest) (*TranslateResult, error)

	// Name returns the provider identifier (e.g. "gemini").
	Name() string

	// RequestsPerMinute reports the provider's rate limit.
	RequestsPerMinute() int
}

// TranslateRequest is one page translation request.
type TranslateRequest struct {
	// Image is the displayed page. It is preprocessed (resized to
	// MaxUploadDimension, JPEG) before transmission.
	Image imaging.DataImage

	// Language is the translation target.
	Language Language

	// RequestID tracks the request through logs and the call history.
	// Generated when empty.
	RequestID string
}

// Bubble is one detected speech balloon with its translation.
// Box is [ymin, xmin, ymax, xmax] on the 0-1000 scale.
type Bubble struct {
	ID             string `json:"id"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	Box            [4]int `json:"box"`
	Confidence     *int   `json:"confidence,omitempty"`
}

// TranslateResult is the complete outcome of one provider call.
type TranslateResult struct {
	Bubbles []Bubble `json:"bubbles"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Token counts, when the provider reports them
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// RawResponse holds the provider's text payload for the call log.
	RawResponse string `json:"-"`
}

// Language is a translation target drawn from the fixed set the
// product supports.
type Language string

const (
	Turkish  Language = "Turkish"
	English  Language = "English"
	Spanish  Language = "Spanish"
	Japanese Language = "Japanese"
	French   Language = "French"
	German   Language = "German"
	Korean   Language = "Korean"
	Chinese  Language = "Chinese (Simplified)"
)

// Languages returns the supported targets in display order.
func Languages() []Language {
	return []Language{Turkish, English, Spanish, Japanese, French, German, Korean, Chinese}
}

// ParseLanguage validates a language label.
func ParseLanguage(s string) (Language, error) {
	for _, l := range Languages() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported target language: %q", s)
}

// translationPrompt builds the instruction sent alongside the page.
func translationPrompt(target Language) string {
	return fmt.Sprintf(`Task: Comic Book Translation.
1. Detect all speech bubbles.
2. Extract the text in each bubble.
3. Translate it to %s.
4. Return bounding boxes [ymin, xmin, ymax, xmax] on a 0-1000 scale and a confidence score (0-100).

Constraints:
- Keep translations CONCISE and SHORT so they fit inside the original bubble area.
- Match the informal tone of a comic.
- Return JSON only.`, target)
}
