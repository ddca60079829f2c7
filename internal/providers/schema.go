package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/oguzhansen/comiclate/internal/overlay"
)

// bubblesSchemaJSON is the canonical response contract: an object with
// a bubbles array whose elements all carry originalText, translatedText,
// box_2d (4 integers, 0-1000) and confidence (0-100).
const bubblesSchemaJSON = `{
  "type": "object",
  "properties": {
    "bubbles": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "originalText": {"type": "string"},
          "translatedText": {"type": "string"},
          "box_2d": {
            "type": "array",
            "items": {"type": "integer", "minimum": 0, "maximum": 1000},
            "minItems": 4,
            "maxItems": 4
          },
          "confidence": {"type": "integer", "minimum": 0, "maximum": 100}
        },
        "required": ["originalText", "translatedText", "box_2d", "confidence"]
      }
    }
  },
  "required": ["bubbles"]
}`

var bubblesSchema = jsonschema.MustCompileString("bubbles.json", bubblesSchemaJSON)

// wireBubble matches the provider's JSON field names.
type wireBubble struct {
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	Box2D          []int  `json:"box_2d"`
	Confidence     *int   `json:"confidence"`
}

type wireResponse struct {
	Bubbles []wireBubble `json:"bubbles"`
}

// decodeBubbles parses and validates a provider's text payload and
// converts it into identified bubbles. All contract violations come
// back wrapped in ErrMalformedResponse.
func decodeBubbles(content string) ([]Bubble, error) {
	raw, err := parseStructuredJSON(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := bubblesSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// The schema bounds each coordinate but cannot express ordering;
	// an inverted box would render as a negative-extent region.
	for _, wb := range resp.Bubbles {
		var box [4]int
		copy(box[:], wb.Box2D)
		if !overlay.Valid(box) {
			return nil, fmt.Errorf("%w: box %v is not ordered [ymin, xmin, ymax, xmax]", ErrMalformedResponse, wb.Box2D)
		}
	}

	return assignIDs(resp.Bubbles), nil
}

// assignIDs gives each bubble a process-unique id derived from its
// position in the batch plus a timestamp; the external service supplies
// no identifiers of its own.
func assignIDs(wire []wireBubble) []Bubble {
	now := time.Now().UnixMilli()
	bubbles := make([]Bubble, len(wire))
	for i, wb := range wire {
		var box [4]int
		copy(box[:], wb.Box2D)
		bubbles[i] = Bubble{
			ID:             fmt.Sprintf("bubble-%d-%d", i, now),
			OriginalText:   wb.OriginalText,
			TranslatedText: wb.TranslatedText,
			Box:            box,
			Confidence:     wb.Confidence,
		}
	}
	return bubbles
}

// parseStructuredJSON parses JSON from model output, with lightweight
// recovery for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(trimmed, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// compactJSON normalizes a schema document for request embedding.
func compactJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return raw
	}
	return buf.String()
}
