package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oguzhansen/comiclate/internal/imaging"
)

func testImage() imaging.DataImage {
	return imaging.DataImage{MIME: "image/jpeg", Data: []byte("fake-page-bytes")}
}

func geminiPayload(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": text},
					},
				},
			},
		},
		"usageMetadata": map[string]int{
			"promptTokenCount":     120,
			"candidatesTokenCount": 40,
			"totalTokenCount":      160,
		},
	}
}

const validBubblesJSON = `{"bubbles":[{"originalText":"こんにちは","translatedText":"Hello","box_2d":[100,100,200,400],"confidence":92}]}`

func TestGeminiClient_Translate(t *testing.T) {
	t.Run("successful translation", func(t *testing.T) {
		var gotPath string
		var gotReq geminiRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if key := r.Header.Get("x-goog-api-key"); key != "test-key" {
				t.Errorf("unexpected api key header: %s", key)
			}
			json.NewDecoder(r.Body).Decode(&gotReq)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(geminiPayload(validBubblesJSON))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Translate(context.Background(), &TranslateRequest{
			Image:    testImage(),
			Language: English,
		})

		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if gotPath != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("unexpected path: %s", gotPath)
		}
		if len(result.Bubbles) != 1 {
			t.Fatalf("expected 1 bubble, got %d", len(result.Bubbles))
		}
		b := result.Bubbles[0]
		if b.TranslatedText != "Hello" {
			t.Errorf("TranslatedText = %q", b.TranslatedText)
		}
		if b.Box != [4]int{100, 100, 200, 400} {
			t.Errorf("Box = %v", b.Box)
		}
		if b.Confidence == nil || *b.Confidence != 92 {
			t.Errorf("Confidence = %v", b.Confidence)
		}
		if b.ID == "" {
			t.Error("expected generated bubble id")
		}
		if result.TotalTokens != 160 {
			t.Errorf("TotalTokens = %d, want 160", result.TotalTokens)
		}
		if result.RequestID == "" {
			t.Error("expected generated request id")
		}

		// The request must carry inline image data plus the prompt,
		// and pin the JSON response contract.
		if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected request shape: %+v", gotReq)
		}
		if gotReq.Contents[0].Parts[0].InlineData == nil {
			t.Error("expected inline image part first")
		}
		if gotReq.Contents[0].Parts[1].Text == "" {
			t.Error("expected prompt text part")
		}
		if gotReq.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("responseMimeType = %s", gotReq.GenerationConfig.ResponseMimeType)
		}
		if len(gotReq.GenerationConfig.ResponseSchema) == 0 {
			t.Error("expected responseSchema to be set")
		}
	})

	t.Run("schema violation is malformed", func(t *testing.T) {
		// box_2d has only 3 elements.
		bad := `{"bubbles":[{"originalText":"a","translatedText":"b","box_2d":[1,2,3],"confidence":50}]}`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(geminiPayload(bad))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.Translate(context.Background(), &TranslateRequest{
			Image:    testImage(),
			Language: Turkish,
		})

		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
		if result.Success {
			t.Error("expected Success = false")
		}
		if result.ErrorType != "malformed_response" {
			t.Errorf("ErrorType = %s", result.ErrorType)
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.Translate(context.Background(), &TranslateRequest{
			Image:    testImage(),
			Language: English,
		})
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(geminiPayload(validBubblesJSON))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})

		result, err := client.Translate(context.Background(), &TranslateRequest{
			Image:    testImage(),
			Language: English,
		})
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"message": "invalid argument"}}`))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})

		result, err := client.Translate(context.Background(), &TranslateRequest{
			Image:    testImage(),
			Language: English,
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if result.ErrorType != "http_error" {
			t.Errorf("ErrorType = %s", result.ErrorType)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Translate(ctx, &TranslateRequest{
			Image:    testImage(),
			Language: English,
		})
		if err == nil {
			t.Error("expected error from cancelled context")
		}
	})

	t.Run("preserves caller request id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(geminiPayload(validBubblesJSON))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.Translate(context.Background(), &TranslateRequest{
			Image:     testImage(),
			Language:  English,
			RequestID: "req-42",
		})
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if result.RequestID != "req-42" {
			t.Errorf("RequestID = %s, want req-42", result.RequestID)
		}
	})
}

func TestGeminiClient_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewGeminiClient(GeminiConfig{APIKey: "test-key"})

		if client.Name() != GeminiName {
			t.Errorf("Name() = %s, want %s", client.Name(), GeminiName)
		}
		if client.baseURL != GeminiBaseURL {
			t.Errorf("baseURL = %s", client.baseURL)
		}
		if client.model != geminiDefaultModel {
			t.Errorf("model = %s", client.model)
		}
		if client.RequestsPerMinute() != 60 {
			t.Errorf("RequestsPerMinute() = %d, want 60", client.RequestsPerMinute())
		}
	})

	t.Run("overrides", func(t *testing.T) {
		client := NewGeminiClient(GeminiConfig{
			APIKey:    "test-key",
			Model:     "gemini-2.5-pro",
			RateLimit: 10,
		})
		if client.model != "gemini-2.5-pro" {
			t.Errorf("model = %s", client.model)
		}
		if client.RequestsPerMinute() != 10 {
			t.Errorf("RequestsPerMinute() = %d, want 10", client.RequestsPerMinute())
		}
	})
}
