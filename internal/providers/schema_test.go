package providers

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeBubbles(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		bubbles, err := decodeBubbles(`{"bubbles":[
			{"originalText":"やあ","translatedText":"Hey","box_2d":[50,100,150,300],"confidence":88},
			{"originalText":"何？","translatedText":"What?","box_2d":[400,200,500,450],"confidence":61}
		]}`)
		if err != nil {
			t.Fatalf("decodeBubbles() error = %v", err)
		}
		if len(bubbles) != 2 {
			t.Fatalf("expected 2 bubbles, got %d", len(bubbles))
		}
		if bubbles[0].OriginalText != "やあ" {
			t.Errorf("OriginalText = %q", bubbles[0].OriginalText)
		}
		if bubbles[1].Box != [4]int{400, 200, 500, 450} {
			t.Errorf("Box = %v", bubbles[1].Box)
		}
	})

	t.Run("empty bubbles array", func(t *testing.T) {
		bubbles, err := decodeBubbles(`{"bubbles":[]}`)
		if err != nil {
			t.Fatalf("decodeBubbles() error = %v", err)
		}
		if len(bubbles) != 0 {
			t.Errorf("expected no bubbles, got %d", len(bubbles))
		}
	})

	t.Run("code-fenced payload", func(t *testing.T) {
		fenced := "```json\n" + validBubblesJSON + "\n```"
		bubbles, err := decodeBubbles(fenced)
		if err != nil {
			t.Fatalf("decodeBubbles() error = %v", err)
		}
		if len(bubbles) != 1 {
			t.Errorf("expected 1 bubble, got %d", len(bubbles))
		}
	})

	t.Run("payload with surrounding prose", func(t *testing.T) {
		noisy := "Here is the result:\n" + validBubblesJSON + "\nDone."
		bubbles, err := decodeBubbles(noisy)
		if err != nil {
			t.Fatalf("decodeBubbles() error = %v", err)
		}
		if len(bubbles) != 1 {
			t.Errorf("expected 1 bubble, got %d", len(bubbles))
		}
	})

	t.Run("malformed cases", func(t *testing.T) {
		cases := map[string]string{
			"empty":               "",
			"not json":            "sorry, I cannot do that",
			"missing bubbles key": `{"results":[]}`,
			"missing field":       `{"bubbles":[{"originalText":"a","box_2d":[1,2,3,4],"confidence":50}]}`,
			"box out of range":    `{"bubbles":[{"originalText":"a","translatedText":"b","box_2d":[0,0,1200,500],"confidence":50}]}`,
			"box y inverted":      `{"bubbles":[{"originalText":"a","translatedText":"b","box_2d":[500,600,100,200],"confidence":50}]}`,
			"box x inverted":      `{"bubbles":[{"originalText":"a","translatedText":"b","box_2d":[100,600,500,200],"confidence":50}]}`,
			"confidence too high": `{"bubbles":[{"originalText":"a","translatedText":"b","box_2d":[0,0,100,100],"confidence":150}]}`,
			"short box":           `{"bubbles":[{"originalText":"a","translatedText":"b","box_2d":[0,0,100],"confidence":50}]}`,
		}
		for name, payload := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := decodeBubbles(payload)
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("expected ErrMalformedResponse, got %v", err)
				}
			})
		}
	})
}

func TestAssignIDs(t *testing.T) {
	wire := []wireBubble{
		{OriginalText: "a", TranslatedText: "A", Box2D: []int{1, 2, 3, 4}},
		{OriginalText: "b", TranslatedText: "B", Box2D: []int{5, 6, 7, 8}},
	}
	bubbles := assignIDs(wire)

	if len(bubbles) != 2 {
		t.Fatalf("expected 2 bubbles, got %d", len(bubbles))
	}
	if bubbles[0].ID == bubbles[1].ID {
		t.Error("bubble ids must be unique within a batch")
	}
	for i, b := range bubbles {
		if !strings.HasPrefix(b.ID, "bubble-") {
			t.Errorf("bubble %d id = %q, want bubble- prefix", i, b.ID)
		}
	}
	if bubbles[0].Confidence != nil {
		t.Error("expected nil confidence to survive")
	}
}

func TestParseStructuredJSON(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		raw, err := parseStructuredJSON(`{"a": 1}`)
		if err != nil {
			t.Fatalf("parseStructuredJSON() error = %v", err)
		}
		if string(raw) != `{"a":1}` {
			t.Errorf("raw = %s", raw)
		}
	})

	t.Run("fence without language tag", func(t *testing.T) {
		_, err := parseStructuredJSON("```\n{\"a\": 1}\n```")
		if err != nil {
			t.Errorf("parseStructuredJSON() error = %v", err)
		}
	})

	t.Run("unparseable", func(t *testing.T) {
		if _, err := parseStructuredJSON("not json at all"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCompactJSON(t *testing.T) {
	out := compactJSON("{\n  \"a\": 1\n}")
	if out != `{"a":1}` {
		t.Errorf("compactJSON = %s", out)
	}
	// Invalid input passes through untouched.
	if compactJSON("{") != "{" {
		t.Error("expected invalid input to pass through")
	}
}
