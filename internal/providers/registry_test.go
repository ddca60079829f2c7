package providers

import (
	"context"
	"testing"
)

type stubTranslator struct {
	name string
}

func (s *stubTranslator) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResult, error) {
	return &TranslateResult{Success: true, Provider: s.name}, nil
}
func (s *stubTranslator) Name() string           { return s.name }
func (s *stubTranslator) RequestsPerMinute() int { return 60 }

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		r.Register("stub", &stubTranslator{name: "stub"})

		got, err := r.Get("stub")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Name() != "stub" {
			t.Errorf("Name() = %s", got.Name())
		}
		if !r.Has("stub") {
			t.Error("Has() = false")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Get("absent"); err == nil {
			t.Error("expected error for unknown translator")
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.Register("stub", &stubTranslator{name: "stub"})
		r.Unregister("stub")
		if r.Has("stub") {
			t.Error("expected translator to be removed")
		}
	})

	t.Run("list", func(t *testing.T) {
		r := NewRegistry()
		r.Register("a", &stubTranslator{name: "a"})
		r.Register("b", &stubTranslator{name: "b"})
		if got := len(r.List()); got != 2 {
			t.Errorf("List() len = %d, want 2", got)
		}
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		Providers: map[string]TranslatorConfig{
			"gemini": {Type: "gemini", APIKey: "key-1", Enabled: true},
			"openai": {Type: "openai", APIKey: "key-2", Enabled: true},
			"no-key": {Type: "gemini", APIKey: "", Enabled: true},
			"off":    {Type: "gemini", APIKey: "key-3", Enabled: false},
			"bogus":  {Type: "llama", APIKey: "key-4", Enabled: true},
		},
	}

	r := NewRegistryFromConfig(cfg)

	if !r.Has("gemini") {
		t.Error("expected gemini to be registered")
	}
	if !r.Has("openai") {
		t.Error("expected openai to be registered")
	}
	for _, name := range []string{"no-key", "off", "bogus"} {
		if r.Has(name) {
			t.Errorf("expected %s to be skipped", name)
		}
	}
}

func TestRegistryReload(t *testing.T) {
	t.Run("registers new and drops removed", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"gemini": {Type: "gemini", APIKey: "key-1", Enabled: true},
			},
		})

		r.Reload(RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"openai": {Type: "openai", APIKey: "key-2", Enabled: true},
			},
		})

		if r.Has("gemini") {
			t.Error("expected gemini to be unregistered")
		}
		if !r.Has("openai") {
			t.Error("expected openai to be registered")
		}
	})

	t.Run("recreates on changed key", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"gemini": {Type: "gemini", APIKey: "key-1", Model: "gemini-2.5-flash", Enabled: true},
			},
		})
		before, _ := r.Get("gemini")

		r.Reload(RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"gemini": {Type: "gemini", APIKey: "key-2", Model: "gemini-2.5-flash", Enabled: true},
			},
		})
		after, _ := r.Get("gemini")

		if before == after {
			t.Error("expected client to be recreated on key change")
		}
	})

	t.Run("keeps unchanged client", func(t *testing.T) {
		cfg := RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"gemini": {Type: "gemini", APIKey: "key-1", Model: "gemini-2.5-flash", RateLimit: 60, Enabled: true},
			},
		}
		r := NewRegistryFromConfig(cfg)
		before, _ := r.Get("gemini")

		r.Reload(cfg)
		after, _ := r.Get("gemini")

		if before != after {
			t.Error("expected unchanged client to survive reload")
		}
	})

	t.Run("disabling unregisters", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"gemini": {Type: "gemini", APIKey: "key-1", Enabled: true},
			},
		})

		r.Reload(RegistryConfig{
			Providers: map[string]TranslatorConfig{
				"gemini": {Type: "gemini", APIKey: "key-1", Enabled: false},
			},
		})

		if r.Has("gemini") {
			t.Error("expected disabled provider to be unregistered")
		}
	})
}
