package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds references to translation providers. It supports
// config-driven instantiation, hot reload, and thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	translators map[string]Translator
	logger      *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		translators: make(map[string]Translator),
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a translator by name.
func (r *Registry) Register(name string, t Translator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translators[name] = t
	if r.logger != nil {
		r.logger.Info("registered translator", "name", name)
	}
}

// Unregister removes a translator by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.translators, name)
	if r.logger != nil {
		r.logger.Info("unregistered translator", "name", name)
	}
}

// Get returns a translator by name.
func (r *Registry) Get(name string) (Translator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.translators[name]
	if !ok {
		return nil, fmt.Errorf("translator not found: %s", name)
	}
	return t, nil
}

// Has checks if a translator is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.translators[name]
	return ok
}

// List returns all registered translator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.translators))
	for name := range r.translators {
		names = append(names, name)
	}
	return names
}

// limiterReporter is implemented by translators that expose their rate
// limiter state.
type limiterReporter interface {
	LimiterStatus() RateLimiterStatus
}

// Status reports the rate limiter state of every registered translator
// that exposes one, keyed by provider name.
func (r *Registry) Status() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := make(map[string]RateLimiterStatus)
	for name, t := range r.translators {
		if lr, ok := t.(limiterReporter); ok {
			status[name] = lr.LimiterStatus()
		}
	}
	return status
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	// Providers maps provider names to their config (API keys resolved).
	Providers map[string]TranslatorConfig
}

// TranslatorConfig matches config.ProviderCfg with resolved API key.
type TranslatorConfig struct {
	Type        string // "gemini", "openai"
	Model       string
	APIKey      string // Resolved API key
	RateLimit   int    // Requests per minute
	TimeoutSecs int
	Enabled     bool
}

// NewRegistryFromConfig creates a registry with providers based on
// configuration. Only enabled providers with API keys are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		if t := createTranslator(provCfg); t != nil {
			r.translators[name] = t
		}
	}
	return r
}

// Reload updates the registry based on new configuration. Providers no
// longer configured are unregistered; changed providers are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		want[name] = true

		existing, hasExisting := r.translators[name]
		if !hasExisting || needsUpdate(existing, provCfg) {
			t := createTranslator(provCfg)
			if t != nil {
				r.translators[name] = t
				if r.logger != nil {
					if hasExisting {
						r.logger.Info("updated translator", "name", name, "type", provCfg.Type)
					} else {
						r.logger.Info("registered translator", "name", name, "type", provCfg.Type)
					}
				}
			}
		}
	}

	for name := range r.translators {
		if !want[name] {
			delete(r.translators, name)
			if r.logger != nil {
				r.logger.Info("unregistered translator", "name", name)
			}
		}
	}
}

// createTranslator creates a client based on provider type.
func createTranslator(cfg TranslatorConfig) Translator {
	switch cfg.Type {
	case "gemini":
		return NewGeminiClient(GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		})
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		})
	default:
		return nil
	}
}

// needsUpdate checks if a translator needs to be recreated.
func needsUpdate(t Translator, cfg TranslatorConfig) bool {
	switch c := t.(type) {
	case *GeminiClient:
		return c.apiKey != cfg.APIKey ||
			c.model != cfg.Model ||
			c.rateLimit != cfg.RateLimit
	case *OpenAIClient:
		return c.apiKey != cfg.APIKey ||
			c.model != cfg.Model ||
			c.rateLimit != cfg.RateLimit
	default:
		return true
	}
}
