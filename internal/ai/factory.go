// factory.go - Builds the provider registry from configuration

package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/expense_ai_gateway/configs"
)

// Credentials holds per-provider settings read from the environment.
// Zero values keep the defaults of the provider table.
type Credentials struct {
	APIKey      string
	Model       string
	VisionModel string
	DailyLimit  int64
	RPM         int
}

// Settings is the input of BuildRegistry.
type Settings struct {
	Providers     map[string]Credentials
	ProvidersFile string
}

// SettingsFromConfig collects provider settings from the configs package.
func SettingsFromConfig() Settings {
	return Settings{
		ProvidersFile: configs.PROVIDERS_FILE,
		Providers: map[string]Credentials{
			ProviderGemini: {
				APIKey:     configs.GEMINI_API_KEY,
				Model:      configs.GEMINI_MODEL,
				DailyLimit: configs.GEMINI_DAILY_LIMIT,
				RPM:        configs.GEMINI_RPM,
			},
			ProviderTogether: {
				APIKey:      configs.TOGETHER_API_KEY,
				Model:       configs.TOGETHER_MODEL,
				VisionModel: configs.TOGETHER_VISION_MODEL,
				DailyLimit:  configs.TOGETHER_DAILY_LIMIT,
				RPM:         configs.TOGETHER_RPM,
			},
			ProviderMistral: {
				APIKey:      configs.MISTRAL_API_KEY,
				Model:       configs.MISTRAL_MODEL,
				VisionModel: configs.MISTRAL_OCR_MODEL,
				DailyLimit:  configs.MISTRAL_DAILY_LIMIT,
				RPM:         configs.MISTRAL_RPM,
			},
			ProviderGroq: {
				APIKey:     configs.GROQ_API_KEY,
				Model:      configs.GROQ_MODEL,
				DailyLimit: configs.GROQ_DAILY_LIMIT,
				RPM:        configs.GROQ_RPM,
			},
		},
	}
}

// ResolveSpecs merges the built-in table, the optional providers file and
// the environment, in that order of precedence.
func ResolveSpecs(s Settings) (map[string]ProviderSpec, error) {
	specs := DefaultSpecs()
	if s.ProvidersFile != "" {
		if err := LoadSpecOverrides(s.ProvidersFile, specs); err != nil {
			return nil, err
		}
	}
	for name, c := range s.Providers {
		spec, ok := specs[name]
		if !ok {
			continue
		}
		if c.Model != "" {
			spec.Model = c.Model
		}
		if c.VisionModel != "" {
			spec.VisionModel = c.VisionModel
		}
		if c.DailyLimit > 0 {
			spec.DailyLimit = c.DailyLimit
		}
		if c.RPM > 0 {
			spec.RPM = c.RPM
		}
		specs[name] = spec
	}
	return specs, nil
}

// BuildRegistry creates an adapter for every provider with a credential.
// Providers without a key are left out; an empty registry is valid and
// routes everything to the offline fallbacks.
func BuildRegistry(ctx context.Context, s Settings) (*Registry, error) {
	specs, err := ResolveSpecs(s)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, name := range []string{ProviderGemini, ProviderTogether, ProviderMistral, ProviderGroq} {
		creds := s.Providers[name]
		if creds.APIKey == "" {
			log.Info().Str("provider", name).Msg("no API key, provider disabled")
			continue
		}
		spec := specs[name]

		p, err := newProvider(ctx, spec, creds.APIKey)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
		}
		reg.Register(spec, p)
		log.Info().
			Str("provider", name).
			Str("model", spec.Model).
			Int64("daily_limit", spec.DailyLimit).
			Msg("provider enabled")
	}
	return reg, nil
}

func newProvider(ctx context.Context, spec ProviderSpec, apiKey string) (Provider, error) {
	switch spec.Name {
	case ProviderGemini:
		return NewGeminiProvider(ctx, apiKey, spec.Model)
	case ProviderTogether:
		return NewTogetherProvider(apiKey, spec.Model, spec.VisionModel)
	case ProviderMistral:
		return NewMistralProvider(apiKey, spec.Model, spec.VisionModel)
	case ProviderGroq:
		return NewGroqProvider(apiKey, spec.Model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", spec.Name)
	}
}
