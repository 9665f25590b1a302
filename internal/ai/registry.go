// registry.go - Provider specs, static priorities and capability cascades

package ai

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// Provider names
const (
	ProviderGemini   = "gemini"
	ProviderTogether = "together"
	ProviderMistral  = "mistral"
	ProviderGroq     = "groq"
)

// ProviderSpec is the static configuration of one provider. Priorities
// holds the rank of the provider in each capability cascade it joins;
// lower ranks are tried first.
type ProviderSpec struct {
	Name        string                    `yaml:"name"`
	DailyLimit  int64                     `yaml:"daily_limit"`
	RPM         int                       `yaml:"rpm"`
	Priorities  map[models.Capability]int `yaml:"priorities"`
	Model       string                    `yaml:"model"`
	VisionModel string                    `yaml:"vision_model"`
}

// Supports reports whether the spec ranks the provider for c.
func (s ProviderSpec) Supports(c models.Capability) bool {
	_, ok := s.Priorities[c]
	return ok
}

// DefaultSpecs returns the built-in provider table.
func DefaultSpecs() map[string]ProviderSpec {
	return map[string]ProviderSpec{
		ProviderGemini: {
			Name:       ProviderGemini,
			DailyLimit: 40,
			RPM:        15,
			Model:      "gemini-2.0-flash",
			Priorities: map[models.Capability]int{
				models.CapabilityVisionOCR:      1,
				models.CapabilityTextCategorize: 1,
				models.CapabilityChat:           2,
			},
		},
		ProviderTogether: {
			Name:        ProviderTogether,
			DailyLimit:  80,
			RPM:         60,
			Model:       "meta-llama/Llama-3.2-11B-Vision-Instruct-Turbo",
			VisionModel: "meta-llama/Llama-3.2-11B-Vision-Instruct-Turbo",
			Priorities: map[models.Capability]int{
				models.CapabilityVisionOCR:      2,
				models.CapabilityTextCategorize: 2,
				models.CapabilityChat:           4,
			},
		},
		ProviderMistral: {
			Name:        ProviderMistral,
			DailyLimit:  100,
			RPM:         60,
			Model:       "mistral-small-latest",
			VisionModel: "mistral-ocr-latest",
			Priorities: map[models.Capability]int{
				models.CapabilityVisionOCR:      3,
				models.CapabilityTextCategorize: 4,
				models.CapabilityChat:           3,
			},
		},
		ProviderGroq: {
			Name:       ProviderGroq,
			DailyLimit: 6000,
			RPM:        30,
			Model:      "llama-3.1-8b-instant",
			Priorities: map[models.Capability]int{
				models.CapabilityTextCategorize: 3,
				models.CapabilityChat:           1,
			},
		},
	}
}

// specOverride mirrors ProviderSpec with optional fields for YAML files.
type specOverride struct {
	DailyLimit  *int64                    `yaml:"daily_limit"`
	RPM         *int                      `yaml:"rpm"`
	Priorities  map[models.Capability]int `yaml:"priorities"`
	Model       *string                   `yaml:"model"`
	VisionModel *string                   `yaml:"vision_model"`
}

type specFile struct {
	Providers map[string]specOverride `yaml:"providers"`
}

// LoadSpecOverrides applies a YAML providers file on top of specs.
// Unknown provider names are rejected since no adapter exists for them.
func LoadSpecOverrides(path string, specs map[string]ProviderSpec) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open providers file: %w", err)
	}
	defer f.Close()
	return applySpecOverrides(f, specs)
}

func applySpecOverrides(r io.Reader, specs map[string]ProviderSpec) error {
	var file specFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse providers file: %w", err)
	}

	for name, o := range file.Providers {
		spec, ok := specs[name]
		if !ok {
			return fmt.Errorf("unknown provider %q in providers file", name)
		}
		if o.DailyLimit != nil {
			if *o.DailyLimit < 0 {
				return fmt.Errorf("provider %q: daily_limit must not be negative", name)
			}
			spec.DailyLimit = *o.DailyLimit
		}
		if o.RPM != nil {
			spec.RPM = *o.RPM
		}
		if o.Model != nil {
			spec.Model = *o.Model
		}
		if o.VisionModel != nil {
			spec.VisionModel = *o.VisionModel
		}
		if o.Priorities != nil {
			for c := range o.Priorities {
				if !validCapability(c) {
					return fmt.Errorf("provider %q: unknown capability %q", name, c)
				}
			}
			spec.Priorities = o.Priorities
		}
		specs[name] = spec
	}
	return nil
}

func validCapability(c models.Capability) bool {
	switch c {
	case models.CapabilityVisionOCR, models.CapabilityTextCategorize, models.CapabilityChat:
		return true
	}
	return false
}

// Registry holds the configured providers. It is immutable after startup.
type Registry struct {
	specs  map[string]ProviderSpec
	vision map[string]VisionAnalyzer
	text   map[string]TextCategorizer
	chat   map[string]ChatResponder
	all    []Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs:  make(map[string]ProviderSpec),
		vision: make(map[string]VisionAnalyzer),
		text:   make(map[string]TextCategorizer),
		chat:   make(map[string]ChatResponder),
	}
}

// Register adds an adapter under spec. A capability is enabled only when
// the spec ranks it and the adapter implements it.
func (r *Registry) Register(spec ProviderSpec, p Provider) {
	if spec.Name == "" {
		spec.Name = p.Name()
	}
	r.specs[spec.Name] = spec
	r.all = append(r.all, p)

	if v, ok := p.(VisionAnalyzer); ok && spec.Supports(models.CapabilityVisionOCR) {
		r.vision[spec.Name] = v
	}
	if t, ok := p.(TextCategorizer); ok && spec.Supports(models.CapabilityTextCategorize) {
		r.text[spec.Name] = t
	}
	if c, ok := p.(ChatResponder); ok && spec.Supports(models.CapabilityChat) {
		r.chat[spec.Name] = c
	}
}

// Cascade returns provider names for c ordered by ascending priority.
// Equal ranks are ordered by name so the order is deterministic.
func (r *Registry) Cascade(c models.Capability) []string {
	var names []string
	for name, spec := range r.specs {
		if !spec.Supports(c) || !r.implements(name, c) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi := r.specs[names[i]].Priorities[c]
		pj := r.specs[names[j]].Priorities[c]
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

func (r *Registry) implements(name string, c models.Capability) bool {
	switch c {
	case models.CapabilityVisionOCR:
		_, ok := r.vision[name]
		return ok
	case models.CapabilityTextCategorize:
		_, ok := r.text[name]
		return ok
	case models.CapabilityChat:
		_, ok := r.chat[name]
		return ok
	}
	return false
}

// Vision returns the vision adapter registered under name.
func (r *Registry) Vision(name string) (VisionAnalyzer, bool) {
	v, ok := r.vision[name]
	return v, ok
}

// Text returns the categorization adapter registered under name.
func (r *Registry) Text(name string) (TextCategorizer, bool) {
	t, ok := r.text[name]
	return t, ok
}

// Chat returns the chat adapter registered under name.
func (r *Registry) Chat(name string) (ChatResponder, bool) {
	c, ok := r.chat[name]
	return c, ok
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Limits returns provider -> daily limit.
func (r *Registry) Limits() map[string]int64 {
	out := make(map[string]int64, len(r.specs))
	for name, spec := range r.specs {
		out[name] = spec.DailyLimit
	}
	return out
}

// RPMs returns provider -> requests per minute.
func (r *Registry) RPMs() map[string]int {
	out := make(map[string]int, len(r.specs))
	for name, spec := range r.specs {
		out[name] = spec.RPM
	}
	return out
}

// Close releases adapters holding long-lived clients.
func (r *Registry) Close() error {
	var firstErr error
	for _, p := range r.all {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
