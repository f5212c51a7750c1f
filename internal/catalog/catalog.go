// Package catalog loads and validates the declarative language catalog that
// drives a build run. The catalog maps language codes to source repositories,
// pinned refs, enabled optional stages, and license identifiers.
package catalog

import (
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
)

// Optional stage identifiers accepted in a catalog entry.
const (
	OptionalGenerator     = "generator"
	OptionalDisambiguator = "disambiguator"
)

// DefaultLicense is assumed when a catalog entry does not declare one.
// Apertium language data is GPL licensed across the board.
const DefaultLicense = "GPL-3.0-or-later"

// LanguageSpec is one catalog entry: everything needed to build one language.
type LanguageSpec struct {
	Code    string `yaml:"code" json:"code"`
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Repo    string `yaml:"repo" json:"repo"`
	Ref     string `yaml:"ref,omitempty" json:"ref,omitempty"`
	Script  string `yaml:"script,omitempty" json:"script,omitempty"`
	Quality string `yaml:"quality,omitempty" json:"quality,omitempty"`
	License string `yaml:"license,omitempty" json:"license,omitempty"`

	// Optional lists enabled optional stages: "generator", "disambiguator".
	// The analyzer stage is always enabled.
	Optional []string `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// HasOptional reports whether the named optional stage is enabled for this language.
func (s LanguageSpec) HasOptional(name string) bool {
	return slices.Contains(s.Optional, name)
}

// Catalog is the validated, ordered set of language build specifications.
type Catalog struct {
	Languages []LanguageSpec `yaml:"languages" json:"languages"`

	// FallbackLicense is a path to a license file copied into packages whose
	// checkout carries no recognizable license text.
	FallbackLicense string `yaml:"fallback_license,omitempty" json:"fallback_license,omitempty"`
}

// Load reads, expands, and validates a catalog file. YAML is a superset of
// JSON, so both catalog formats parse through the same path.
func Load(path string) (*Catalog, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment variables from .env")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError("catalog file not readable").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	expanded := os.ExpandEnv(string(data))

	var cat Catalog
	if err := yaml.Unmarshal([]byte(expanded), &cat); err != nil {
		return nil, errors.ConfigError("catalog is malformed").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	applyDefaults(&cat)

	if err := validate(&cat); err != nil {
		return nil, err
	}

	slog.Debug("Catalog loaded", slog.String("path", path), slog.Int("languages", len(cat.Languages)))
	return &cat, nil
}

// Select applies the inclusion filter and returns the specs to process, in
// catalog order. An empty filter selects every language. Codes absent from
// the catalog are a startup error: nothing is built.
func (c *Catalog) Select(codes []string) ([]LanguageSpec, error) {
	if len(codes) == 0 {
		return slices.Clone(c.Languages), nil
	}

	byCode := make(map[string]LanguageSpec, len(c.Languages))
	for _, spec := range c.Languages {
		byCode[spec.Code] = spec
	}

	selected := make([]LanguageSpec, 0, len(codes))
	for _, code := range codes {
		spec, ok := byCode[code]
		if !ok {
			return nil, errors.ConfigError("selected language not in catalog").
				WithContext("lang", code).
				Build()
		}
		selected = append(selected, spec)
	}
	return selected, nil
}

func applyDefaults(cat *Catalog) {
	for i := range cat.Languages {
		spec := &cat.Languages[i]
		if spec.Ref == "" {
			spec.Ref = "main"
		}
		if spec.License == "" {
			spec.License = DefaultLicense
		}
		if spec.Name == "" {
			spec.Name = displayName(spec.Code)
		}
	}
}

// displayName resolves a human-readable language name from the code, falling
// back to the code itself for private-use or unregistered codes.
func displayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func validate(cat *Catalog) error {
	if len(cat.Languages) == 0 {
		return errors.ConfigError("catalog declares no languages").Build()
	}

	seen := make(map[string]struct{}, len(cat.Languages))
	for _, spec := range cat.Languages {
		if spec.Code == "" {
			return errors.ConfigError("catalog entry missing language code").
				WithContext("repo", spec.Repo).
				Build()
		}
		if _, dup := seen[spec.Code]; dup {
			return errors.ConfigError("duplicate language code in catalog").
				WithContext("lang", spec.Code).
				Build()
		}
		seen[spec.Code] = struct{}{}

		if spec.Repo == "" {
			return errors.ConfigError("catalog entry missing repository URL").
				WithContext("lang", spec.Code).
				Build()
		}
		for _, opt := range spec.Optional {
			if opt != OptionalGenerator && opt != OptionalDisambiguator {
				return errors.ConfigError("unknown optional stage in catalog").
					WithContext("lang", spec.Code).
					WithContext("stage", opt).
					Build()
			}
		}
	}
	return nil
}
