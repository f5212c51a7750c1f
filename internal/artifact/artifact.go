// Package artifact defines the build output kinds and validates that the
// toolchain actually produced what it claimed.
package artifact

import "fmt"

// Kind identifies one of the transducer artifacts a language build can produce.
type Kind string

const (
	// KindAnalyzer is the mandatory morphological analyzer.
	KindAnalyzer Kind = "analyzer"
	// KindGenerator is the optional morphological generator.
	KindGenerator Kind = "generator"
	// KindDisambiguator is the optional constraint-grammar disambiguator.
	KindDisambiguator Kind = "disambiguator"
)

// suffixes maps each kind to its conventional filename suffix.
var suffixes = map[Kind]string{
	KindAnalyzer:      ".automorf.hfst",
	KindGenerator:     ".autogen.hfst",
	KindDisambiguator: ".rlx.bin",
}

// Suffix returns the conventional filename suffix for the kind.
func (k Kind) Suffix() string {
	return suffixes[k]
}

// Filename returns the conventional artifact filename for a language code,
// e.g. "kaz.automorf.hfst".
func (k Kind) Filename(lang string) string {
	return lang + k.Suffix()
}

// Valid reports whether the kind is one of the known artifact kinds.
func (k Kind) Valid() bool {
	_, ok := suffixes[k]
	return ok
}

// Ref is an artifact a build stage claims to have produced, before validation.
type Ref struct {
	Kind Kind
	Name string // conventional filename, <lang><suffix>
}

// NewRef builds the expected reference for a kind and language code.
func NewRef(kind Kind, lang string) Ref {
	return Ref{Kind: kind, Name: kind.Filename(lang)}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Name)
}
