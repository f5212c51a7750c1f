// Package toolchain drives the ordered external build sequence for one
// language: prepare the build system, configure, then compile the analyzer
// and any enabled optional transducers. Each stage is a single external
// process judged solely by its exit status.
package toolchain

import (
	"fmt"

	"git.home.luguber.info/inful/packbuilder/internal/artifact"
	"git.home.luguber.info/inful/packbuilder/internal/catalog"
)

// StageName identifies one build stage.
type StageName string

const (
	StagePrepare       StageName = "prepare"
	StageConfigure     StageName = "configure"
	StageAnalyzer      StageName = "analyzer"
	StageGenerator     StageName = "generator"
	StageDisambiguator StageName = "disambiguator"
)

// StageDef declares one stage of the build sequence. Failure policy is a data
// property of the stage: optional stages record their failure and let the
// rest of the pipeline continue, required stages abort the language's build.
type StageDef struct {
	Name StageName
	Argv []string

	// Fallback is attempted when Argv fails; autotools repositories without
	// a configure.ac ship an autogen.sh instead.
	Fallback []string

	// Optional stages degrade the language to a partial result on failure.
	Optional bool

	// Artifact is the output this stage claims to produce, if any.
	Artifact *artifact.Ref
}

// StagesFor returns the ordered build sequence for a language. Optional
// stages appear only when the catalog enables them.
func StagesFor(spec catalog.LanguageSpec, jobs int) []StageDef {
	if jobs < 1 {
		jobs = 1
	}
	j := fmt.Sprintf("-j%d", jobs)

	analyzer := artifact.NewRef(artifact.KindAnalyzer, spec.Code)
	stages := []StageDef{
		{
			Name:     StagePrepare,
			Argv:     []string{"autoreconf", "-fi"},
			Fallback: []string{"./autogen.sh"},
		},
		{
			Name: StageConfigure,
			Argv: []string{"./configure"},
		},
		{
			Name:     StageAnalyzer,
			Argv:     []string{"make", j, analyzer.Name},
			Artifact: &analyzer,
		},
	}

	if spec.HasOptional(catalog.OptionalGenerator) {
		ref := artifact.NewRef(artifact.KindGenerator, spec.Code)
		stages = append(stages, StageDef{
			Name:     StageGenerator,
			Argv:     []string{"make", j, ref.Name},
			Optional: true,
			Artifact: &ref,
		})
	}
	if spec.HasOptional(catalog.OptionalDisambiguator) {
		ref := artifact.NewRef(artifact.KindDisambiguator, spec.Code)
		stages = append(stages, StageDef{
			Name:     StageDisambiguator,
			Argv:     []string{"make", j, ref.Name},
			Optional: true,
			Artifact: &ref,
		})
	}
	return stages
}
