package packager

import (
	"encoding/json"
	"fmt"
	"time"

	"git.home.luguber.info/inful/packbuilder/internal/artifact"
	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/version"
)

// Metadata is the provenance record written next to each language's
// artifacts. Downstream release tooling reads it to publish catalog entries.
type Metadata struct {
	Lang      string    `json:"lang"`
	Name      string    `json:"name,omitempty"`
	Script    string    `json:"script,omitempty"`
	Quality   string    `json:"quality,omitempty"`
	Source    string    `json:"source"`
	Ref       string    `json:"ref"`
	Commit    string    `json:"commit"`
	Compiled  time.Time `json:"compiled"`
	Toolchain string    `json:"toolchain"`
	License   string    `json:"license"`

	// Artifacts maps each artifact kind to its filename; only kinds actually
	// present in the package appear, so consumers can tell a disabled
	// optional stage from a packaged one.
	Artifacts map[artifact.Kind]string `json:"artifacts"`
}

// NewMetadata assembles the provenance record for one validated build.
func NewMetadata(spec catalog.LanguageSpec, commit string, validated []artifact.Validated, now time.Time) Metadata {
	artifacts := make(map[artifact.Kind]string, len(validated))
	for _, v := range validated {
		artifacts[v.Kind] = v.Name
	}
	return Metadata{
		Lang:      spec.Code,
		Name:      spec.Name,
		Script:    spec.Script,
		Quality:   spec.Quality,
		Source:    spec.Repo,
		Ref:       spec.Ref,
		Commit:    commit,
		Compiled:  now.UTC(),
		Toolchain: fmt.Sprintf("apertium-autotools/packbuilder-%s", version.Version),
		License:   spec.License,
		Artifacts: artifacts,
	}
}

// ToJSON serializes the metadata record.
func (m Metadata) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return append(data, '\n'), nil
}

// FromJSON deserializes a metadata record.
func FromJSON(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
