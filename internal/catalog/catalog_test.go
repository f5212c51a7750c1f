package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "languages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeCatalog(t, `
languages:
  - code: kaz
    repo: https://github.com/apertium/apertium-kaz
  - code: tur
    repo: https://github.com/apertium/apertium-tur
    ref: def456
    optional: [generator]
    license: MIT
`)

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat.Languages, 2)

	kaz := cat.Languages[0]
	assert.Equal(t, "main", kaz.Ref)
	assert.Equal(t, DefaultLicense, kaz.License)
	assert.Equal(t, "Kazakh", kaz.Name)
	assert.False(t, kaz.HasOptional(OptionalGenerator))

	tur := cat.Languages[1]
	assert.Equal(t, "def456", tur.Ref)
	assert.Equal(t, "MIT", tur.License)
	assert.True(t, tur.HasOptional(OptionalGenerator))
	assert.False(t, tur.HasOptional(OptionalDisambiguator))
}

func TestLoadAcceptsJSONCatalog(t *testing.T) {
	path := writeCatalog(t, `{"languages": [{"code": "kaz", "repo": "https://example.com/kaz.git", "ref": "abc123"}]}`)

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat.Languages, 1)
	assert.Equal(t, "abc123", cat.Languages[0].Ref)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("PACK_REPO_HOST", "git.example.org")
	path := writeCatalog(t, `
languages:
  - code: kaz
    repo: https://${PACK_REPO_HOST}/apertium-kaz.git
`)

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://git.example.org/apertium-kaz.git", cat.Languages[0].Repo)
}

func TestLoadRejectsDuplicateCodes(t *testing.T) {
	path := writeCatalog(t, `
languages:
  - code: kaz
    repo: https://example.com/a.git
  - code: kaz
    repo: https://example.com/b.git
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadRejectsMissingRepo(t *testing.T) {
	path := writeCatalog(t, `
languages:
  - code: kaz
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadRejectsUnknownOptionalStage(t *testing.T) {
	path := writeCatalog(t, `
languages:
  - code: kaz
    repo: https://example.com/a.git
    optional: [translator]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeCatalog(t, "languages: [}{")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := writeCatalog(t, "languages: []")

	_, err := Load(path)
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	cat := &Catalog{Languages: []LanguageSpec{
		{Code: "kaz", Repo: "r1"},
		{Code: "tur", Repo: "r2"},
		{Code: "tat", Repo: "r3"},
	}}

	t.Run("empty filter selects all in order", func(t *testing.T) {
		specs, err := cat.Select(nil)
		require.NoError(t, err)
		require.Len(t, specs, 3)
		assert.Equal(t, "kaz", specs[0].Code)
		assert.Equal(t, "tat", specs[2].Code)
	})

	t.Run("filter preserves requested order", func(t *testing.T) {
		specs, err := cat.Select([]string{"tat", "kaz"})
		require.NoError(t, err)
		require.Len(t, specs, 2)
		assert.Equal(t, "tat", specs[0].Code)
		assert.Equal(t, "kaz", specs[1].Code)
	})

	t.Run("unknown code is a config error", func(t *testing.T) {
		_, err := cat.Select([]string{"kaz", "xxx"})
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	})
}
