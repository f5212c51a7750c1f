package artifact

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
)

// Validated is an artifact that passed validation, with its on-disk location.
type Validated struct {
	Kind Kind
	Name string
	Path string
	Size int64
}

// Validate confirms every claimed artifact exists under the build root, is
// non-empty, and follows the <langcode><suffix> naming convention. A stage
// that reported success with a missing or empty artifact means the toolchain
// silently no-oped: that is a build failure, not a partial success.
func Validate(buildRoot, lang string, claimed []Ref) ([]Validated, error) {
	validated := make([]Validated, 0, len(claimed))
	for _, ref := range claimed {
		if !ref.Kind.Valid() {
			return nil, errors.ValidationError("unknown artifact kind").
				WithContext("lang", lang).
				WithContext("artifact", string(ref.Kind)).
				Build()
		}
		if ref.Name != ref.Kind.Filename(lang) {
			return nil, errors.ValidationError("artifact name violates naming convention").
				WithContext("lang", lang).
				WithContext("artifact", ref.Name).
				WithContext("expected", ref.Kind.Filename(lang)).
				Build()
		}

		path, err := locate(buildRoot, ref.Name)
		if err != nil {
			return nil, errors.ValidationError("artifact reported but not found on disk").
				WithCause(err).
				WithContext("lang", lang).
				WithContext("artifact", ref.Name).
				Build()
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.ValidationError("artifact not statable").
				WithCause(err).
				WithContext("lang", lang).
				WithContext("artifact", ref.Name).
				Build()
		}
		if info.Size() == 0 {
			return nil, errors.ValidationError("artifact is empty").
				WithContext("lang", lang).
				WithContext("artifact", ref.Name).
				WithContext("path", path).
				Build()
		}

		slog.Debug("Artifact validated",
			logfields.Lang(lang),
			logfields.Artifact(ref.Name),
			slog.Int64("size_bytes", info.Size()))

		validated = append(validated, Validated{
			Kind: ref.Kind,
			Name: ref.Name,
			Path: path,
			Size: info.Size(),
		})
	}
	return validated, nil
}

// locate walks the build root for the named artifact. Autotools builds may
// leave outputs in subdirectories, so an exact-root lookup is not enough.
func locate(buildRoot, name string) (string, error) {
	direct := filepath.Join(buildRoot, name)
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	var found string
	err := filepath.WalkDir(buildRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// .git holds no build outputs and can be large.
			if strings.HasPrefix(d.Name(), ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", os.ErrNotExist
	}
	return found, nil
}
