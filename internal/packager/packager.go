// Package packager assembles validated artifacts, a license copy, and a
// provenance record into the output tree, one directory per language. Output
// replacement is atomic: a crash mid-write never leaves a half-written
// package directory.
package packager

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/packbuilder/internal/artifact"
	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
)

// licenseCandidates are checked in the source checkout, in order. The first
// hit is copied into the package as LICENSE.
var licenseCandidates = []string{"COPYING", "LICENSE", "COPYING.LESSER", "COPYING.GPL"}

// Packager writes per-language package directories under an output root.
type Packager struct {
	outRoot string

	// fallbackLicense is copied when the checkout has no license file.
	fallbackLicense string
}

// New creates a packager writing under outRoot. fallbackLicense may be empty,
// in which case a checkout without a license file is a packaging error.
func New(outRoot, fallbackLicense string) *Packager {
	return &Packager{outRoot: outRoot, fallbackLicense: fallbackLicense}
}

// Dir returns the package directory for a language code.
func (p *Packager) Dir(lang string) string {
	return filepath.Join(p.outRoot, lang)
}

// Package assembles one language's output directory: validated artifacts,
// metadata.json, and a LICENSE copy. It stages into a temporary sibling
// directory and renames over the final path, so the previous package stays
// intact until the new one is complete.
func (p *Packager) Package(spec catalog.LanguageSpec, commit, workspacePath string, validated []artifact.Validated) (string, error) {
	if err := os.MkdirAll(p.outRoot, 0o750); err != nil {
		return "", p.fail(spec.Code, "failed to create output root", err)
	}

	staging, err := os.MkdirTemp(p.outRoot, ".tmp-"+spec.Code+"-")
	if err != nil {
		return "", p.fail(spec.Code, "failed to create staging directory", err)
	}
	defer os.RemoveAll(staging)

	for _, v := range validated {
		if err := copyFile(v.Path, filepath.Join(staging, v.Name)); err != nil {
			return "", p.fail(spec.Code, "failed to stage artifact", err)
		}
	}

	if err := p.writeLicense(staging, workspacePath); err != nil {
		return "", p.fail(spec.Code, "failed to stage license", err)
	}

	meta := NewMetadata(spec, commit, validated, time.Now())
	data, err := meta.ToJSON()
	if err != nil {
		return "", p.fail(spec.Code, "failed to encode metadata", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "metadata.json"), data, 0o640); err != nil {
		return "", p.fail(spec.Code, "failed to write metadata", err)
	}

	final := p.Dir(spec.Code)
	if err := replaceDir(staging, final); err != nil {
		return "", p.fail(spec.Code, "failed to move package into place", err)
	}

	slog.Info("Package written",
		logfields.Lang(spec.Code),
		logfields.Path(final),
		slog.Int("artifacts", len(validated)))
	return final, nil
}

// writeLicense copies the first license candidate from the checkout, or the
// configured fallback when the checkout has none.
func (p *Packager) writeLicense(staging, workspacePath string) error {
	for _, candidate := range licenseCandidates {
		src := filepath.Join(workspacePath, candidate)
		if _, err := os.Stat(src); err == nil {
			return copyFile(src, filepath.Join(staging, "LICENSE"))
		}
	}
	if p.fallbackLicense == "" {
		return fmt.Errorf("no license file in checkout and no fallback configured")
	}
	return copyFile(p.fallbackLicense, filepath.Join(staging, "LICENSE"))
}

func (p *Packager) fail(lang, msg string, cause error) error {
	return errors.PackagingError(msg).
		WithCause(cause).
		WithContext("lang", lang).
		Build()
}

// replaceDir atomically swaps dst with src. An existing dst is moved aside
// first so the rename of the new tree is the only visible transition.
func replaceDir(src, dst string) error {
	old := dst + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dst); err != nil {
		// Restore the previous package if the swap failed.
		if _, statErr := os.Stat(old); statErr == nil {
			_ = os.Rename(old, dst)
		}
		return err
	}
	return os.RemoveAll(old)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
