// Package workspace materializes pinned source checkouts, one per language.
// A workspace is keyed by language code and never shared between languages,
// so per-language pipelines can run independently.
package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
)

// Workspace is a checkout of one language's sources at its pinned reference.
type Workspace struct {
	Lang   string
	Path   string
	Commit string // resolved commit SHA the tree is checked out at
}

// Manager creates and re-synchronizes per-language workspaces under a root directory.
type Manager struct {
	root string
}

// NewManager creates a workspace manager rooted at the given directory.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Dir returns the workspace directory for a language code.
func (m *Manager) Dir(lang string) string {
	return filepath.Join(m.root, lang)
}

// EnsureRoot creates the workspace root directory if absent.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return errors.FileSystemError("failed to create workspace root").
			WithCause(err).
			WithContext("path", m.root).
			Build()
	}
	return nil
}

// Clean removes a language's workspace entirely. The next Sync performs a
// full checkout.
func (m *Manager) Clean(lang string) error {
	path := m.Dir(lang)
	if err := os.RemoveAll(path); err != nil {
		return errors.FileSystemError("failed to remove workspace").
			WithCause(err).
			WithContext("lang", lang).
			WithContext("path", path).
			Build()
	}
	slog.Debug("Workspace removed", logfields.Lang(lang), logfields.Path(path))
	return nil
}

// Sync returns a ready workspace whose tree matches the pinned reference.
//
// An existing checkout already at the pin is reused without network work.
// Otherwise the pin is re-resolved after a fetch and force-checked-out.
// A missing workspace is cloned from scratch. Failures never touch other
// languages' workspaces.
func (m *Manager) Sync(ctx context.Context, spec catalog.LanguageSpec) (*Workspace, error) {
	path := m.Dir(spec.Code)

	repo, err := git.PlainOpen(path)
	if err != nil {
		if err != git.ErrRepositoryNotExists {
			return nil, errors.WorkspaceError("failed to open workspace").
				WithCause(err).
				WithContext("lang", spec.Code).
				WithContext("path", path).
				Build()
		}
		return m.checkout(ctx, spec, path)
	}
	return m.reuse(ctx, repo, spec, path)
}

// checkout performs the first full clone of a language's repository.
func (m *Manager) checkout(ctx context.Context, spec catalog.LanguageSpec, path string) (*Workspace, error) {
	slog.Info("Cloning repository", logfields.Lang(spec.Code), logfields.URL(spec.Repo), logfields.Ref(spec.Ref))

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:  spec.Repo,
		Tags: git.AllTags,
	})
	if err != nil {
		// A failed clone leaves a partial directory; remove it so the next
		// run re-checks from a clean slate.
		_ = os.RemoveAll(path)
		return nil, classifySyncError(err, "clone", spec)
	}

	hash, err := resolvePin(repo, spec.Ref)
	if err != nil {
		return nil, classifySyncError(err, "resolve", spec)
	}
	if err := forceCheckout(repo, hash); err != nil {
		return nil, classifySyncError(err, "checkout", spec)
	}

	slog.Info("Workspace ready", logfields.Lang(spec.Code), logfields.Commit(hash.String()), logfields.Path(path))
	return &Workspace{Lang: spec.Code, Path: path, Commit: hash.String()}, nil
}

// reuse verifies an existing checkout against the pin, fetching only when the
// pin cannot be satisfied from local state.
func (m *Manager) reuse(ctx context.Context, repo *git.Repository, spec catalog.LanguageSpec, path string) (*Workspace, error) {
	head, headErr := readHead(path)

	// Fast path: the pin resolves locally and HEAD already sits on it.
	if headErr == nil {
		if hash, err := resolvePin(repo, spec.Ref); err == nil && hash.String() == head {
			slog.Debug("Workspace already at pin, skipping fetch",
				logfields.Lang(spec.Code), logfields.Commit(head))
			return &Workspace{Lang: spec.Code, Path: path, Commit: head}, nil
		}
	}

	slog.Info("Re-synchronizing workspace", logfields.Lang(spec.Code), logfields.Ref(spec.Ref))

	if err := m.fetch(ctx, repo); err != nil {
		return nil, classifySyncError(err, "fetch", spec)
	}
	hash, err := resolvePin(repo, spec.Ref)
	if err != nil {
		return nil, classifySyncError(err, "resolve", spec)
	}
	if err := forceCheckout(repo, hash); err != nil {
		return nil, classifySyncError(err, "checkout", spec)
	}

	slog.Info("Workspace ready", logfields.Lang(spec.Code), logfields.Commit(hash.String()), logfields.Path(path))
	return &Workspace{Lang: spec.Code, Path: path, Commit: hash.String()}, nil
}

func (m *Manager) fetch(ctx context.Context, repo *git.Repository) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.AllTags,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Force:      true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return err
	}
	return nil
}

// forceCheckout detaches HEAD at the resolved pin, discarding local changes.
// Workspaces are build scratch space; nothing in them is worth preserving.
func forceCheckout(repo *git.Repository, hash plumbing.Hash) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true})
}
