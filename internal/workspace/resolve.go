package workspace

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// resolvePin resolves a pinned reference (commit SHA, tag, or branch) to a
// commit hash using only local repository state. Branch pins prefer the
// remote-tracking ref so a stale local branch never masks the pin.
func resolvePin(repo *git.Repository, ref string) (plumbing.Hash, error) {
	if plumbing.IsHash(ref) {
		hash := plumbing.NewHash(ref)
		if _, err := repo.CommitObject(hash); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("pinned commit %s not present: %w", ref, err)
		}
		return hash, nil
	}

	candidates := []string{
		"refs/tags/" + ref,
		"refs/remotes/origin/" + ref,
		"refs/heads/" + ref,
		ref,
	}
	for _, rev := range candidates {
		if hash, err := repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
			return *hash, nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("reference %q not found", ref)
}
