package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// readHead returns the current HEAD commit hash for a workspace by reading
// .git/HEAD directly. Cheap enough to run on every Sync without opening the
// object database.
func readHead(path string) (string, error) {
	headPath := filepath.Join(path, ".git", "HEAD")
	data, err := os.ReadFile(headPath)
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(data))

	// Symbolic ref (e.g. "ref: refs/heads/main") needs one more hop.
	if strings.HasPrefix(line, "ref:") {
		ref := strings.TrimSpace(strings.TrimPrefix(line, "ref:"))
		refPath := filepath.Join(path, ".git", filepath.FromSlash(ref))
		if refData, refErr := os.ReadFile(refPath); refErr == nil {
			return strings.TrimSpace(string(refData)), nil
		}
	}

	return line, nil
}
