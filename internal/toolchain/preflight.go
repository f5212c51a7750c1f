package toolchain

import (
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
)

// requiredTools must be on PATH before any workspace work begins.
var requiredTools = []string{"git", "autoreconf", "make"}

// Preflight verifies the external toolchain is available. Checked once per
// run, before any network or filesystem work.
func Preflight() error {
	var missing []string
	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return errors.BuildError("missing required build tools").
			Fatal().
			WithContext("tools", strings.Join(missing, ", ")).
			Build()
	}
	return nil
}
