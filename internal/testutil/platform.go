// Package testutil holds helpers shared by the termrig test suites.
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// SkipIfRoot skips the test when running as root, where file mode
// restrictions do not apply.
func SkipIfRoot(tb testing.TB, reason string) {
	tb.Helper()
	if os.Geteuid() == 0 {
		tb.Skipf("Skipping test - %s (requires non-root user, running as UID 0)", reason)
	}
}

// RequireCommand skips the test unless name resolves on PATH, and returns
// its path.
func RequireCommand(tb testing.TB, name string) string {
	tb.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		tb.Skipf("Skipping test - %s not found on PATH", name)
	}
	return path
}
