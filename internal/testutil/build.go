package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ModuleRoot returns the directory containing go.mod.
func ModuleRoot() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to determine source file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", ".."), nil
}

// BuildBinary builds the main package at pkg (relative to the module root,
// e.g. "./internal/cmd/fakecli") into a fresh temp directory. The returned
// cleanup removes the directory.
func BuildBinary(pkg, name string) (path string, cleanup func(), err error) {
	root, err := ModuleRoot()
	if err != nil {
		return "", nil, err
	}

	buildDir, err := os.MkdirTemp("", fmt.Sprintf("termrig-%s-", name))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create build dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(buildDir) }

	path = filepath.Join(buildDir, name)
	cmd := exec.Command("go", "build", "-o", path, pkg)
	cmd.Dir = root
	if output, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to build %s: %w\nOutput:\n%s", pkg, err, output)
	}
	if _, err := os.Stat(path); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("build of %s succeeded but binary is missing: %w", pkg, err)
	}
	return path, cleanup, nil
}
