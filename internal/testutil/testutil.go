// Package testutil holds helpers shared by command-level tests: fake pwsh
// binaries on PATH and throwaway module trees.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WritePwshStub writes an executable pwsh stand-in that prints stdout and
// exits 0, and returns its path.
func WritePwshStub(t *testing.T, dir string, stdout string) string {
	t.Helper()
	script := "#!/bin/sh\n"
	if stdout != "" {
		script += fmt.Sprintf("cat <<'EOF'\n%s\nEOF\n", stdout)
	}
	script += "exit 0\n"
	return WritePwshScript(t, dir, script)
}

// WritePwshScript writes an executable pwsh stand-in with the given shell
// script body and returns its path, creating dir if needed.
func WritePwshScript(t *testing.T, dir string, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir pwsh stub dir: %v", err)
	}
	path := filepath.Join(dir, "pwsh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write pwsh stub: %v", err)
	}
	return path
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// WriteModuleTree creates <root>/<name>/<ver> with a minimal module manifest
// and returns the version directory.
func WriteModuleTree(t *testing.T, root string, name string, ver string) string {
	t.Helper()
	dir := filepath.Join(root, name, ver)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir module tree: %v", err)
	}
	manifest := fmt.Sprintf("@{ ModuleVersion = '%s' }\n", ver)
	if err := os.WriteFile(filepath.Join(dir, name+".psd1"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

// ClientListLines renders the Name=Version output the client probe expects.
func ClientListLines(pairs map[string]string) string {
	out := ""
	for _, name := range []string{"Microsoft.PowerShell.PSResourceGet", "PowerShellGet"} {
		if ver, ok := pairs[name]; ok {
			out += fmt.Sprintf("%s=%s\n", name, ver)
		}
	}
	return out
}
