package stage

import (
	"fmt"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/openpcli/pcli-setup/internal/modpath"
)

// previewMaxLines caps the manifest diff shown before the replace prompt.
const previewMaxLines = 40

// manifestDiff renders a unified diff of the module manifests in the two
// trees. Preview is best-effort: an unreadable or absent manifest on either
// side yields an empty diff rather than an error.
func manifestDiff(destDir string, stagedDir string, module string) string {
	destManifest, ok := readManifest(destDir, module)
	if !ok {
		return ""
	}
	stagedManifest, ok := readManifest(stagedDir, module)
	if !ok {
		return ""
	}

	name := module + manifestExt
	diff := udiff.Unified(name+" (installed)", name+" (replacement)", destManifest, stagedManifest)
	rendered, _ := truncateDiff(diff, previewMaxLines)
	return rendered
}

func readManifest(dir string, module string) (string, bool) {
	path, ok := modpath.ManifestPath(dir, module)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func truncateDiff(diff string, maxLines int) (string, bool) {
	trimmed := strings.TrimRight(diff, "\n")
	if trimmed == "" {
		return "", false
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n") + "\n", false
	}
	truncated := lines[:maxLines]
	truncated = append(truncated, fmt.Sprintf("... (diff truncated to %d lines)", maxLines))
	return strings.Join(truncated, "\n") + "\n", true
}
