// Package stage unpacks downloaded module packages and places the resulting
// trees into a module root. Placement never leaves a half-written version
// directory behind without saying so: fresh installs clean up after a failed
// copy, and replacements go through a sibling-swap that restores the previous
// tree when activation fails.
package stage

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
)

const manifestExt = ".psd1"

// maxEntryBytes caps a single archive entry to keep a hostile or corrupt
// package from filling the disk.
var maxEntryBytes = int64(512 * 1024 * 1024)

// ErrManifestMissing indicates an archive that is not a PowerShell module
// package: no <Name>.psd1 at its top level.
var ErrManifestMissing = errors.New("no module manifest in package")

// ErrPartialWrite indicates a destination directory that could not be
// restored to a consistent state after a failed write.
var ErrPartialWrite = errors.New("destination left partially written")

// Stager owns a staging workspace for package extraction.
type Stager struct {
	root string
}

// New returns a Stager working under root, creating it if missing.
func New(root string) (*Stager, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New(messages.StageRootRequired)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf(messages.StageCreateDirFmt, root, err)
	}
	return &Stager{root: root}, nil
}

// Root returns the staging workspace directory.
func (s *Stager) Root() string {
	return s.root
}

// Clean removes the staging workspace and everything under it.
func (s *Stager) Clean() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf(messages.StageCleanFmt, s.root, err)
	}
	return nil
}

// ExtractNupkg unpacks the package archive into a fresh staging directory and
// returns the staged module tree. NuGet packaging metadata (_rels/, package/,
// [Content_Types].xml, the .nuspec) is dropped; what remains is the tree that
// belongs under <root>/<Module>/<Version>. The archive must carry the module
// manifest at its top level.
func (s *Stager) ExtractNupkg(archivePath string, module string, ver string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf(messages.StageOpenArchiveFmt, archivePath, err)
	}
	defer func() { _ = reader.Close() }()

	stagedDir, err := os.MkdirTemp(s.root, module+"-"+ver+"-*")
	if err != nil {
		return "", fmt.Errorf(messages.StageCreateDirFmt, s.root, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(stagedDir)
		}
	}()

	for _, entry := range reader.File {
		name := entryName(entry.Name)
		if name == "" || isPackagingMetadata(name) {
			continue
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(entry, stagedDir, name); err != nil {
			return "", err
		}
	}

	if !modpath.HasManifest(stagedDir, module) {
		return "", fmt.Errorf(messages.StageManifestMissingFmt, filepath.Base(archivePath), module+manifestExt, ErrManifestMissing)
	}

	committed = true
	return stagedDir, nil
}

// entryName normalizes an archive entry name. nupkg entries arrive
// URI-escaped (spaces as %20 and so on); unescape when possible.
func entryName(raw string) string {
	name := strings.TrimPrefix(raw, "/")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

// isPackagingMetadata reports whether the entry is NuGet envelope rather
// than module content.
func isPackagingMetadata(name string) bool {
	first := name
	if i := strings.IndexByte(name, '/'); i >= 0 {
		first = name[:i]
	}
	switch first {
	case "_rels", "package", "[Content_Types].xml":
		return true
	}
	return first == name && strings.HasSuffix(strings.ToLower(name), ".nuspec")
}

func extractEntry(entry *zip.File, stagedDir string, name string) error {
	dest, err := secureJoin(stagedDir, name)
	if err != nil {
		return err
	}
	size := int64(entry.UncompressedSize64)
	if size > maxEntryBytes {
		return fmt.Errorf(messages.StageEntryTooLargeFmt, name, size, maxEntryBytes)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf(messages.StageExtractEntryFmt, name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf(messages.StageExtractEntryFmt, name, err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf(messages.StageExtractEntryFmt, name, err)
	}

	// The header size is not trusted; cap the actual stream too.
	n, copyErr := io.Copy(out, io.LimitReader(src, maxEntryBytes+1))
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf(messages.StageExtractEntryFmt, name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf(messages.StageExtractEntryFmt, name, closeErr)
	}
	if n > maxEntryBytes {
		return fmt.Errorf(messages.StageEntryTooLargeFmt, name, n, maxEntryBytes)
	}
	return nil
}

// secureJoin joins name under root and rejects entries that escape it.
func secureJoin(root string, name string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dest)
	if err != nil {
		return "", fmt.Errorf(messages.StageEntryOutsideRootFmt, name)
	}
	rel = filepath.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf(messages.StageEntryOutsideRootFmt, name)
	}
	return dest, nil
}
