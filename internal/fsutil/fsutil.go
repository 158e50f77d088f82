// Package fsutil provides filesystem helpers shared by the staging and
// placement code paths.
package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/openpcli/pcli-setup/internal/messages"
)

// WriteFileAtomic writes data to filename without exposing partial content.
// The data lands in a temp file in the same directory, is synced and closed,
// and is then renamed over filename. On any failure the temp file is removed
// and filename is left untouched.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf(messages.FsutilCreateTempFileFmt, filename, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf(messages.FsutilSetPermissionsFmt, tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf(messages.FsutilWriteTempFileFmt, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf(messages.FsutilSyncTempFileFmt, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.FsutilCloseTempFileFmt, tmpName, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf(messages.FsutilRenameTempFileFmt, filename, err)
	}
	committed = true
	return nil
}

// FileSHA256 returns the lowercase hex SHA-256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf(messages.FsutilOpenForHashFmt, path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf(messages.FsutilHashFmt, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SameContent reports whether the files at a and b have identical content,
// compared by SHA-256 digest.
func SameContent(a, b string) (bool, error) {
	ha, err := FileSHA256(a)
	if err != nil {
		return false, err
	}
	hb, err := FileSHA256(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// ListFiles walks root and returns the slash-separated relative paths of all
// regular files beneath it, sorted by fs.WalkDir order. Directories and
// irregular entries are skipped.
func ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf(messages.FsutilWalkFmt, root, err)
	}
	return files, nil
}

// CopyTree copies every regular file under srcRoot into dstRoot, preserving
// relative paths and creating directories as needed. Each file is written
// atomically. Returns the destination paths written so far, including on
// error, so the caller can roll back a partial copy.
func CopyTree(srcRoot, dstRoot string, perm os.FileMode) ([]string, error) {
	files, err := ListFiles(srcRoot)
	if err != nil {
		return nil, err
	}
	written := make([]string, 0, len(files))
	for _, rel := range files {
		src := filepath.Join(srcRoot, filepath.FromSlash(rel))
		dst := filepath.Join(dstRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return written, fmt.Errorf(messages.FsutilCreateDirFmt, filepath.Dir(dst), err)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return written, fmt.Errorf(messages.FsutilReadFileFmt, src, err)
		}
		if err := WriteFileAtomic(dst, data, perm); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}

// SameTree reports whether srcRoot and dstRoot contain the same set of
// relative file paths with identical content.
func SameTree(srcRoot, dstRoot string) (bool, error) {
	srcFiles, err := ListFiles(srcRoot)
	if err != nil {
		return false, err
	}
	dstFiles, err := ListFiles(dstRoot)
	if err != nil {
		return false, err
	}
	if len(srcFiles) != len(dstFiles) {
		return false, nil
	}
	for i, rel := range srcFiles {
		if dstFiles[i] != rel {
			return false, nil
		}
	}
	for _, rel := range srcFiles {
		same, err := SameContent(
			filepath.Join(srcRoot, filepath.FromSlash(rel)),
			filepath.Join(dstRoot, filepath.FromSlash(rel)),
		)
		if err != nil {
			return false, err
		}
		if !same {
			return false, nil
		}
	}
	return true, nil
}
