package stage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openpcli/pcli-setup/internal/fsutil"
	"github.com/openpcli/pcli-setup/internal/messages"
)

// Prompter confirms replacing an existing module tree.
type Prompter interface {
	ConfirmReplace(path string, preview string) (bool, error)
}

// PromptFuncs adapts an optional confirm callback into a Prompter.
type PromptFuncs struct {
	ConfirmReplaceFunc func(path string, preview string) (bool, error)
}

// ConfirmReplace prompts the user to confirm replacing the tree at path.
// Returns an error if no ConfirmReplaceFunc is configured.
func (p PromptFuncs) ConfirmReplace(path string, preview string) (bool, error) {
	if p.ConfirmReplaceFunc == nil {
		return false, errors.New(messages.StagePromptRequired)
	}
	return p.ConfirmReplaceFunc(path, preview)
}

// PlaceRequest describes moving a staged module tree into a module root.
type PlaceRequest struct {
	StagedDir string
	Root      string
	Module    string
	Version   string

	// Force replaces an existing, different tree without prompting.
	Force bool
	// Prompter decides replacement when Force is unset. Required only when
	// an existing tree differs from the staged one.
	Prompter Prompter
}

// PlaceResult reports what placement did.
type PlaceResult struct {
	// Path is the version directory, whether freshly written or pre-existing.
	Path string
	// Identical means the destination already held exactly this tree.
	Identical bool
	// Replaced means an existing, different tree was swapped out.
	Replaced bool
	// Declined means the user kept the existing tree.
	Declined bool
}

// Place installs the staged tree as <Root>/<Module>/<Version>.
//
// A missing destination is written directly; an identical destination is
// left untouched; a differing destination is replaced only with Force or
// the Prompter's consent. Failures wrap ErrPartialWrite when the
// destination could not be returned to a consistent state.
func (s *Stager) Place(req PlaceRequest) (PlaceResult, error) {
	if err := validatePlaceRequest(req); err != nil {
		return PlaceResult{}, err
	}

	moduleDir := filepath.Join(req.Root, req.Module)
	destDir := filepath.Join(moduleDir, req.Version)

	info, err := os.Stat(destDir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(moduleDir, 0o755); err != nil {
			return PlaceResult{}, fmt.Errorf(messages.StageCreateDirFmt, moduleDir, err)
		}
		if err := copyFresh(req.StagedDir, destDir); err != nil {
			return PlaceResult{}, err
		}
		return PlaceResult{Path: destDir}, nil
	case err != nil:
		return PlaceResult{}, fmt.Errorf(messages.StageStatDestFmt, destDir, err)
	case !info.IsDir():
		return PlaceResult{}, fmt.Errorf(messages.StageDestConflictFmt, destDir)
	}

	same, err := fsutil.SameTree(req.StagedDir, destDir)
	if err != nil {
		return PlaceResult{}, fmt.Errorf(messages.StageCompareTreesFmt, destDir, err)
	}
	if same {
		return PlaceResult{Path: destDir, Identical: true}, nil
	}

	if !req.Force {
		prompter := req.Prompter
		if prompter == nil {
			prompter = PromptFuncs{}
		}
		preview := replacePreview(destDir, req.StagedDir, req.Module)
		ok, err := prompter.ConfirmReplace(destDir, preview)
		if err != nil {
			return PlaceResult{}, err
		}
		if !ok {
			return PlaceResult{Path: destDir, Declined: true}, nil
		}
	}

	if err := s.swap(req.StagedDir, moduleDir, destDir, req.Version); err != nil {
		return PlaceResult{}, err
	}
	return PlaceResult{Path: destDir, Replaced: true}, nil
}

func validatePlaceRequest(req PlaceRequest) error {
	if strings.TrimSpace(req.Root) == "" || strings.TrimSpace(req.Module) == "" || strings.TrimSpace(req.Version) == "" {
		return errors.New(messages.StageRootRequired)
	}
	info, err := os.Stat(req.StagedDir)
	if err != nil {
		return fmt.Errorf(messages.StageMissingSourceFmt, req.StagedDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf(messages.StageDestConflictFmt, req.StagedDir)
	}
	return nil
}

// copyFresh writes the staged tree to a previously absent destination and
// removes it again when the copy fails partway.
func copyFresh(stagedDir string, destDir string) error {
	written, err := fsutil.CopyTree(stagedDir, destDir, 0o644)
	if err != nil {
		if rmErr := os.RemoveAll(destDir); rmErr != nil {
			return fmt.Errorf(messages.StagePartialWriteFmt, destDir, len(written), err, ErrPartialWrite)
		}
		return fmt.Errorf(messages.StageCopyTreeFmt, destDir, err)
	}
	return nil
}

// swap replaces destDir with the staged tree via a sibling copy and two
// renames, restoring the old tree when activation fails.
func (s *Stager) swap(stagedDir string, moduleDir string, destDir string, ver string) error {
	tmpNew, err := os.MkdirTemp(moduleDir, "."+ver+".new-*")
	if err != nil {
		return fmt.Errorf(messages.StageSwapPrepareFmt, destDir, err)
	}
	defer func() { _ = os.RemoveAll(tmpNew) }()
	// CopyTree wants to create its destination itself.
	if err := os.Remove(tmpNew); err != nil {
		return fmt.Errorf(messages.StageSwapPrepareFmt, destDir, err)
	}
	if _, err := fsutil.CopyTree(stagedDir, tmpNew, 0o644); err != nil {
		return fmt.Errorf(messages.StageSwapPrepareFmt, destDir, err)
	}

	tmpOld, err := os.MkdirTemp(moduleDir, "."+ver+".old-*")
	if err != nil {
		return fmt.Errorf(messages.StageSwapPrepareFmt, destDir, err)
	}
	if err := os.Remove(tmpOld); err != nil {
		return fmt.Errorf(messages.StageSwapPrepareFmt, destDir, err)
	}

	if err := os.Rename(destDir, tmpOld); err != nil {
		return fmt.Errorf(messages.StageSwapBackupFmt, destDir, err)
	}
	if err := os.Rename(tmpNew, destDir); err != nil {
		if restoreErr := os.Rename(tmpOld, destDir); restoreErr != nil {
			return fmt.Errorf("%s: %w", fmt.Sprintf(messages.StageSwapRestoreFailedFmt, destDir, restoreErr), ErrPartialWrite)
		}
		return fmt.Errorf(messages.StageSwapActivateFmt+"; %s", destDir, err, messages.StageSwapRestoredNote)
	}
	// The new tree is live; a leftover backup dir is only clutter.
	_ = os.RemoveAll(tmpOld)
	return nil
}

// replacePreview summarizes what replacement would change: file counts plus
// a unified diff of the module manifests when both sides have one.
func replacePreview(destDir string, stagedDir string, module string) string {
	var b strings.Builder

	destFiles, destErr := fsutil.ListFiles(destDir)
	stagedFiles, stagedErr := fsutil.ListFiles(stagedDir)
	if destErr == nil && stagedErr == nil {
		fmt.Fprintf(&b, messages.StagePreviewCountsFmt, len(destFiles), len(stagedFiles))
		b.WriteString("\n")
	}

	if diff := manifestDiff(destDir, stagedDir, module); diff != "" {
		b.WriteString(diff)
	}
	return b.String()
}
