package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/gallery"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/resolver"
	"github.com/openpcli/pcli-setup/internal/stage"
)

// manualStrategy installs without a package client: resolve the version
// against the gallery feed, download the nupkg, unpack it in the staging
// area, and place the tree under the destination root.
type manualStrategy struct {
	params   Params
	gallery  Gallery
	stager   Stager
	prompter stage.Prompter

	// rollbackDir is the destination version dir to remove when placement
	// left it partially written.
	rollbackDir string
}

func (s *manualStrategy) Name() string {
	return config.StrategyManualCopy
}

func (s *manualStrategy) Precondition(env probe.Environment) (bool, string) {
	if !env.NetworkOK {
		return false, messages.StrategyNetworkUnavailable
	}
	for _, p := range env.ModulePaths {
		if p.Dir == s.params.DestRoot && !p.Writable {
			return false, fmt.Sprintf(messages.StrategyRootNotWritableFmt, s.params.DestRoot)
		}
	}
	return true, ""
}

func (s *manualStrategy) Run(ctx context.Context, env probe.Environment) (string, error) {
	if dir, ok := AlreadyInstalled(env, s.params); ok {
		return dir, nil
	}

	name := s.Name()
	module := s.params.Module

	ver, err := s.gallery.ResolveVersion(ctx, module, s.params.Version)
	if err != nil {
		return "", classifyGallery(name, fmt.Errorf(messages.StrategyResolveVersionFmt, module, err))
	}

	asset, err := s.gallery.Download(ctx, module, ver, s.downloadDir())
	if err != nil {
		return "", classifyGallery(name, fmt.Errorf(messages.StrategyDownloadFmt, module, ver, err))
	}

	stagedDir, err := s.stager.ExtractNupkg(asset, module, ver)
	if err != nil {
		return "", classifyStage(name, fmt.Errorf(messages.StrategyExtractFmt, module, ver, err))
	}

	res, err := s.stager.Place(stage.PlaceRequest{
		StagedDir: stagedDir,
		Root:      s.params.DestRoot,
		Module:    module,
		Version:   ver,
		Force:     s.params.Force,
		Prompter:  s.prompter,
	})
	if err != nil {
		if errors.Is(err, stage.ErrPartialWrite) {
			s.rollbackDir = filepath.Join(s.params.DestRoot, module, ver)
		}
		return "", classifyStage(name, fmt.Errorf(messages.StrategyPlaceFmt, module, ver, err))
	}
	// A declined overwrite keeps the existing tree; the requested version is
	// present either way, so the run counts as satisfied.
	return res.Path, nil
}

func (s *manualStrategy) Rollback(ctx context.Context) error {
	if s.rollbackDir == "" {
		return nil
	}
	dir := s.rollbackDir
	s.rollbackDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf(messages.StrategyRollbackRemoveFailFmt, dir, err)
	}
	return nil
}

// downloadDir is where nupkg assets land inside the staging area.
func (s *manualStrategy) downloadDir() string {
	return filepath.Join(s.stager.Root(), "downloads")
}

// classifyGallery maps gallery feed failures onto the error taxonomy.
func classifyGallery(op string, err error) *resolver.Error {
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		return resolver.NewError(resolver.KindNotFound, op, err)
	case gallery.IsRateLimitError(err):
		return resolver.NewError(resolver.KindNetwork, op, err)
	default:
		return resolver.NewError(resolver.Classify(err), op, err)
	}
}

// classifyStage maps staging and placement failures onto the error taxonomy.
func classifyStage(op string, err error) *resolver.Error {
	if errors.Is(err, stage.ErrPartialWrite) {
		return resolver.NewError(resolver.KindPartialWrite, op, err)
	}
	return resolver.NewError(resolver.Classify(err), op, err)
}
