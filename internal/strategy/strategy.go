// Package strategy builds the install-method chain the resolver runs.
//
// Three methods exist: resource-client (Install-PSResource), legacy-client
// (Install-Module), and manual-copy (download from the gallery feed and
// place the tree directly). Chain assembles them in the configured order;
// each consults the probed environment in its precondition and maps its
// failures onto the resolver's error kinds.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/resolver"
	"github.com/openpcli/pcli-setup/internal/source"
	"github.com/openpcli/pcli-setup/internal/stage"
	"github.com/openpcli/pcli-setup/internal/version"
)

// latestLabel stands in for an unpinned version in error messages.
const latestLabel = "latest"

// Params fix what one run installs and where.
type Params struct {
	// Module is the module name to install.
	Module string
	// Version is the normalized pinned version, or empty for latest stable.
	Version string
	// Repository is the repository name passed to the package clients.
	Repository string
	// Scope selects the conventional module root.
	Scope modpath.Scope
	// DestRoot is the resolved destination module root for this run.
	DestRoot string
	// DestOverridden marks DestRoot as an explicit override rather than the
	// scope default. Package clients cannot honor an override.
	DestOverridden bool
	// TrustRepository suppresses untrusted-repository prompts in clients.
	TrustRepository bool
	// Force reinstalls over an existing version without prompting.
	Force bool
	// Order is the install-method order by name.
	Order []string
}

// ParamsFromConfig converts a validated config into run parameters.
// destRoot is the resolved module root; force mirrors the --force flag.
func ParamsFromConfig(cfg *config.Config, destRoot string, force bool) (Params, error) {
	scope, err := cfg.Install.ScopeValue()
	if err != nil {
		return Params{}, err
	}
	ver := ""
	if cfg.Module.Version != "" {
		ver, err = version.Normalize(cfg.Module.Version)
		if err != nil {
			return Params{}, err
		}
	}
	return Params{
		Module:          cfg.Module.Name,
		Version:         ver,
		Repository:      cfg.Module.Repository,
		Scope:           scope,
		DestRoot:        destRoot,
		DestOverridden:  strings.TrimSpace(cfg.Install.Dest) != "",
		TrustRepository: cfg.Install.TrustRepository,
		Force:           force,
		Order:           append([]string(nil), cfg.Install.Strategies...),
	}, nil
}

// versionLabel names the requested version in messages.
func (p Params) versionLabel() string {
	if p.Version == "" {
		return latestLabel
	}
	return p.Version
}

// Gallery is the feed surface the manual strategy needs.
type Gallery interface {
	ResolveVersion(ctx context.Context, name string, requested string) (string, error)
	Download(ctx context.Context, name string, ver string, destDir string) (string, error)
}

// Installer runs installs through a PowerShell package client.
type Installer interface {
	Install(ctx context.Context, client probe.ClientID, req source.InstallRequest) error
}

// Stager unpacks downloaded packages and places module trees.
type Stager interface {
	Root() string
	ExtractNupkg(archivePath string, module string, ver string) (string, error)
	Place(req stage.PlaceRequest) (stage.PlaceResult, error)
}

// Deps are the collaborators strategies act through.
type Deps struct {
	// Gallery serves version resolution and downloads for manual-copy.
	Gallery Gallery
	// Installer executes client installs for resource-client and
	// legacy-client.
	Installer Installer
	// Stager stages and places module trees for manual-copy.
	Stager Stager
	// Prompter gates replacing an existing differing install. Nil means
	// conflicts fail unless Force is set.
	Prompter stage.Prompter
}

// Chain builds the resolver candidates for one run, in params.Order.
func Chain(params Params, deps Deps) ([]resolver.Strategy, error) {
	if len(params.Order) == 0 {
		return nil, errors.New(messages.StrategyEmptyOrder)
	}

	out := make([]resolver.Strategy, 0, len(params.Order))
	for _, name := range params.Order {
		switch name {
		case config.StrategyResourceClient, config.StrategyLegacyClient:
			if deps.Installer == nil {
				return nil, fmt.Errorf(messages.StrategyMissingDepFmt, name, "a package client runner")
			}
			client := probe.ClientResourceGet
			if name == config.StrategyLegacyClient {
				client = probe.ClientPowerShellGet
			}
			out = append(out, &clientStrategy{
				name:      name,
				client:    client,
				params:    params,
				installer: deps.Installer,
			})
		case config.StrategyManualCopy:
			if deps.Gallery == nil {
				return nil, fmt.Errorf(messages.StrategyMissingDepFmt, name, "a gallery client")
			}
			if deps.Stager == nil {
				return nil, fmt.Errorf(messages.StrategyMissingDepFmt, name, "a staging area")
			}
			out = append(out, &manualStrategy{
				params:   params,
				gallery:  deps.Gallery,
				stager:   deps.Stager,
				prompter: deps.Prompter,
			})
		default:
			return nil, fmt.Errorf(messages.StrategyUnknownFmt, name, strings.Join(config.DefaultStrategies(), ", "))
		}
	}
	return out, nil
}

// AlreadyInstalled reports a satisfied install before any work happens.
// Only a pinned version can short-circuit: latest needs the network to even
// name its target. Force disables the check so reinstalls go through.
func AlreadyInstalled(env probe.Environment, params Params) (string, bool) {
	if params.Version == "" || params.Force {
		return "", false
	}
	roots := append([]string{params.DestRoot}, env.PathDirs()...)
	return modpath.FindInstalled(roots, params.Module, params.Version)
}

// verifyInstalled locates the module after a client reported success.
func verifyInstalled(strategyName string, env probe.Environment, params Params) (string, *resolver.Error) {
	roots := env.PathDirs()
	if params.Version != "" {
		if dir, ok := modpath.FindInstalled(roots, params.Module, params.Version); ok {
			return dir, nil
		}
	} else {
		for _, root := range roots {
			vers, err := modpath.InstalledVersions(root, params.Module)
			if err != nil || len(vers) == 0 {
				continue
			}
			return filepath.Join(root, params.Module, vers[len(vers)-1]), nil
		}
	}
	err := fmt.Errorf(messages.StrategyVerifyInstalledFmt, params.Module, params.versionLabel(), errors.New(messages.StrategyInstalledNotVisible))
	return "", resolver.NewError(resolver.KindUnknown, strategyName, err)
}
