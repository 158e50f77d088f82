package strategy

import (
	"context"
	"fmt"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/resolver"
	"github.com/openpcli/pcli-setup/internal/source"
)

// clientStrategy installs through one PowerShell package client. The client
// owns its own writes, so there is nothing of ours to roll back when it
// fails partway.
type clientStrategy struct {
	name      string
	client    probe.ClientID
	params    Params
	installer Installer
}

func (s *clientStrategy) Name() string {
	return s.name
}

func (s *clientStrategy) Precondition(env probe.Environment) (bool, string) {
	if env.PwshPath == "" {
		return false, messages.StrategyPwshMissing
	}
	if !env.HasClient(s.client) {
		return false, fmt.Sprintf(messages.StrategyClientMissingFmt, s.client)
	}
	if !env.NetworkOK {
		return false, messages.StrategyNetworkUnavailable
	}
	if s.params.DestOverridden {
		return false, messages.StrategyDestUnsupported
	}
	if s.params.Scope == modpath.ScopeAllUsers && !env.Elevated {
		return false, messages.StrategyElevationRequired
	}
	return true, ""
}

func (s *clientStrategy) Run(ctx context.Context, env probe.Environment) (string, error) {
	if dir, ok := AlreadyInstalled(env, s.params); ok {
		return dir, nil
	}

	req := source.InstallRequest{
		Module:          s.params.Module,
		Version:         s.params.Version,
		Repository:      s.params.Repository,
		Scope:           s.params.Scope,
		TrustRepository: s.params.TrustRepository,
		Force:           s.params.Force,
	}
	if err := s.installer.Install(ctx, s.client, req); err != nil {
		wrapped := fmt.Errorf(messages.StrategyInstallViaFmt, s.params.Module, s.client, err)
		return "", classifyInstall(s.name, wrapped)
	}

	dir, rerr := verifyInstalled(s.name, env, s.params)
	if rerr != nil {
		return "", rerr
	}
	return dir, nil
}

func (s *clientStrategy) Rollback(ctx context.Context) error {
	return nil
}

// classifyInstall maps a package-client failure onto the error taxonomy.
// An untrusted repository is a policy refusal, not a filesystem denial; it
// stays unknown and the message carries the --trust-repository remediation.
func classifyInstall(op string, err error) *resolver.Error {
	switch {
	case source.IsNotFound(err):
		return resolver.NewError(resolver.KindNotFound, op, err)
	case source.IsNetwork(err):
		return resolver.NewError(resolver.KindNetwork, op, err)
	case source.IsAccessDenied(err):
		return resolver.NewError(resolver.KindPermission, op, err)
	default:
		return resolver.NewError(resolver.Classify(err), op, err)
	}
}
