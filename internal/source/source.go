// Package source drives module installs through the PowerShell package
// clients (PSResourceGet and the legacy PowerShellGet) by invoking pwsh.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
)

// Reason categorizes why a pwsh install invocation failed.
type Reason string

const (
	ReasonUnknown      Reason = "unknown"
	ReasonNotFound     Reason = "not_found"
	ReasonUntrusted    Reason = "untrusted"
	ReasonAccessDenied Reason = "access_denied"
	ReasonNetwork      Reason = "network"
)

const maxStderrBytes = 2048

// InstallError reports a pwsh package-client invocation that ran and failed.
type InstallError struct {
	Client     probe.ClientID
	Module     string
	Repository string
	ExitCode   int
	Stderr     string
	Reason     Reason
}

func (e *InstallError) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return fmt.Sprintf(messages.SourceModuleNotFoundFmt, e.Module, e.Repository)
	case ReasonUntrusted:
		return fmt.Sprintf(messages.SourceUntrustedRepoFmt, e.Repository)
	default:
		return fmt.Sprintf(messages.SourceInstallFailedFmt, installCmdlet(e.Client), e.ExitCode, e.Stderr)
	}
}

// IsNotFound reports whether err says the module is absent from the repository.
func IsNotFound(err error) bool {
	return reasonOf(err) == ReasonNotFound
}

// IsUntrusted reports whether err says the repository is untrusted.
func IsUntrusted(err error) bool {
	return reasonOf(err) == ReasonUntrusted
}

// IsAccessDenied reports whether err says the module path refused writes.
func IsAccessDenied(err error) bool {
	return reasonOf(err) == ReasonAccessDenied
}

// IsNetwork reports whether err says the client could not reach the repository.
func IsNetwork(err error) bool {
	return reasonOf(err) == ReasonNetwork
}

func reasonOf(err error) Reason {
	var ie *InstallError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ""
}

// InstallRequest describes one module install through a package client.
type InstallRequest struct {
	Module          string
	Version         string
	Repository      string
	Scope           modpath.Scope
	TrustRepository bool
	Force           bool
}

// PwshClient runs package-client cmdlets through a pwsh interpreter.
type PwshClient struct {
	pwshPath string
	runner   Runner
}

// NewPwshClient returns a client that invokes pwshPath via runner.
func NewPwshClient(pwshPath string, runner Runner) (*PwshClient, error) {
	if strings.TrimSpace(pwshPath) == "" {
		return nil, errors.New(messages.SourcePwshPathRequired)
	}
	if runner == nil {
		return nil, errors.New(messages.SourceRunnerRequired)
	}
	return &PwshClient{pwshPath: pwshPath, runner: runner}, nil
}

// Install installs the requested module through the given package client.
// A non-zero pwsh exit surfaces as *InstallError with the stderr classified.
func (c *PwshClient) Install(ctx context.Context, client probe.ClientID, req InstallRequest) error {
	script, err := installScript(client, req)
	if err != nil {
		return err
	}

	res, err := c.run(ctx, script)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		stderr := stderrSummary(res.Stderr)
		return &InstallError{
			Client:     client,
			Module:     req.Module,
			Repository: req.Repository,
			ExitCode:   res.ExitCode,
			Stderr:     stderr,
			Reason:     classifyStderr(stderr),
		}
	}
	return nil
}

// DisableCEIP turns off PowerCLI's customer experience improvement program
// for the current user.
func (c *PwshClient) DisableCEIP(ctx context.Context) error {
	script := "$ErrorActionPreference = 'Stop'; " +
		"Set-PowerCLIConfiguration -Scope User -ParticipateInCeip $false -Confirm:$false | Out-Null"
	res, err := c.run(ctx, script)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s: %s", messages.SourceCEIPConfigureFailed, stderrSummary(res.Stderr))
	}
	return nil
}

func (c *PwshClient) run(ctx context.Context, script string) (Result, error) {
	res, err := c.runner.Run(ctx, c.pwshPath, "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		return Result{}, fmt.Errorf(messages.SourceInstallStartFmt, c.pwshPath, err)
	}
	return res, nil
}

// installScript builds the pwsh command line for one install request.
func installScript(client probe.ClientID, req InstallRequest) (string, error) {
	if strings.TrimSpace(req.Module) == "" {
		return "", errors.New(messages.SourceModuleRequired)
	}

	var b strings.Builder
	b.WriteString("$ErrorActionPreference = 'Stop'; ")
	switch client {
	case probe.ClientResourceGet:
		b.WriteString("Install-PSResource -Name " + psQuote(req.Module))
		if req.Version != "" {
			b.WriteString(" -Version " + psQuote(req.Version))
		}
		if req.Repository != "" {
			b.WriteString(" -Repository " + psQuote(req.Repository))
		}
		if req.Scope != "" {
			b.WriteString(" -Scope " + string(req.Scope))
		}
		if req.TrustRepository {
			b.WriteString(" -TrustRepository")
		}
		if req.Force {
			b.WriteString(" -Reinstall")
		}
		b.WriteString(" -AcceptLicense -Quiet")
	case probe.ClientPowerShellGet:
		b.WriteString("Install-Module -Name " + psQuote(req.Module))
		if req.Version != "" {
			b.WriteString(" -RequiredVersion " + psQuote(req.Version))
		}
		if req.Repository != "" {
			b.WriteString(" -Repository " + psQuote(req.Repository))
		}
		if req.Scope != "" {
			b.WriteString(" -Scope " + string(req.Scope))
		}
		// Install-Module has no trust switch; -Force suppresses the
		// untrusted-repository prompt, which also covers --force.
		if req.TrustRepository || req.Force {
			b.WriteString(" -Force")
		}
		b.WriteString(" -AllowClobber -AcceptLicense")
	default:
		return "", fmt.Errorf(messages.SourceUnsupportedClientFmt, string(client))
	}
	return b.String(), nil
}

func installCmdlet(client probe.ClientID) string {
	switch client {
	case probe.ClientResourceGet:
		return "Install-PSResource"
	case probe.ClientPowerShellGet:
		return "Install-Module"
	default:
		return "pwsh"
	}
}

// psQuote single-quotes a value for embedding in a pwsh command.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// stderrSummary trims and caps captured stderr for error reporting.
func stderrSummary(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderrBytes {
		stderr = stderr[:maxStderrBytes] + messages.SourceStderrTruncatedSuffix
	}
	return stderr
}

// classifyStderr maps pwsh error text onto a failure reason. The package
// clients localize very little of these identifiers, so substring checks on
// the error records are dependable.
func classifyStderr(stderr string) Reason {
	lower := strings.ToLower(stderr)
	switch {
	case containsAny(lower,
		"no match was found",
		"could not be found",
		"unable to find package",
		"package not found"):
		return ReasonNotFound
	case containsAny(lower,
		"untrusted repository",
		"is not trusted",
		"exception calling \"shouldcontinue\""):
		return ReasonUntrusted
	case containsAny(lower,
		"access to the path",
		"is denied",
		"permission denied",
		"unauthorizedaccess",
		"administrator rights"):
		return ReasonAccessDenied
	case containsAny(lower,
		"no such host",
		"could not be resolved",
		"unable to resolve package source",
		"a connection attempt failed",
		"connection refused",
		"the operation has timed out",
		"nameresolutionfailure"):
		return ReasonNetwork
	default:
		return ReasonUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
