// Package doctor inspects the host and configuration and reports what an
// install run would find, without changing anything.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/version"
)

// Status grades a single check result.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Result is one finding from a single check.
type Result struct {
	Status         Status
	CheckName      string
	Message        string
	Recommendation string
}

// VersionResolver answers "what is the latest stable version" for the module
// check. *gallery.Client satisfies it.
type VersionResolver interface {
	Latest(ctx context.Context, name string) (string, error)
}

// CheckInterpreter reports whether pwsh is on PATH.
func CheckInterpreter(env probe.Environment) []Result {
	if env.PwshPath == "" {
		return []Result{{
			Status:         StatusFail,
			CheckName:      messages.DoctorCheckNameInterpreter,
			Message:        messages.DoctorPwshMissing,
			Recommendation: messages.DoctorPwshRecommend,
		}}
	}
	msg := fmt.Sprintf(messages.DoctorPwshFoundFmt, env.PwshPath)
	if env.Elevated {
		msg += messages.DoctorElevatedNote
	}
	return []Result{{
		Status:    StatusOK,
		CheckName: messages.DoctorCheckNameInterpreter,
		Message:   msg,
	}}
}

// CheckClients reports which package clients the probe found. Having none is
// a warning, not a failure: manual copy installs without one.
func CheckClients(env probe.Environment) []Result {
	if len(env.Clients) == 0 {
		return []Result{{
			Status:         StatusWarn,
			CheckName:      messages.DoctorCheckNameClients,
			Message:        messages.DoctorNoClients,
			Recommendation: messages.DoctorNoClientsRecommend,
		}}
	}

	var results []Result
	for _, c := range env.Clients {
		results = append(results, Result{
			Status:    StatusOK,
			CheckName: messages.DoctorCheckNameClients,
			Message:   fmt.Sprintf(messages.DoctorClientFoundFmt, c.ID, c.Version),
		})
	}
	if env.HasClient(probe.ClientPowerShellGet) && !env.HasClient(probe.ClientResourceGet) {
		results = append(results, Result{
			Status:         StatusWarn,
			CheckName:      messages.DoctorCheckNameClients,
			Message:        messages.DoctorLegacyOnly,
			Recommendation: messages.DoctorLegacyOnlyRecommend,
		})
	}
	return results
}

// CheckModulePaths reports the writable module roots. No writable root means
// no method can place files, so that is a failure.
func CheckModulePaths(env probe.Environment, scope modpath.Scope) []Result {
	var results []Result
	for _, p := range env.ModulePaths {
		if !p.Writable {
			continue
		}
		results = append(results, Result{
			Status:    StatusOK,
			CheckName: messages.DoctorCheckNameModulePath,
			Message:   fmt.Sprintf(messages.DoctorWritablePathFmt, p.Dir),
		})
	}
	if len(results) > 0 {
		return results
	}

	recommend := messages.DoctorNoWritablePath
	if root, err := modpath.DefaultRoot(scope); err == nil {
		recommend = fmt.Sprintf(messages.DoctorNoWritablePathRecFmt, root)
	}
	return []Result{{
		Status:         StatusFail,
		CheckName:      messages.DoctorCheckNameModulePath,
		Message:        messages.DoctorNoWritablePath,
		Recommendation: recommend,
	}}
}

// CheckGallery pings the gallery endpoint. A nil pinger or noNetwork reports
// the check skipped.
func CheckGallery(ctx context.Context, pinger probe.Pinger, baseURL string, noNetwork bool) Result {
	if noNetwork || pinger == nil {
		return Result{
			Status:    StatusWarn,
			CheckName: messages.DoctorCheckNameGallery,
			Message:   messages.DoctorGallerySkipped,
		}
	}
	if err := pinger.Ping(ctx); err != nil {
		return Result{
			Status:         StatusFail,
			CheckName:      messages.DoctorCheckNameGallery,
			Message:        fmt.Sprintf(messages.DoctorGalleryFailedFmt, err),
			Recommendation: messages.DoctorGalleryRecommend,
		}
	}
	return Result{
		Status:    StatusOK,
		CheckName: messages.DoctorCheckNameGallery,
		Message:   fmt.Sprintf(messages.DoctorGalleryOKFmt, baseURL),
	}
}

// CheckConfigFile validates the configuration file. When strict loading fails
// on validation, the file is reloaded leniently and repaired with defaults so
// the remaining checks still run against something; the validation failure is
// still reported. A missing file is fine: defaults apply.
func CheckConfigFile(path string) ([]Result, *config.Config) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return []Result{{
			Status:    StatusOK,
			CheckName: messages.DoctorCheckNameConfig,
			Message:   messages.DoctorConfigLoaded,
		}}, cfg
	}
	if errors.Is(err, fs.ErrNotExist) {
		return []Result{{
			Status:    StatusOK,
			CheckName: messages.DoctorCheckNameConfig,
			Message:   messages.DoctorConfigDefaultsInUse,
		}}, config.Default()
	}

	fail := Result{
		Status:         StatusFail,
		CheckName:      messages.DoctorCheckNameConfig,
		Message:        fmt.Sprintf(messages.DoctorConfigLoadFailedFmt, err),
		Recommendation: messages.DoctorConfigLoadRecommend,
	}
	if !errors.Is(err, config.ErrConfigValidation) {
		// Syntax error or unreadable file; a lenient reload would hit the
		// same wall.
		return []Result{fail}, nil
	}

	if details, detailErr := configUnknownKeys(path); detailErr == nil && len(details) > 0 {
		fail.Message = fmt.Sprintf(messages.DoctorConfigLoadFailedFmt, summarizeUnknownKeys(details))
		fail.Recommendation = formatUnknownKeyRecommendation(path, details)
	}

	lenient, lenientErr := config.LoadConfigLenient(path)
	if lenientErr != nil {
		return []Result{fail}, nil
	}
	return []Result{fail}, lenient.WithDefaults()
}

// CheckModule reports whether the configured module is installed and, when
// the gallery is reachable, whether a newer stable version exists. A missing
// install is the doctor's normal case, so it warns rather than fails.
func CheckModule(ctx context.Context, env probe.Environment, cfg *config.Config, resolver VersionResolver) []Result {
	name := cfg.Module.Name
	installed, err := newestInstalled(env.PathDirs(), name)
	if err != nil {
		return []Result{{
			Status:    StatusFail,
			CheckName: messages.DoctorCheckNameModule,
			Message:   fmt.Sprintf(messages.DoctorModuleCheckFailedFmt, err),
		}}
	}
	if installed == "" {
		return []Result{{
			Status:         StatusWarn,
			CheckName:      messages.DoctorCheckNameModule,
			Message:        fmt.Sprintf(messages.DoctorModuleMissingFmt, name),
			Recommendation: messages.DoctorModuleMissingRec,
		}}
	}

	if resolver == nil || !env.NetworkOK {
		return []Result{{
			Status:    StatusOK,
			CheckName: messages.DoctorCheckNameModule,
			Message:   fmt.Sprintf(messages.DoctorModuleInstalledFmt, name, installed),
		}}
	}

	latest, err := resolver.Latest(ctx, name)
	if err != nil {
		return []Result{{
			Status:    StatusWarn,
			CheckName: messages.DoctorCheckNameModule,
			Message:   fmt.Sprintf(messages.DoctorLatestUnknownFmt, name, installed, err),
		}}
	}
	if cmp, err := version.Compare(installed, latest); err == nil && cmp < 0 {
		return []Result{{
			Status:         StatusWarn,
			CheckName:      messages.DoctorCheckNameModule,
			Message:        fmt.Sprintf(messages.DoctorModuleOutdatedFmt, name, installed, latest),
			Recommendation: fmt.Sprintf(messages.DoctorModuleOutdatedRecFmt, latest),
		}}
	}
	return []Result{{
		Status:    StatusOK,
		CheckName: messages.DoctorCheckNameModule,
		Message:   fmt.Sprintf(messages.DoctorModuleUpToDateFmt, name, installed),
	}}
}

// newestInstalled returns the highest installed version across roots, or ""
// when the module is absent everywhere.
func newestInstalled(roots []string, name string) (string, error) {
	var all []string
	for _, root := range roots {
		versions, err := modpath.InstalledVersions(root, name)
		if err != nil {
			return "", err
		}
		all = append(all, versions...)
	}
	if len(all) == 0 {
		return "", nil
	}
	return version.Max(all)
}
