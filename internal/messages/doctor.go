package messages

// Doctor messages for the doctor command.
const (
	DoctorHealthCheckFmt = "Checking install readiness for %s...\n"

	DoctorCheckNameInterpreter = "Interpreter"
	DoctorCheckNameClients     = "Clients"
	DoctorCheckNameModulePath  = "ModulePath"
	DoctorCheckNameGallery     = "Gallery"
	DoctorCheckNameConfig      = "Config"
	DoctorCheckNameModule      = "Module"

	DoctorPwshFoundFmt        = "PowerShell found: %s"
	DoctorPwshMissing         = "pwsh not found on PATH"
	DoctorPwshRecommend       = "Install PowerShell 7+ (https://aka.ms/powershell) or add pwsh to PATH."
	DoctorElevatedNote        = " (elevated)"
	DoctorClientFoundFmt      = "Package client available: %s %s"
	DoctorNoClients           = "No package client (PSResourceGet or PowerShellGet) detected"
	DoctorNoClientsRecommend  = "Only the manual-copy method will be attempted. Install Microsoft.PowerShell.PSResourceGet for managed installs."
	DoctorLegacyOnly          = "Only the legacy PowerShellGet client is available"
	DoctorLegacyOnlyRecommend = "Install Microsoft.PowerShell.PSResourceGet; PowerShellGet is deprecated."

	DoctorWritablePathFmt      = "Writable module path: %s"
	DoctorNoWritablePath       = "No writable module path found"
	DoctorNoWritablePathRecFmt = "Create %s or re-run with a --dest you can write to."

	DoctorGalleryOKFmt     = "Gallery reachable: %s"
	DoctorGalleryFailedFmt = "Gallery unreachable: %v"
	DoctorGalleryRecommend = "Check network access and proxy settings; every install method needs the gallery."
	DoctorGallerySkipped   = "Gallery check skipped (--no-network)"

	DoctorConfigLoaded        = "Configuration loaded successfully"
	DoctorConfigDefaultsInUse = "No config file found; built-in defaults are in effect"
	DoctorConfigLoadFailedFmt = "Failed to load configuration: %v"
	DoctorConfigLoadRecommend = "Fix the reported fields in config.toml; defaults apply until it parses."

	DoctorModuleInstalledFmt   = "%s %s installed"
	DoctorModuleUpToDateFmt    = "%s is up to date (%s)"
	DoctorModuleOutdatedFmt    = "%s %s installed; %s available"
	DoctorModuleOutdatedRecFmt = "Run `pcli-setup install --module-version %s` to upgrade."
	DoctorModuleMissingFmt     = "%s is not installed"
	DoctorModuleMissingRec     = "Run `pcli-setup install`."
	DoctorModuleCheckFailedFmt = "Failed to check installed versions: %v"
	DoctorLatestUnknownFmt     = "%s %s installed (latest unknown: %v)"

	DoctorFailureSummary = "Some checks failed or triggered warnings. Please address the items above."
	DoctorFailureError   = "doctor checks failed"
	DoctorSuccessSummary = "All checks passed. Ready to install."

	DoctorStatusOKLabel        = "[OK]  "
	DoctorStatusWarnLabel      = "[WARN]"
	DoctorStatusFailLabel      = "[FAIL]"
	DoctorResultLineFmt        = "%s %-12s %s\n"
	DoctorRecommendationPrefix = "       > "
	DoctorRecommendationIndent = "         "
)
