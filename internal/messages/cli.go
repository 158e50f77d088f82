package messages

// CLI messages for user-facing commands and prompts.
const (
	// RootUse is the CLI command name.
	RootUse = "pcli-setup"
	// RootShort is the short description for the root command.
	RootShort = "Install and maintain PowerCLI modules from the PowerShell Gallery"
	RootLong  = "pcli-setup installs PowerShell modules (VMware.PowerCLI by default) by\ntrying a chain of install methods in order: the modern PSResourceGet\nclient, the classic PowerShellGet client, and a manual download from the\ngallery placed directly into the module path. The first method that\nsucceeds wins; if all fail, every per-method error is reported."

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	// FlagConfigUsage describes the persistent --config flag.
	FlagConfigUsage  = "Path to config file (default: <user config dir>/pcli-setup/config.toml)"
	FlagVerboseUsage = "Log each resolution step"
	FlagQuietUsage   = "Suppress non-error output"

	// InstallUse is the install command name.
	InstallUse   = "install"
	InstallShort = "Install a module, falling back through install methods"
	InstallLong  = "Install a PowerShell module. Methods are attempted in configured order;\nthe first success stops the chain. A method whose preconditions are not\nmet is skipped. When every method fails or is skipped, the command exits\nnonzero and prints each method's error."

	InstallFlagModule          = "Module to install"
	InstallFlagModuleVersion   = "Exact module version to install (default: latest stable)"
	InstallFlagRepository      = "Gallery repository name passed to package clients"
	InstallFlagScope           = "Install scope: CurrentUser or AllUsers"
	InstallFlagDest            = "Destination module root (overrides scope resolution)"
	InstallFlagTrustRepository = "Pass -TrustRepository to package clients (skip the untrusted-repo prompt)"
	InstallFlagNoTelemetry     = "Disable PowerCLI customer experience improvement program after install"
	InstallFlagForce           = "Reinstall even if the requested version is already present"
	InstallFlagStrategy        = "Comma-separated method order (resource-client,legacy-client,manual-copy)"
	InstallFlagNoNetwork       = "Assume the gallery is unreachable; skip methods that need it"
	InstallFlagYes             = "Assume yes for overwrite prompts"

	InstallAttemptingFmt   = "Trying %s...\n"
	InstallSkippedFmt      = "Skipped %s: %s\n"
	InstallFailedFmt       = "Failed %s: %v\n"
	InstallSucceededFmt    = "Installed %s %s via %s\n"
	InstallLocationFmt     = "Location: %s\n"
	InstallAllFailedHeader = "All install methods failed:"
	InstallAllFailedRowFmt = "  %s: %v\n"
	InstallSkippedRowFmt   = "  %s: skipped (%s)\n"
	InstallCanceled        = "Install canceled."
	InstallUpToDateFmt     = "%s %s is already installed at %s\n"

	InstallCEIPDisabled       = "PowerCLI telemetry (CEIP) disabled.\n"
	InstallCEIPWarnFmt        = "Warning: failed to disable PowerCLI telemetry: %v\n"
	InstallRollbackWarnFmt    = "Warning: rollback for %s failed: %v\n"
	InstallOverwritePromptFmt = "%s is already present with different content. Overwrite?"

	// DoctorUse is the doctor command name.
	DoctorUse   = "doctor"
	DoctorShort = "Check the host for everything an install needs"

	// CleanUse is the clean command name.
	CleanUse       = "clean"
	CleanShort     = "Remove staged downloads and extracted packages"
	CleanRemoveFmt = "Removed staging dir %s\n"
	CleanNothing   = "Nothing to clean.\n"

	// PromptRequiresTerminal rejects interactive prompts without a TTY.
	PromptRequiresTerminal  = "interactive prompt requires a terminal"
	PromptAborted           = "prompt aborted"
	PromptNonInteractiveFmt = "cannot confirm overwriting %s without a terminal (re-run with --yes or --force)"
)
