package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/envfile"
	"github.com/openpcli/pcli-setup/internal/events"
	"github.com/openpcli/pcli-setup/internal/gallery"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/prompt"
	"github.com/openpcli/pcli-setup/internal/resolver"
	"github.com/openpcli/pcli-setup/internal/source"
	"github.com/openpcli/pcli-setup/internal/stage"
	"github.com/openpcli/pcli-setup/internal/strategy"
	"github.com/openpcli/pcli-setup/internal/terminal"
)

var isTerminalFunc = terminal.IsInteractive

// installOptions holds the install command's flag values.
type installOptions struct {
	module        string
	moduleVersion string
	repository    string
	scope         string
	dest          string
	strategies    string
	trustRepo     bool
	noTelemetry   bool
	force         bool
	noNetwork     bool
	yes           bool
}

func newInstallCmd(root *rootOptions) *cobra.Command {
	opts := &installOptions{}
	cmd := &cobra.Command{
		Use:   messages.InstallUse,
		Short: messages.InstallShort,
		Long:  messages.InstallLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.module, "module", "", messages.InstallFlagModule)
	cmd.Flags().StringVar(&opts.moduleVersion, "module-version", "", messages.InstallFlagModuleVersion)
	cmd.Flags().StringVar(&opts.repository, "repository", "", messages.InstallFlagRepository)
	cmd.Flags().StringVar(&opts.scope, "scope", "", messages.InstallFlagScope)
	cmd.Flags().StringVar(&opts.dest, "dest", "", messages.InstallFlagDest)
	cmd.Flags().StringVar(&opts.strategies, "strategy", "", messages.InstallFlagStrategy)
	cmd.Flags().BoolVar(&opts.trustRepo, "trust-repository", false, messages.InstallFlagTrustRepository)
	cmd.Flags().BoolVar(&opts.noTelemetry, "disable-telemetry", false, messages.InstallFlagNoTelemetry)
	cmd.Flags().BoolVar(&opts.force, "force", false, messages.InstallFlagForce)
	cmd.Flags().BoolVar(&opts.noNetwork, "no-network", false, messages.InstallFlagNoNetwork)
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, messages.InstallFlagYes)
	return cmd
}

func runInstall(cmd *cobra.Command, root *rootOptions, opts *installOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	paths, err := config.DefaultPaths()
	if err != nil {
		return err
	}
	cfg, err := effectiveConfig(cmd, root, opts, paths)
	if err != nil {
		return err
	}

	scope, err := cfg.Install.ScopeValue()
	if err != nil {
		return err
	}
	destRoot := strings.TrimSpace(cfg.Install.Dest)
	if destRoot == "" {
		destRoot, err = modpath.DefaultRoot(scope)
		if err != nil {
			return err
		}
	}
	if err := modpath.EnsureRoot(destRoot); err != nil {
		return err
	}

	gc, err := gallery.New(cfg.Gallery.URL, gallery.Options{
		Timeout:  cfg.Gallery.Timeout(),
		MaxBytes: cfg.Gallery.MaxDownloadBytes(),
	})
	if err != nil {
		return err
	}
	prober, err := probe.New(probe.RealSystem{}, gc)
	if err != nil {
		return err
	}
	env, err := prober.Probe(ctx, probe.Options{NoNetwork: opts.noNetwork, DestRoot: destRoot})
	if err != nil {
		return err
	}

	params, err := strategy.ParamsFromConfig(cfg, destRoot, opts.force)
	if err != nil {
		return err
	}
	if dir, ok := strategy.AlreadyInstalled(env, params); ok {
		if !root.quiet {
			_, _ = fmt.Fprintf(out, messages.InstallUpToDateFmt, params.Module, params.Version, dir)
		}
		return nil
	}

	// Client strategies skip themselves when the probe found no pwsh; the
	// conventional binary name keeps the runner constructible either way.
	pwshPath := env.PwshPath
	if pwshPath == "" {
		pwshPath = "pwsh"
	}
	installer, err := source.NewPwshClient(pwshPath, source.ExecRunner{})
	if err != nil {
		return err
	}
	stager, err := stage.New(paths.StageDir)
	if err != nil {
		return err
	}
	defer func() { _ = stager.Clean() }()

	candidates, err := strategy.Chain(params, strategy.Deps{
		Gallery:   gc,
		Installer: installer,
		Stager:    stager,
		Prompter:  installPrompter(out, opts.yes),
	})
	if err != nil {
		return err
	}

	sink := installSink(out, errOut, root.verbose, root.quiet)
	var res resolver.Result
	err = modpath.WithRootLock(destRoot, func() error {
		var rerr error
		res, rerr = resolver.Resolve(ctx, candidates, env, resolver.Options{Sink: sink})
		return rerr
	})
	if err != nil {
		if res.Status == resolver.StatusCanceled {
			_, _ = fmt.Fprintln(errOut, messages.InstallCanceled)
			return &SilentExitError{Code: 1}
		}
		return err
	}

	if !res.Succeeded() {
		_, _ = fmt.Fprintln(errOut, messages.InstallAllFailedHeader)
		for _, att := range res.Attempts {
			switch att.Outcome {
			case resolver.OutcomeSkipped:
				_, _ = fmt.Fprintf(errOut, messages.InstallSkippedRowFmt, att.Strategy, att.Err.Err)
			case resolver.OutcomeFailed:
				_, _ = fmt.Fprintf(errOut, messages.InstallAllFailedRowFmt, att.Strategy, att.Err)
			}
		}
		return &SilentExitError{Code: 1}
	}

	if !root.quiet {
		_, _ = fmt.Fprintf(out, messages.InstallSucceededFmt, params.Module, filepath.Base(res.Path), res.Chosen)
		_, _ = fmt.Fprintf(out, messages.InstallLocationFmt, res.Path)
	}
	if cfg.Install.DisableTelemetry {
		disableTelemetry(cmd, env, installer, root.quiet)
	}
	return nil
}

// effectiveConfig layers the config file, env overrides, and flags, then
// validates the merged result.
func effectiveConfig(cmd *cobra.Command, root *rootOptions, opts *installOptions, paths config.Paths) (*config.Config, error) {
	path := root.configPath
	if path == "" {
		path = paths.ConfigPath
	}
	cfg, err := config.LoadConfigIfPresent(path)
	if err != nil {
		return nil, err
	}

	fileEnv, err := config.LoadEnv(paths.EnvPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, envfile.Merge(fileEnv, config.ProcessEnv())); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("module") {
		cfg.Module.Name = opts.module
	}
	if flags.Changed("module-version") {
		cfg.Module.Version = opts.moduleVersion
	}
	if flags.Changed("repository") {
		cfg.Module.Repository = opts.repository
	}
	if flags.Changed("scope") {
		cfg.Install.Scope = opts.scope
	}
	if flags.Changed("dest") {
		cfg.Install.Dest = opts.dest
	}
	if flags.Changed("strategy") {
		cfg.Install.Strategies = splitStrategies(opts.strategies)
	}
	if flags.Changed("trust-repository") {
		cfg.Install.TrustRepository = opts.trustRepo
	}
	if flags.Changed("disable-telemetry") {
		cfg.Install.DisableTelemetry = opts.noTelemetry
	}

	if err := cfg.Validate("configuration"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitStrategies parses the --strategy flag's comma-separated method list.
func splitStrategies(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// installPrompter picks how overwrite conflicts get confirmed: --yes accepts
// everything, an interactive terminal asks, and anything else refuses with a
// pointer at the flags that unblock it.
func installPrompter(out io.Writer, yes bool) stage.Prompter {
	if yes {
		return stage.PromptFuncs{ConfirmReplaceFunc: func(string, string) (bool, error) {
			return true, nil
		}}
	}
	if isTerminalFunc() {
		return &prompt.ReplacePrompter{UI: prompt.NewHuhUI(), Out: out}
	}
	return stage.PromptFuncs{ConfirmReplaceFunc: func(path string, _ string) (bool, error) {
		return false, fmt.Errorf(messages.PromptNonInteractiveFmt, path)
	}}
}

// installSink builds the event sink for one run: human progress lines on
// stdout unless quiet, plus structured debug logs on stderr when verbose.
func installSink(out io.Writer, errOut io.Writer, verbose bool, quiet bool) events.Sink {
	var sinks []events.Sink
	if !quiet {
		sinks = append(sinks, progressSink{out: out, errOut: errOut})
	}
	if verbose {
		sinks = append(sinks, events.NewLogSink(errOut, log.DebugLevel))
	}
	if len(sinks) == 0 {
		return events.NopSink{}
	}
	return events.Multi(sinks...)
}

// progressSink renders resolution events as the install command's progress
// lines.
type progressSink struct {
	out    io.Writer
	errOut io.Writer
}

func (p progressSink) Emit(e events.Event) {
	switch e.Type {
	case events.TypeStrategyAttempted:
		_, _ = fmt.Fprintf(p.out, messages.InstallAttemptingFmt, e.Strategy)
	case events.TypeStrategySkipped:
		_, _ = fmt.Fprintf(p.out, messages.InstallSkippedFmt, e.Strategy, e.Reason)
	case events.TypeStrategyFailed:
		_, _ = fmt.Fprintf(p.out, messages.InstallFailedFmt, e.Strategy, e.Err)
	case events.TypeRollbackFailed:
		_, _ = fmt.Fprintf(p.errOut, messages.InstallRollbackWarnFmt, e.Strategy, e.Err)
	}
}

// disableTelemetry opts out of the VMware CEIP after a successful install.
// Failure here never fails the install; the module itself landed fine.
func disableTelemetry(cmd *cobra.Command, env probe.Environment, installer *source.PwshClient, quiet bool) {
	if env.PwshPath == "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), messages.InstallCEIPWarnFmt, errors.New(messages.ProbePwshNotFound))
		return
	}
	if err := installer.DisableCEIP(cmd.Context()); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), messages.InstallCEIPWarnFmt, err)
		return
	}
	if !quiet {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), messages.InstallCEIPDisabled)
	}
}
