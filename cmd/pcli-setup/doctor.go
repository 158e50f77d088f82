package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/doctor"
	"github.com/openpcli/pcli-setup/internal/gallery"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/probe"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var noNetwork bool
	cmd := &cobra.Command{
		Use:   messages.DoctorUse,
		Short: messages.DoctorShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			paths, err := config.DefaultPaths()
			if err != nil {
				return err
			}
			configPath := root.configPath
			if configPath == "" {
				configPath = paths.ConfigPath
			}

			configResults, cfg := doctor.CheckConfigFile(configPath)
			if cfg == nil {
				// The file is beyond lenient repair; the remaining checks
				// still run against the defaults.
				cfg = config.Default()
			}

			_, _ = fmt.Fprintf(out, messages.DoctorHealthCheckFmt, cfg.Module.Name)

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
			env, err := prober.Probe(cmd.Context(), probe.Options{NoNetwork: noNetwork})
			if err != nil {
				return err
			}
			scope, err := cfg.Install.ScopeValue()
			if err != nil {
				return err
			}

			var allResults []doctor.Result
			allResults = append(allResults, configResults...)
			allResults = append(allResults, doctor.CheckInterpreter(env)...)
			allResults = append(allResults, doctor.CheckClients(env)...)
			allResults = append(allResults, doctor.CheckModulePaths(env, scope)...)
			allResults = append(allResults, doctor.CheckGallery(cmd.Context(), gc, gc.BaseURL(), noNetwork))
			allResults = append(allResults, doctor.CheckModule(cmd.Context(), env, cfg, gc)...)

			hasFail := false
			for _, r := range allResults {
				printResult(out, r)
				if r.Status == doctor.StatusFail {
					hasFail = true
				}
			}

			if hasFail {
				_, _ = fmt.Fprintln(out, color.RedString(messages.DoctorFailureSummary))
				return fmt.Errorf(messages.DoctorFailureError)
			}
			_, _ = fmt.Fprintln(out, color.GreenString(messages.DoctorSuccessSummary))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noNetwork, "no-network", false, messages.InstallFlagNoNetwork)
	return cmd
}

func printResult(out io.Writer, r doctor.Result) {
	var status string
	switch r.Status {
	case doctor.StatusOK:
		status = color.GreenString(messages.DoctorStatusOKLabel)
	case doctor.StatusWarn:
		status = color.YellowString(messages.DoctorStatusWarnLabel)
	case doctor.StatusFail:
		status = color.RedString(messages.DoctorStatusFailLabel)
	}

	_, _ = fmt.Fprintf(out, messages.DoctorResultLineFmt, status, r.CheckName, r.Message)
	if r.Recommendation != "" {
		printRecommendation(out, r.Recommendation)
	}
}

// printRecommendation renders a multi-line recommendation with consistent indentation.
func printRecommendation(out io.Writer, recommendation string) {
	lines := strings.Split(recommendation, "\n")
	for i, line := range lines {
		if i == 0 {
			_, _ = fmt.Fprintf(out, "%s%s\n", messages.DoctorRecommendationPrefix, line)
			continue
		}
		if line == "" {
			_, _ = fmt.Fprintf(out, "%s\n", messages.DoctorRecommendationIndent)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s%s\n", messages.DoctorRecommendationIndent, line)
	}
}
