// Package main is the entrypoint for the gx CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gx-tool/gx/internal/app"
	"github.com/gx-tool/gx/internal/config"
	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/lint"
	"github.com/gx-tool/gx/internal/slogctx"
	"github.com/gx-tool/gx/internal/style"
	"github.com/gx-tool/gx/internal/tidy"
	"github.com/gx-tool/gx/internal/upgrade"
)

func main() {
	root := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gx",
		Short: "gx manages GitHub Action version pins across workflows.",
		// Don't print usage when an invoked command returns an error.
		SilenceUsage: true,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap gx.toml and gx.lock from the current workflows",
		Example: `  # create gx.toml and gx.lock from the actions already pinned
  # in .github/workflows
  gx init`,
		RunE: initCmdRun,
	}

	tidyCmd := &cobra.Command{
		Use:   "tidy",
		Short: "Reconcile the manifest, lock, and workflow files",
		Example: `  # sync gx.toml/gx.lock with what workflows actually reference,
  # and rewrite workflow files to match
  gx tidy`,
		RunE: tidyCmdRun,
	}

	upgradeCmd := &cobra.Command{
		Use:   "upgrade [ACTION]",
		Short: "Find and apply upgrades for pinned actions",
		Long: strings.TrimSpace(`
Find and apply upgrades for pinned actions.

With no ACTION, every manifest entry is a candidate. With ACTION given as
"owner/repo", only that action is a candidate. With ACTION given as
"owner/repo@version", that exact version is pinned regardless of what
"--latest" would otherwise have chosen (and combining the two is an
error).

By default, upgrades stay within an action's current major version.
--latest lifts that constraint.
`),
		Example: `  # upgrade every action, staying within its current major version
  gx upgrade

  # upgrade every action to its absolute latest release
  gx upgrade --latest

  # upgrade only actions/checkout, staying within its current major
  gx upgrade actions/checkout

  # pin actions/checkout to an exact version
  gx upgrade actions/checkout@v5.1.0`,
		Args: cobra.MaximumNArgs(1),
		RunE: upgradeCmdRun,
	}
	upgradeCmd.Flags().Bool("latest", false, "Upgrade across major versions instead of staying within the current one")

	lintCmd := &cobra.Command{
		Use:   "lint",
		Short: "Report pinning, drift, and staleness problems",
		Example: `  # check for unpinned refs, SHA/lock mismatches, manifest drift,
  # and stale version comments
  gx lint`,
		RunE: lintCmdRun,
	}

	for _, cmd := range []*cobra.Command{initCmd, tidyCmd, upgradeCmd, lintCmd} {
		cmd.Flags().StringP("github-token", "g", "", "GitHub access token (default: GH_TOKEN/GITHUB_TOKEN env, then the gh CLI's keyring entry)")
		cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
		cmd.Flags().String("color", "auto", "Output colored escape sequences based on when, which may be set to either always, auto, or never")

		cmd.PreRunE = wrapPreRunE(cmd, func(cmd *cobra.Command, _ []string) error {
			colorArg := cmd.Flag("color").Value.String()
			if colorArg != "auto" && colorArg != "always" && colorArg != "never" {
				return fmt.Errorf("--color must be one of \"auto\", \"always\", or \"never\"")
			}
			return nil
		})
	}

	rootCmd.AddCommand(initCmd, tidyCmd, upgradeCmd, lintCmd)

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.CompletionOptions = cobra.CompletionOptions{HiddenDefaultCmd: true}

	return rootCmd
}

func initCmdRun(cmd *cobra.Command, _ []string) error {
	ctx, a := setupCommand(cmd)

	result, err := a.Init(ctx)
	if err != nil {
		return err
	}
	reportTidyResult(cmd, result)
	return nil
}

func tidyCmdRun(cmd *cobra.Command, _ []string) error {
	ctx, a := setupCommand(cmd)

	result, err := a.Tidy(ctx)
	if err != nil {
		return err
	}
	reportTidyResult(cmd, result)
	return nil
}

func upgradeCmdRun(cmd *cobra.Command, args []string) error {
	ctx, a := setupCommand(cmd)

	latest, _ := cmd.Flags().GetBool("latest")
	var actionArg string
	if len(args) == 1 {
		actionArg = args[0]
	}

	req, err := parseUpgradeArg(actionArg, latest)
	if err != nil {
		return err
	}

	result, err := a.Upgrade(ctx, req)
	if err != nil {
		return err
	}

	s := styleFor(cmd)
	if len(result.Upgrades) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All actions are up to date.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.Bold("Upgraded actions:"))
	for _, u := range result.Upgrades {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s %s\n", u.ID, u.Current, s.Yellow("->"), s.Green(u.Upgraded.String()))
	}
	reportChangedFiles(cmd, s, result.ChangedFiles)
	return nil
}

func lintCmdRun(cmd *cobra.Command, _ []string) error {
	ctx, a := setupCommand(cmd)

	result, err := a.Lint(ctx, config.NewLintConfig())
	if err != nil {
		return err
	}

	s := styleFor(cmd)
	for _, d := range result.Diagnostics {
		fmt.Fprintln(cmd.OutOrStdout(), formatDiagnostic(s, d))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d error(s), %d warning(s)\n", result.Errors, result.Warnings)

	if result.Errors > 0 {
		return fmt.Errorf("lint found %d error(s)", result.Errors)
	}
	return nil
}

func formatDiagnostic(s *style.Style, d lint.Diagnostic) string {
	if d.Level == config.LevelError {
		return s.Red(d.String())
	}
	return s.Yellow(d.String())
}

// parseUpgradeArg implements the upgrade ACTION/--latest matrix:
//
//	absent          + !latest -> Safe + All
//	absent          + latest  -> Latest + All
//	owner/repo      + !latest -> Safe + Single
//	owner/repo      + latest  -> Latest + Single
//	owner/repo@V    + !latest -> Pinned(V) + Single
//	owner/repo@V    + latest  -> error
func parseUpgradeArg(actionArg string, latest bool) (upgrade.Request, error) {
	if actionArg == "" {
		if latest {
			return upgrade.Request{Mode: upgrade.ModeLatest, Scope: upgrade.ScopeAll}, nil
		}
		return upgrade.Request{Mode: upgrade.ModeSafe, Scope: upgrade.ScopeAll}, nil
	}

	if id, version, ok := strings.Cut(actionArg, "@"); ok {
		if latest {
			return upgrade.Request{}, fmt.Errorf("--latest forbids pinning an exact version (%s)", actionArg)
		}
		return upgrade.Request{
			Mode:    upgrade.ModePinned,
			Scope:   upgrade.ScopeSingle,
			Target:  domain.ActionId(id),
			Version: domain.Version(version),
		}, nil
	}

	mode := upgrade.ModeSafe
	if latest {
		mode = upgrade.ModeLatest
	}
	return upgrade.Request{Mode: mode, Scope: upgrade.ScopeSingle, Target: domain.ActionId(actionArg)}, nil
}

func setupCommand(cmd *cobra.Command) (context.Context, *app.App) {
	var (
		flags       = cmd.Flags()
		tokenArg, _ = flags.GetString("github-token")
		verbose, _  = flags.GetBool("verbose")
	)

	ctx := newAppContext(context.Background(), cmd.ErrOrStderr(), chooseLogLevel(verbose))
	token := config.ResolveGithubToken(tokenArg)
	if token == "" {
		slogctx.Debug(ctx, "no GitHub token found; proceeding unauthenticated")
	}

	return ctx, app.New([]string{"."}, token)
}

func styleFor(cmd *cobra.Command) *style.Style {
	colorArg, _ := cmd.Flags().GetString("color")
	verbose, _ := cmd.Flags().GetBool("verbose")
	return style.New(enableFancyOutput(colorArg, verbose))
}

func reportTidyResult(cmd *cobra.Command, result tidy.Result) {
	reportChangedFiles(cmd, styleFor(cmd), result.ChangedFiles)
}

func reportChangedFiles(cmd *cobra.Command, s *style.Style, changed map[string]int) {
	if len(changed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Workflows are already up to date.")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.Bold("Updated workflows:"))
	for path, n := range changed {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d line(s))\n", path, n)
	}
}

func newAppContext(ctx context.Context, out io.Writer, level slog.Level) context.Context {
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	return slogctx.New(ctx, logger)
}

// chooseLogLevel returns an appropriate log level based on the given verbose
// configuration.
func chooseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// enableFancyOutput determines when to enable "fancy" output based on the
// given --color arg value.
func enableFancyOutput(colorArg string, verboseArg bool) bool {
	switch colorArg {
	case "auto":
		// defer to fatih/color lib's logic by default
		// https://github.com/fatih/color/blob/v1.18.0/color.go#L16-L23
		//
		// but explicitly disable fancy output when verbose output is enabled.
		return !color.NoColor && !verboseArg
	case "always":
		return true
	default:
		return false
	}
}

// wrapPreRunE acts as a "middleware" for cobra Command.PreRunE functions.
func wrapPreRunE(cmd *cobra.Command, newPreRunE preRunE) preRunE {
	if cmd.PreRunE == nil {
		return newPreRunE
	}
	oldPreRunE := cmd.PreRunE
	return func(cmd *cobra.Command, args []string) error {
		if err := oldPreRunE(cmd, args); err != nil {
			return err
		}
		return newPreRunE(cmd, args)
	}
}

type preRunE func(cmd *cobra.Command, args []string) error
