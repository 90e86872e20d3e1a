package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/programhooks/internal/hooks"
	hookshttp "github.com/fyrsmithlabs/programhooks/internal/http"
	"github.com/fyrsmithlabs/programhooks/internal/logging"
)

var (
	// keywords holds --kw key=value pairs for run and lifecycle
	keywords []string
	// listenAddr overrides metrics.addr for watch
	listenAddr string
)

// stagesCmd prints the lifecycle stages
var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List lifecycle stages in execution order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, stage := range hooks.Stages() {
			fmt.Fprintln(cmd.OutOrStdout(), stage)
		}
		return nil
	},
}

// pluginsCmd loads a plugin directory and reports what was bound
var pluginsCmd = &cobra.Command{
	Use:   "plugins [dir]",
	Short: "Load a plugin directory and show the stages each module binds",
	Long: `Load every plugin file in a directory and print each module with the
stages it binds. Files that fail to import are listed separately.

Examples:
  # Inspect the configured plugin directory
  hookctl plugins

  # Inspect another directory
  hookctl plugins ./plugins`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlugins,
}

// runCmd executes a single stage
var runCmd = &cobra.Command{
	Use:   "run <stage> [args...]",
	Short: "Load plugins and execute one stage",
	Long: `Load plugins and execute every hook bound to one stage.

Positional arguments are passed to each hook in order. Keyword arguments
are given with --kw and arrive as a single table after the positionals.

Examples:
  hookctl run pre_runtime 8080 --kw user=admin --plugins ./plugins`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStage,
}

// lifecycleCmd executes all four stages in order
var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle [args...]",
	Short: "Load plugins and execute every stage in order",
	RunE:  runLifecycle,
}

// watchCmd keeps loading new plugins and serves the HTTP API
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the plugin directory and serve health, metrics and the stage API",
	Long: `Load the plugin directory, then keep watching it: new plugin files are
imported and their hooks registered as they appear. Already bound files
are never imported twice.

While running, an HTTP server exposes:
  GET  /health
  GET  /metrics
  GET  /api/v1/stages
  POST /api/v1/stages/:stage/execute`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	runCmd.Flags().StringArrayVar(&keywords, "kw", nil, "keyword argument as key=value (repeatable)")
	lifecycleCmd.Flags().StringArrayVar(&keywords, "kw", nil, "keyword argument as key=value (repeatable)")
	watchCmd.Flags().StringVar(&listenAddr, "metrics-addr", "", "HTTP listen address (overrides metrics.addr)")
}

func runPlugins(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		pluginsDir = args[0]
	}
	ctx, a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	report, err := a.manager.LoadPlugins(ctx, a.cfg.Plugins.Dir)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runStage(cmd *cobra.Command, args []string) error {
	stage := hooks.Stage(args[0])
	if !stage.Valid() {
		return fmt.Errorf("%w: %s (valid: %s)", hooks.ErrInvalidStage, stage, stageList())
	}
	hookArgs, err := buildArgs(args[1:], keywords)
	if err != nil {
		return err
	}

	ctx, a, err := loadApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	res, err := a.manager.Execute(ctx, stage, hookArgs)
	printResult(cmd.OutOrStdout(), res)
	return err
}

func runLifecycle(cmd *cobra.Command, args []string) error {
	hookArgs, err := buildArgs(args, keywords)
	if err != nil {
		return err
	}

	ctx, a, err := loadApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	for _, stage := range hooks.Stages() {
		res, err := a.manager.Execute(ctx, stage, hookArgs)
		printResult(cmd.OutOrStdout(), res)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	addr := a.cfg.Metrics.Addr
	if listenAddr != "" {
		addr = listenAddr
	}

	w, err := hooks.NewWatcher(a.manager, a.cfg.Plugins.Dir)
	if err != nil {
		return err
	}
	defer w.Stop()

	report, err := w.Start(ctx)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)

	srv, err := hookshttp.NewServer(a.manager, a.logger.Underlying(), addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	for {
		select {
		case loaded := <-w.Events():
			printModule(cmd.OutOrStdout(), loaded)
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
			logging.FromContext(ctx).Info(context.Background(), "shutting down", zap.String("dir", a.cfg.Plugins.Dir))
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			return nil
		}
	}
}

// loadApp creates the app and loads the configured plugin directory.
// Per-file import failures are reported on stderr but do not stop the run.
func loadApp(ctx context.Context, errOut io.Writer) (context.Context, *app, error) {
	ctx, a, err := newApp(ctx)
	if err != nil {
		return ctx, nil, err
	}
	report, err := a.manager.LoadPlugins(ctx, a.cfg.Plugins.Dir)
	if err != nil {
		a.close(context.Background())
		return ctx, nil, err
	}
	for _, f := range report.Failures {
		fmt.Fprintf(errOut, "warning: skipped %s: %v\n", f.Path, f.Err)
	}
	return ctx, a, nil
}

func buildArgs(positional, kw []string) (hooks.Args, error) {
	args := hooks.Args{}
	for _, p := range positional {
		args.Positional = append(args.Positional, parseValue(p))
	}
	parsed, err := parseKeywords(kw)
	if err != nil {
		return hooks.Args{}, err
	}
	args.Keyword = parsed
	return args, nil
}

func stageList() string {
	names := make([]string, 0, len(hooks.Stages()))
	for _, s := range hooks.Stages() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func printReport(out io.Writer, report *hooks.LoadReport) {
	fmt.Fprintf(out, "Plugins in %s: %d loaded, %d failed\n", report.Dir, len(report.Loaded), len(report.Failures))
	for _, m := range report.Loaded {
		printModule(out, m)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  ✗ %s: %v\n", f.Name, f.Err)
	}
}

func printModule(out io.Writer, m hooks.LoadedModule) {
	if len(m.Stages) == 0 {
		fmt.Fprintf(out, "  ✓ %s (no stages)\n", m.Name)
		return
	}
	names := make([]string, 0, len(m.Stages))
	for _, s := range m.Stages {
		names = append(names, string(s))
	}
	fmt.Fprintf(out, "  ✓ %s: %s\n", m.Name, strings.Join(names, ", "))
}

func printResult(out io.Writer, res hooks.Result) {
	fmt.Fprintf(out, "%s: %s (%d hooks called)\n", res.Stage, res.Outcome, res.Called)
}
