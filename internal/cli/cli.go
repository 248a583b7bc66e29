package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/meshweave/internal/app"
	"github.com/vk/meshweave/internal/registry"
)

// Exit codes.
const (
	CodeFailure = 1
	CodeUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: CodeUsage, Message: err.Error()}
}

type flags struct {
	modules []registry.Module

	configPath string
	manifests  string
	library    string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the command tree. Command output goes to stdout,
// logs and diagnostics to stderr. The modules are registered next to the
// builtin operations.
func NewRootCommand(stdout, stderr io.Writer, modules ...registry.Module) *cobra.Command {
	f := &flags{modules: modules}
	defaults := app.DefaultConfig()

	root := &cobra.Command{
		Use:   "meshweave",
		Short: "Compile mesh operation graphs into Lua programs",
		Long: `meshweave reads a graph of mesh operations declared in HCL and compiles it
into a straight-line Lua program that calls each operation once, in
dependency order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to a TOML config file.")
	pf.StringVar(&f.manifests, "manifests", defaults.ManifestsPath, "Directory of operation manifests to load.")
	pf.StringVar(&f.library, "library", defaults.Library, "Name of the Lua table the program calls operations on.")
	pf.StringVar(&f.logLevel, "log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&f.logFormat, "log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(
		compileCommand(f, stdout, stderr),
		planCommand(f, stdout, stderr),
		runCommand(f, stdout, stderr),
		opsCommand(f, stdout, stderr),
	)
	return root
}

// Execute runs the command line with args.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, modules ...registry.Module) error {
	root := NewRootCommand(stdout, stderr, modules...)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func graphArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return usageError(fmt.Errorf("%w\n\nUsage:\n  %s", err, cmd.UseLine()))
	}
	return nil
}

func compileCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <graph.hcl>",
		Short: "Print the Lua program for a graph",
		Args:  graphArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, args[0], stdout, stderr, func(ctx context.Context, a *app.App) error {
				return a.Compile(ctx)
			})
		},
	}
}

func planCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	var format string
	var showSkipped bool
	cmd := &cobra.Command{
		Use:   "plan <graph.hcl>",
		Short: "Print the execution order of a graph",
		Args:  graphArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if !slices.Contains(app.PlanFormats, format) {
				return usageError(fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(app.PlanFormats, ", ")))
			}
			return withApp(cmd, f, args[0], stdout, stderr, func(ctx context.Context, a *app.App) error {
				return a.Plan(ctx, format, showSkipped)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format. Options: "+strings.Join(app.PlanFormats, ", ")+".")
	cmd.Flags().BoolVar(&showSkipped, "show-skipped", false, "Also list nodes that do not contribute to any output.")
	return cmd
}

func runCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run <graph.hcl>",
		Short: "Compile a graph and execute it against a stand-in operation library",
		Args:  graphArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, args[0], stdout, stderr, func(ctx context.Context, a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
}

func opsCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the available operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, "", stdout, stderr, func(ctx context.Context, a *app.App) error {
				return a.ListOperations(ctx)
			})
		},
	}
}

// withApp resolves the configuration, builds the App and runs fn on it.
func withApp(cmd *cobra.Command, f *flags, graphPath string, stdout, stderr io.Writer, fn func(context.Context, *app.App) error) error {
	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return usageError(err)
	}
	cfg.GraphPath = graphPath
	slog.Debug("CLI configuration resolved.", "config", cfg)

	ctx := cmd.Context()
	a, err := app.New(ctx, stdout, stderr, cfg, f.modules...)
	if err != nil {
		return &ExitError{Code: CodeFailure, Message: err.Error()}
	}
	if err := fn(ctx, a); err != nil {
		if errors.Is(err, app.ErrInvalidGraph) {
			return &ExitError{Code: CodeFailure, Message: err.Error()}
		}
		return err
	}
	return nil
}

// resolveConfig layers the defaults, the config file and the flags that
// were set explicitly, in that order.
func resolveConfig(cmd *cobra.Command, f *flags) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = app.LoadConfigFile(f.configPath, cfg); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("manifests") {
		cfg.ManifestsPath = f.manifests
	}
	if changed("library") {
		cfg.Library = f.library
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	return app.NewConfig(cfg)
}
