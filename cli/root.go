// Package cli wires configuration, logging, the analyzer and the batch
// processor behind a cobra command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-reviewlens/failure"
)

const version = "0.3.0"

// Run executes the command line and returns the process exit code.
func Run() int {
	return Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Execute runs the command tree with args. The report goes to stdout, logs
// and usage errors to stderr. SIGINT and SIGTERM cancel the run.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return failure.ExitConfig
	}
	return a.exitCode
}

// flags shared by every command.
type flags struct {
	envFile       string
	folder        string
	provider      string
	endpoint      string
	replayFixture string
	metricsFile   string
	logLevel      string
	logFormat     string
	rateLimit     float64
	timeout       time.Duration
	interactive   bool
	includeHidden bool
	strict        bool
}

type app struct {
	stdout, stderr io.Writer
	flags          flags
	// exitCode is set by command handlers.
	exitCode int
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewlens",
		Short: "Analyze a folder of customer reviews",
		Long: "reviewlens sends every file in a reviews folder to a text-analysis service and prints " +
			"its language, sentiment, key phrases, entities and linked entities.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runAnalyze,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.envFile, "env-file", ".env", "Dotenv file to load (missing file is ignored)")
	f.StringVar(&a.flags.folder, "folder", "", "Reviews folder (default \"reviews\")")
	f.StringVar(&a.flags.provider, "provider", "", "Text-analysis provider (azure, google, openai, replay)")
	f.StringVar(&a.flags.endpoint, "endpoint", "", "Azure AI Language endpoint")
	f.StringVar(&a.flags.replayFixture, "replay-fixture", "", "YAML fixture served by the replay provider")
	f.StringVar(&a.flags.metricsFile, "metrics-file", "", "Write prometheus metrics to this textfile after each run")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&a.flags.logFormat, "log-format", "", "Log format (text, json)")
	f.Float64Var(&a.flags.rateLimit, "rate-limit", 0, "Maximum remote calls per second (0 = unlimited)")
	f.DurationVar(&a.flags.timeout, "timeout", 0, "Timeout for each remote call (0 = none)")
	f.BoolVar(&a.flags.interactive, "interactive", false, "Allow device-code sign-in when no other credential works")
	f.BoolVar(&a.flags.includeHidden, "include-hidden", false, "Process dot files in the reviews folder")
	f.BoolVar(&a.flags.strict, "strict", false, "Exit with a per-kind error code instead of 0 when a run fails")

	root.AddCommand(a.analyzeCmd(), a.scheduleCmd(), a.versionCmd())
	return root
}

// overrides turns explicitly set flags into config overrides so unset flags
// never shadow the environment.
func (a *app) overrides(cmd *cobra.Command) map[string]string {
	m := make(map[string]string)
	set := func(name, key, value string) {
		if cmd.Flags().Changed(name) {
			m[key] = value
		}
	}
	set("folder", "folder", a.flags.folder)
	set("provider", "provider", a.flags.provider)
	set("endpoint", "endpoint", a.flags.endpoint)
	set("replay-fixture", "replayFixture", a.flags.replayFixture)
	set("metrics-file", "metricsFile", a.flags.metricsFile)
	set("log-level", "logLevel", a.flags.logLevel)
	set("log-format", "logFormat", a.flags.logFormat)
	set("rate-limit", "rateLimit", strconv.FormatFloat(a.flags.rateLimit, 'f', -1, 64))
	set("timeout", "timeout", a.flags.timeout.String())
	set("interactive", "interactive", strconv.FormatBool(a.flags.interactive))
	set("include-hidden", "skipHidden", strconv.FormatBool(!a.flags.includeHidden))
	return m
}

// report prints err as the last line of the report and sets the exit code.
func (a *app) report(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(a.stdout, err)
	if a.flags.strict {
		a.exitCode = failure.ExitCode(err)
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print reviewlens version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "reviewlens version %s\n", version)
		},
	}
}
