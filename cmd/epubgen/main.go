package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yuanying/epubgen/internal/generator"
	"github.com/yuanying/epubgen/internal/logfields"
)

var version = "dev"

const (
	envWorkDir   = "EPUBGEN_WORK_DIR"
	envLogFormat = "EPUBGEN_LOG_FORMAT"
)

type cliOptions struct {
	Build  generator.BuildOptions
	Debug  bool
	Logger *slog.Logger

	closeLog func() error
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubgen",
		Short: "Generate an EPUB 3 file from a setting file",
		Long: `epubgen compiles a YAML book description (metadata, style sheets,
images, chapters and content templates) into an EPUB 3 package.

Chapters are merged into content templates through placeholder
substitution, and the staged package tree is packed into a single
archive with the mimetype entry first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: runBuild,
	}

	cmd.Flags().StringP("input_setting_file", "i", "", "Setting file path (required)")
	cmd.Flags().StringP("output_file", "o", "", "Output EPUB file path (required)")
	cmd.Flags().StringP("debug", "d", "0", "Debug mode: 1 enables debug logs and keeps the workspace")
	cmd.Flags().StringP("silent", "s", "0", "Silent mode: 1 suppresses console logs")
	cmd.Flags().String("log-format", "text", "Log format: text or json (env "+envLogFormat+")")
	cmd.Flags().String("log-file", "", "Also write logs to this file")
	cmd.Flags().String("work-dir", "", "Parent directory of the staging workspace (env "+envWorkDir+")")
	_ = cmd.MarkFlagRequired("input_setting_file")
	_ = cmd.MarkFlagRequired("output_file")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := readCLIOptions(cmd)
	if err != nil {
		return &ExitError{Code: ExitUnexpected, Err: err}
	}
	defer func() { _ = opts.closeLog() }()
	slog.SetDefault(opts.Logger)

	start := time.Now()
	slog.Info("Start", logfields.Path(opts.Build.InputPath))

	p := generator.NewPipeline(opts.Build)
	if err := p.Build(cmd.Context()); err != nil {
		code := exitCode(err)
		logFailure(err, code, opts.Debug)
		return &ExitError{Code: code, Err: err}
	}

	slog.Info("Done", logfields.Path(opts.Build.OutputPath), slog.Duration("elapsed", time.Since(start)))
	return nil
}

func readCLIOptions(cmd *cobra.Command) (cliOptions, error) {
	flags := cmd.Flags()

	input, _ := flags.GetString("input_setting_file")
	output, _ := flags.GetString("output_file")
	if input == "" {
		return cliOptions{}, errors.New("--input_setting_file is required")
	}
	if output == "" {
		return cliOptions{}, errors.New("--output_file is required")
	}

	debugValue, _ := flags.GetString("debug")
	debug, err := parseSwitch("--debug", debugValue)
	if err != nil {
		return cliOptions{}, err
	}
	silentValue, _ := flags.GetString("silent")
	silent, err := parseSwitch("--silent", silentValue)
	if err != nil {
		return cliOptions{}, err
	}

	logFormat, _ := flags.GetString("log-format")
	if !flags.Changed("log-format") {
		if v := os.Getenv(envLogFormat); v != "" {
			logFormat = v
		}
	}
	logFormat = strings.ToLower(strings.TrimSpace(logFormat))
	if logFormat != "text" && logFormat != "json" {
		return cliOptions{}, fmt.Errorf("invalid --log-format %q: must be text or json", logFormat)
	}

	workDir, _ := flags.GetString("work-dir")
	if !flags.Changed("work-dir") {
		workDir = os.Getenv(envWorkDir)
	}

	var sinks []io.Writer
	if !silent {
		sinks = append(sinks, cmd.ErrOrStderr())
	}
	closeLog := func() error { return nil }
	if logFile, _ := flags.GetString("log-file"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cliOptions{}, fmt.Errorf("failed to open log file: %w", err)
		}
		sinks = append(sinks, f)
		closeLog = f.Close
	}

	level := "info"
	if debug {
		level = "debug"
	}

	return cliOptions{
		Build: generator.BuildOptions{
			InputPath:     input,
			OutputPath:    output,
			WorkDir:       workDir,
			KeepWorkspace: debug,
		},
		Debug:    debug,
		Logger:   buildLogger(io.MultiWriter(sinks...), level, logFormat),
		closeLog: closeLog,
	}, nil
}

// parseSwitch accepts the 0/1 values of --debug and --silent.
func parseSwitch(flag, value string) (bool, error) {
	switch strings.TrimSpace(value) {
	case "0", "":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("invalid %s %q: must be 0 or 1", flag, value)
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel}))
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(slogLevel),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return slog.New(handler)
}

// logFailure logs a failed build. Debug mode logs every error in the chain.
func logFailure(err error, code int, debug bool) {
	if code == ExitUnexpected {
		slog.Error("Unexpected error", logfields.Error(err))
	} else {
		slog.Error("Build failed", logfields.Error(err))
	}
	if !debug {
		return
	}
	for i, cause := 0, errors.Unwrap(err); cause != nil; i, cause = i+1, errors.Unwrap(cause) {
		slog.Debug("Caused by", slog.Int("depth", i+1), slog.String("type", fmt.Sprintf("%T", cause)), logfields.Error(cause))
	}
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitUnexpected)
	}
}
