package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kataras/piconvert"
	"github.com/kataras/piconvert/pkg/pipeline"
	"github.com/kataras/piconvert/pkg/report"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

// version is replaced at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// lockFile guards an output folder against concurrent runs.
const lockFile = ".piconvert.lock"

// exitInterrupted is returned when the run was stopped by a signal.
const exitInterrupted = 130

// errInterrupted marks a run cancelled by SIGINT or SIGTERM.
var errInterrupted = errors.New("interrupted")

func main() {
	os.Exit(run())
}

func run() int {
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:   "piconvert [path]",
		Short: "Convert vector artwork into web-friendly formats",
		Long: "Convert Adobe Illustrator and other vector files into svg, png and other formats. " +
			"If path is a directory, matching files in it and its subdirectories are converted; " +
			"piconvert.yaml documents next to them choose the outputs.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(cmd, args, &flags)
		},
	}
	flags.register(rootCmd.Flags())

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("piconvert version %s\n", version)
		},
	}

	var inkscapeBin string
	checkCmd := &cobra.Command{
		Use:           "check",
		Short:         "Check that the rendering engine is installed",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd.Context(), inkscapeBin)
		},
	}
	checkCmd.Flags().StringVar(&inkscapeBin, "inkscape", "", "Inkscape executable (default \"inkscape\" on PATH)")

	rootCmd.AddCommand(versionCmd, checkCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errInterrupted) {
			color.New(color.FgYellow).Println("⚠ Interrupted, outputs written so far are kept")
			return exitInterrupted
		}
		printError(os.Stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var pe *piconvert.PreconditionError
	if errors.As(err, &pe) {
		color.New(color.FgRed).Fprintf(w, "Error: %s\n", pe.Reason)
		if pe.Hint != "" {
			color.New(color.FgYellow).Fprintf(w, "Hint: %s\n", pe.Hint)
		}
		return
	}
	color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
}

func convert(cmd *cobra.Command, args []string, flags *flagValues) error {
	ctx := cmd.Context()

	s, settingsPath, err := loadSettings(flags.config)
	if err != nil {
		return err
	}
	s.apply(cmd.Flags(), flags)
	if len(args) > 0 {
		s.Source = args[0]
	}

	setupColor(os.Stdout, flags.noColor)
	logger := &cliLogger{out: os.Stdout, quiet: s.Silent}
	if settingsPath != "" && s.Verbose {
		logger.Infof("Settings: %s", settingsPath)
	}

	imports, err := s.imports()
	if err != nil {
		return err
	}
	exports, err := s.outputs()
	if err != nil {
		return err
	}

	engineOpts := piconvert.EngineOptions{Inkscape: s.Inkscape, NoNative: !s.Native}
	if s.Verbose {
		engineOpts.Stderr = os.Stderr
	}
	eng := piconvert.NewEngine(engineOpts)
	if err := eng.Available(ctx); err != nil {
		return err
	}
	if err := piconvert.CheckSource(s.Source); err != nil {
		return err
	}

	if err := os.MkdirAll(s.Output, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	lock := flock.New(filepath.Join(s.Output, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another piconvert run is writing to %s", s.Output)
	}
	defer lock.Unlock()

	conv := piconvert.New(piconvert.Options{
		Engine:          eng,
		Workers:         s.Jobs,
		TaskConcurrency: s.TaskJobs,
		Logger:          logger,
	})
	conv.Import(imports...)
	for _, entry := range exports.Entries() {
		conv.Export(entry.Format, entry.Sizes...)
	}

	collector := report.NewCollector()
	conv.On(collector)
	if !s.Silent {
		conv.On(newConsole(os.Stdout, s.Source, s.Verbose))
	}

	runErr := conv.Run(ctx, s.Source, s.Output, piconvert.RunOptions{
		Recursive: s.Recursive,
		Force:     s.Force,
		Verbose:   s.Verbose,
	})

	summary := collector.Summary()
	if !s.Silent {
		fmt.Println()
		fmt.Println(report.Table(summary))
	}
	if s.Report != "" {
		if err := pipeline.WriteFile(s.Report, []byte(report.ToMarkdown(summary))); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Infof("Report written to %s", s.Report)
	}

	// Aborted scopes were logged as they happened; only a cancelled run
	// changes the exit status.
	if runErr != nil && ctx.Err() != nil {
		return errInterrupted
	}
	if runErr != nil && piconvert.IsPrecondition(runErr) {
		return runErr
	}
	return nil
}

func check(ctx context.Context, bin string) error {
	eng := piconvert.NewEngine(piconvert.EngineOptions{Inkscape: bin})
	status := eng.Status(ctx)

	if !status.Available {
		return eng.Available(ctx)
	}
	color.New(color.FgGreen).Printf("✓ %s %s\n", status.Command, status.Version)
	return nil
}
