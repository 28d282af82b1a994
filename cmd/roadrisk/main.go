// Command roadrisk scores a highway accident export for risk, finds
// hotspots and dangerous highway segments, and writes the result tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/roadrisk/internal/config"
	"github.com/banshee-data/roadrisk/internal/db"
	"github.com/banshee-data/roadrisk/internal/export"
	"github.com/banshee-data/roadrisk/internal/fsutil"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/pipeline"
	"github.com/banshee-data/roadrisk/internal/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	input      string
	outputDir  string
	configPath string
	sqlitePath string
	quiet      bool
	listRuns   bool
	version    bool
}

// parseFlags reads flags over the environment defaults. Flags win.
func parseFlags(args []string, env config.Environment, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("roadrisk", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.input, "input", env.Input, "Raw accident CSV (env ROADRISK_INPUT)")
	fs.StringVar(&opts.outputDir, "out", env.OutputDir, "Output directory for CSV tables and metadata.json (env ROADRISK_OUTPUT_DIR)")
	fs.StringVar(&opts.configPath, "config", env.ConfigPath, "Pipeline JSON config; defaults apply when empty (env ROADRISK_CONFIG)")
	fs.StringVar(&opts.sqlitePath, "sqlite", env.SQLitePath, "Also store the run in this SQLite file (env ROADRISK_SQLITE)")
	fs.BoolVar(&opts.quiet, "quiet", env.Quiet, "Only log warnings and errors (env ROADRISK_QUIET)")
	fs.BoolVar(&opts.listRuns, "list-runs", false, "List the runs stored in -sqlite and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.version {
		return opts, nil
	}
	if opts.listRuns {
		if opts.sqlitePath == "" {
			return options{}, errors.New("-list-runs requires -sqlite")
		}
		return opts, nil
	}
	if opts.input == "" {
		return options{}, errors.New("-input is required")
	}
	if opts.outputDir == "" {
		return options{}, errors.New("-out must not be empty")
	}
	return opts, nil
}

func main() {
	log.SetFlags(log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	opts, err := parseFlags(args, env, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "roadrisk %s\n", version.String())
		return exitOK
	}
	if opts.quiet {
		monitoring.SetLogger(func(format string, v ...interface{}) {
			if strings.HasPrefix(format, "WARN ") {
				log.Printf(format, v...)
			}
		})
	}

	if opts.listRuns {
		if err := listRuns(ctx, opts.sqlitePath, stdout); err != nil {
			log.Printf("list runs: %v", err)
			return exitError
		}
		return exitOK
	}

	if err := analyse(ctx, opts); err != nil {
		log.Printf("roadrisk: %v", err)
		return exitError
	}
	return exitOK
}

func analyse(ctx context.Context, opts options) error {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	sinks := []pipeline.Sink{export.NewWriter(fsutil.OSFileSystem{}, opts.outputDir, nil)}
	if opts.sqlitePath != "" {
		database, err := db.NewDB(opts.sqlitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite: %w", err)
		}
		defer database.Close()
		sinks = append(sinks, &pipeline.SQLiteSink{DB: database, InputPath: opts.input})
	}

	log.Printf("roadrisk %s: analysing %s", version.Version, opts.input)
	out, err := pipeline.New(settings, pipeline.WithSinks(sinks...)).Run(ctx, f)
	if err != nil {
		return err
	}
	log.Printf("run %s complete: outputs in %s", out.RunID, opts.outputDir)
	return nil
}

func listRuns(ctx context.Context, path string, stdout io.Writer) error {
	database, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tVERSION\tRECORDS\tHOTSPOTS\tSEGMENTS\tINPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Version, r.RecordCount,
			r.ClusterCount, r.SegmentCount, r.InputPath)
	}
	return tw.Flush()
}
