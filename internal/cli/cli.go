package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/runnerr0/apachestats/internal/config"
	"github.com/runnerr0/apachestats/internal/logging"
)

// buildParser constructs the go-flags parser for the analyze command line.
func buildParser() (*goflags.Parser, *Options) {
	var opts Options

	parser := goflags.NewParser(&opts, goflags.Default)
	parser.Name = "apachestats"
	parser.Usage = "[OPTIONS] [LOG...]"
	parser.LongDescription = "Summarize Apache access logs: visitors, busiest hours, top referrers, and visitor locations."

	return parser, &opts
}

// Run is the main entry point for the apachestats CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and runs the analysis.
func RunWithArgs(version string, args []string) error {
	return runWith(context.Background(), version, args, os.Stdin, os.Stdout, os.Stderr)
}

func runWith(ctx context.Context, version string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	parser, opts := buildParser()

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	if opts.Version {
		fmt.Fprintf(stdout, "apachestats %s\n", version)
		return nil
	}

	cfg, err := resolveConfig(parser, opts)
	if err != nil {
		logging.New(stderr, slog.LevelInfo, "text").Error("load configuration", "error", err)
		return err
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Verbose && !isSet(parser, "log-level") {
		level = slog.LevelDebug
	}
	logger := logging.New(stderr, level, cfg.Logging.Format)

	a := &analyzer{
		cfg:     cfg,
		logger:  logger,
		stdin:   stdin,
		stdout:  stdout,
		jsonOut: opts.JSON,
	}
	if err := a.run(ctx, opts.Args.Logs); err != nil {
		logger.Error("analysis failed", "error", err)
		return err
	}
	return nil
}

// resolveConfig layers defaults, the config file, the environment, and
// explicitly given flags, then validates the result.
func resolveConfig(parser *goflags.Parser, opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv("")

	if isSet(parser, "web-site") {
		cfg.SiteDomain = opts.WebSite
	}
	if isSet(parser, "maxmind-db") {
		cfg.MaxMindDB = opts.MaxMindDB
	}
	if isSet(parser, "verbose") {
		cfg.Verbose = opts.Verbose
	}
	if isSet(parser, "top-k") {
		cfg.TopK = opts.TopK
	}
	if isSet(parser, "engine") {
		cfg.Engine = opts.Engine
	}
	if isSet(parser, "format") {
		cfg.LogFormat = opts.Format
	}
	if isSet(parser, "sqlite-path") {
		cfg.SQLite.Path = opts.SQLitePath
	}
	if isSet(parser, "log-level") {
		cfg.Logging.Level = opts.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func isSet(parser *goflags.Parser, long string) bool {
	opt := parser.FindOptionByLongName(long)
	return opt != nil && opt.IsSet()
}
