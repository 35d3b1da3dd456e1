// Command convert-videos batch-converts large video files to HEVC with
// HandBrakeCLI.
//
// It resolves configuration (defaults, config file, environment, flags),
// then either runs system diagnostics (--check), a single conversion cycle,
// or cycles forever in loop mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/backmassage/convert-videos/internal/check"
	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/display"
	"github.com/backmassage/convert-videos/internal/engine"
	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/logging"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/naming"
	"github.com/backmassage/convert-videos/internal/pipeline"
	"github.com/backmassage/convert-videos/internal/probe"
	"github.com/backmassage/convert-videos/internal/scan"
	"github.com/backmassage/convert-videos/internal/status"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	lookup, err := config.EnvLookup(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "convert-videos: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, lookup))
}

func run(args []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	opts, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "convert-videos: %v\n", err)
		fmt.Fprintln(stderr, "Run 'convert-videos --help' for usage.")
		return exitUsage
	}
	if opts.ShowHelp {
		config.PrintUsage(stdout)
		return exitOK
	}
	if opts.ShowVersion {
		fmt.Fprintf(stdout, "convert-videos %s\n", config.Version)
		return exitOK
	}

	cfg, err := config.Load(opts, lookup)
	if err != nil {
		fmt.Fprintf(stderr, "convert-videos: %v\n", err)
		return exitError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "convert-videos: %v\n", err)
		return exitError
	}

	log, err := logging.New(&cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "convert-videos: %v\n", err)
		return exitError
	}
	defer log.Close()

	// Phase 2: Logger available; all output goes through log from here on.
	display.PrintBanner(stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CheckOnly {
		if !check.RunCheck(ctx, &cfg, log) {
			return exitError
		}
		return exitOK
	}

	if err := cfg.ValidateDirectory(); err != nil {
		log.Error("Directory not usable: %v", err)
		return exitError
	}

	log.Info("=== convert-videos v%s ===", config.Version)
	log.Info("Directory: %s", cfg.Directory)
	log.Info("Log file:  %s", log.Path())
	if cfg.ConfigFile != "" {
		log.Info("Config:    %s", cfg.ConfigFile)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN - no files will be encoded, renamed or removed")
	}
	for _, w := range cfg.Warnings() {
		log.Warn("%s", w)
	}

	// Fail fast if HandBrakeCLI, ffprobe or the chosen encoder are
	// unavailable. A dry run never encodes, so it only warns.
	if err := check.CheckDeps(ctx, &cfg); err != nil {
		if !cfg.DryRun || errors.Is(err, check.ErrFFprobeNotFound) {
			log.Error("%v", err)
			return exitError
		}
		log.Warn("%v", err)
	}

	// Phase 3: Signal handling. The first SIGINT/SIGTERM interrupts the
	// current encode and stops the cycle; a second one exits immediately.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, stopping current file (again to force quit)")
		cancel()
		<-sigCh
		log.Error("Forced exit")
		os.Exit(exitInterrupted)
	}()

	// Phase 4: Wire the pipeline.
	observers := []pipeline.Observer{pipeline.NewProgressLogger(log)}
	if cfg.StatusAddr != "" {
		srv := status.New(config.Version, log.Named("status").Hclog())
		observers = append(observers, srv)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				log.Error("Status server: %v", err)
			}
		}()
	}

	eng := engine.New(cfg, engine.Deps{
		Prober:    probe.New(cfg.FFprobePath),
		Encoder:   handbrake.New(cfg.HandBrakePath, log.Named("handbrake")),
		Resolver:  &naming.Resolver{},
		FreeSpace: check.FreeSpace,
		Log:       log,
	})
	scanner := scan.New(scan.Options{MinSize: cfg.MinFileSize, Log: log})
	runner := pipeline.New(cfg, scanner, eng, log, observers...)

	// Phase 5: Run.
	if cfg.Loop {
		if err := runner.Loop(ctx); err != nil {
			log.Error("%v", err)
			return exitError
		}
		if ctx.Err() != nil {
			return exitInterrupted
		}
		return exitOK
	}

	rep, err := runner.RunOnce(ctx)
	switch {
	case ctx.Err() != nil:
		return exitInterrupted
	case err != nil:
		return exitError
	}
	for _, r := range rep.Results() {
		if r.State == media.StateFailed {
			return exitError
		}
	}
	return exitOK
}
