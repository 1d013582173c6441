package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"photo-cleaner/internal/batch"
	"photo-cleaner/internal/codec"
	"photo-cleaner/internal/config"
	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/opencv"
	"photo-cleaner/internal/pipeline"
	"photo-cleaner/internal/processing/analysis"
	"photo-cleaner/internal/processing/filters"
	"photo-cleaner/internal/shutdown"
	"photo-cleaner/internal/timing"
)

const AppVersion = "1.0.0"

const (
	exitOK = iota
	exitAborted
	exitConfig
	exitCapability
)

func main() {
	configureRuntime()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// configureRuntime tunes the GC for large short-lived float buffers.
func configureRuntime() {
	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(200)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, checkOnly, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}
	if cfg == nil {
		fmt.Fprintln(stdout, "photo-cleaner", AppVersion)
		return exitOK
	}

	level := logger.LevelFromEnv(logger.ParseLevel(cfg.LogLevel))
	log := logger.New(level, cfg.LogJSON)

	log.Info("PhotoCleaner", "starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
		"workers":    cfg.Workers,
		"codec":      cfg.Codec,
		"log_level":  level.String(),
	})

	imageCodec, smoother, capability := selectCodec(cfg)
	log.Info("PhotoCleaner", "codec capability", map[string]interface{}{
		"status": capability.Status.String(),
		"detail": capability.Detail,
	})
	if capability.Status != codec.Ready {
		fmt.Fprintf(stderr, "codec not usable: %s\n", capability.Detail)
		return exitCapability
	}
	if checkOnly {
		fmt.Fprintln(stdout, capability.Detail)
		return exitOK
	}

	// An interrupt stops dispatch; images already queued still finish.
	shutdownMgr := shutdown.NewManager(ctx, log)
	shutdownMgr.Listen()
	defer shutdownMgr.Shutdown()

	tracker := timing.NewTracker(log)
	analyzer := analysis.NewAnalyzer(cfg.NoiseScale, cfg.EdgeThreshold)
	engine := filters.NewEngineWithSmoother(smoother, log)
	coordinator := pipeline.NewCoordinator(imageCodec, analyzer, engine, tracker, log)
	orchestrator := batch.NewOrchestrator(*cfg, coordinator, log)

	summary, err := orchestrator.Run(shutdownMgr.Context())
	if err != nil {
		fmt.Fprintf(stderr, "batch aborted: %v\n", err)
		return exitAborted
	}

	fmt.Fprintln(stdout, batch.FormatSummary(summary))
	return exitOK
}

// parseConfig builds the configuration from an optional JSON file with
// explicitly set flags layered on top. A nil config means -version.
func parseConfig(args []string, stderr io.Writer) (*config.Config, bool, error) {
	fs := flag.NewFlagSet("photo-cleaner", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := config.Default()
	configPath := fs.String("config", "", "path to a JSON config file")
	input := fs.String("input", "", "input root directory")
	output := fs.String("output", "", "output root directory")
	manifestPath := fs.String("manifest", "", "JSON manifest restricting the batch")
	workers := fs.Int("workers", defaults.Workers, "number of worker goroutines")
	queue := fs.Int("queue", defaults.QueueSize, "bounded queue size")
	codecName := fs.String("codec", defaults.Codec, "image codec: opencv or go")
	quality := fs.Int("jpeg-quality", defaults.JPEGQuality, "JPEG output quality")
	logLevel := fs.String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	logJSON := fs.Bool("log-json", false, "emit JSON logs")
	plot := fs.String("profile-plot", "", "write a noise profile scatter plot to this file (.png, .svg, .pdf or .html)")
	checkOnly := fs.Bool("check", false, "only run the codec capability check")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if *showVersion {
		return nil, false, nil
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputRoot = *input
		case "output":
			cfg.OutputRoot = *output
		case "manifest":
			cfg.ManifestPath = *manifestPath
		case "workers":
			cfg.Workers = *workers
		case "queue":
			cfg.QueueSize = *queue
		case "codec":
			cfg.Codec = *codecName
		case "jpeg-quality":
			cfg.JPEGQuality = *quality
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-json":
			cfg.LogJSON = *logJSON
		case "profile-plot":
			cfg.ProfilePlot = *plot
		}
	})

	if *checkOnly {
		if cfg.InputRoot == "" {
			cfg.InputRoot = "."
		}
		if cfg.OutputRoot == "" {
			cfg.OutputRoot = os.TempDir()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, *checkOnly, nil
}

// selectCodec picks the codec and the matching smoothing pass. The go codec
// runs without OpenCV, so it also gets the pure Go bilateral filter.
func selectCodec(cfg *config.Config) (codec.Codec, filters.SmootherFactory, codec.Capability) {
	if cfg.Codec == config.CodecGo {
		c := codec.NewGoCodec(cfg.JPEGQuality)
		return c, filters.NewBilateralSmoother, codec.Check(c, cfg.Extensions)
	}
	c := opencv.NewCodec(cfg.JPEGQuality)
	return c, opencv.NewBilateralSmoother, opencv.CheckCapabilities(c, cfg.Extensions)
}
