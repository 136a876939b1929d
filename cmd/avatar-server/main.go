// avatar-server streams avatar motion frames to renderers over websockets.
// Each client gets its own position source and motion controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-avatar/internal/config"
	"github.com/teslashibe/go-avatar/internal/log"
	"github.com/teslashibe/go-avatar/pkg/metrics"
	"github.com/teslashibe/go-avatar/pkg/source"
	"github.com/teslashibe/go-avatar/pkg/stream"
	"github.com/teslashibe/go-avatar/pkg/tap"
)

var version = "0.1.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	log.Init(cfg.Log.Level)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.L()

	logger.Info("starting avatar server",
		"version", version,
		"addr", cfg.Server.Addr(),
		"source", cfg.Source.Kind,
		"tick", cfg.Server.TickInterval,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	frames, err := tap.New(dialCtx, cfg.Tap, log.Component("tap"))
	dialCancel()
	if err != nil {
		return err
	}
	defer frames.Close()

	srv, err := stream.NewServer(cfg.Server, stream.Options{
		Source:  cfg.Source,
		Motion:  cfg.Motion,
		Tap:     frames,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}

// loadConfig builds the configuration from file, environment and flags,
// in that order of precedence (flags win).
func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", os.Getenv("AVATAR_CONFIG"), "Path to YAML config file")
	host := flag.String("host", "", "Listen host (overrides HOST)")
	port := flag.Int("port", 0, "Listen port (overrides PORT)")
	kind := flag.String("source", "", fmt.Sprintf("Position source: %v", source.Kinds()))
	device := flag.Int("device", -1, "Camera device index")
	encoding := flag.String("encoding", "", "Default frame encoding: json or msgpack")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noFallback := flag.Bool("no-fallback", false, "Reject sessions instead of falling back to the synthetic source")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("avatar-server", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *kind != "" {
		cfg.Source.Kind = source.Kind(*kind)
	}
	if *device >= 0 {
		cfg.Source.Device = *device
	}
	if *encoding != "" {
		cfg.Server.DefaultEncoding = *encoding
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *noFallback {
		cfg.Source.FallbackSynthetic = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
