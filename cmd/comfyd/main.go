package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"comfyd/internal/config"
	"comfyd/internal/httpapi"
	"comfyd/internal/pathcfg"
	"comfyd/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; deployments usually inject env directly
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// Flags with environment variable defaults
	installRoot := flag.String("install-root", cfg.InstallRoot, "Inference server install directory")
	volumeRoot := flag.String("volume-root", cfg.VolumeRoot, "Externally mounted directory tree (may be absent)")
	pathConfig := flag.String("path-config", cfg.PathConfigFile, "Where to write the merged model-search config")
	statusAddr := flag.String("status-addr", cfg.StatusAddr, "Status sidecar listen address, e.g. :9100")
	readyMode := flag.String("ready-mode", cfg.ReadyMode, "Readiness strategy: poll|delay")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	configFile := flag.String("config", "", "Optional config file (.yaml/.json/.toml); env and flags override")
	flag.Parse()

	cfg.InstallRoot = *installRoot
	cfg.VolumeRoot = *volumeRoot
	cfg.PathConfigFile = *pathConfig
	cfg.StatusAddr = *statusAddr
	cfg.ReadyMode = *readyMode
	cfg.LogLevel = *logLevel

	if *configFile != "" {
		fileCfg, err := config.Load(*configFile)
		if err != nil {
			errLog := zerolog.New(os.Stderr)
			errLog.Error().Err(err).Msg("config file load failed")
			return 1
		}
		// file fills only what env and flags left unset
		if cfg.InstallRoot == "" {
			cfg.InstallRoot = fileCfg.InstallRoot
		}
		if cfg.VolumeRoot == "" {
			cfg.VolumeRoot = fileCfg.VolumeRoot
		}
		if len(cfg.ServerCmd) == 0 {
			cfg.ServerCmd = fileCfg.ServerCmd
		}
		if len(cfg.HandlerCmd) == 0 {
			cfg.HandlerCmd = fileCfg.HandlerCmd
		}
		if len(cfg.ExtraEnv) == 0 {
			cfg.ExtraEnv = fileCfg.ExtraEnv
		}
		if cfg.CoreNode == "" {
			cfg.CoreNode = fileCfg.CoreNode
		}
		if cfg.TermGrace <= 0 {
			cfg.TermGrace = fileCfg.TermGrace
		}
	}
	cfg.ApplyDefaults()

	logger := newLogger(cfg.LogLevel)
	httpapi.SetLogger(logger)

	// Path Resolver output is consumed by the server at startup; write it
	// before anything launches.
	pc := pathcfg.Resolver{
		BakedRoot:  cfg.BakedModelsDir(),
		VolumeRoot: cfg.VolumeModelsDir(),
	}.Build()
	if err := pathcfg.WriteYAML(cfg.PathConfigFile, pc); err != nil {
		logger.Error().Err(err).Msg("cannot write model-search config")
		return 1
	}

	sup := supervisor.New(supervisor.Config{
		InstallRoot:     cfg.InstallRoot,
		ServerCmd:       cfg.ServerCmd,
		HandlerCmd:      cfg.HandlerCmd,
		HandlerMode:     cfg.HandlerMode(),
		APIHost:         cfg.APIHost,
		APIPort:         cfg.APIPort,
		BaseURL:         cfg.ComfyBaseURL(),
		ReadyMode:       cfg.ReadyMode,
		ReadyTimeout:    cfg.ReadyTimeout,
		PollInterval:    cfg.PollInterval,
		ReadyDelay:      cfg.ReadyDelay,
		CoreNode:        cfg.CoreNode,
		VolumeModelsDir: cfg.VolumeModelsDir(),
		RequireVolume:   cfg.RequireVolume,
		PathConfigFile:  cfg.PathConfigFile,
		ExtraEnv:        cfg.ExtraEnv,
		TermGrace:       cfg.TermGrace,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.StatusAddr, Handler: httpapi.NewMux(sup)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.StatusAddr).Msg("status sidecar listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var code int
	g.Go(func() error {
		c, err := sup.Run(gctx)
		code = c
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Int("code", code).Msg("worker finished with error")
	}
	return code
}

func newLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}
