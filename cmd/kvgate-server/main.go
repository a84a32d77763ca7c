package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kvgate/kvgate/internal/auth"
	"github.com/kvgate/kvgate/internal/executor"
	"github.com/kvgate/kvgate/internal/infra/buildinfo"
	"github.com/kvgate/kvgate/internal/infra/confloader"
	"github.com/kvgate/kvgate/internal/infra/shutdown"
	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/server"
	"github.com/kvgate/kvgate/internal/server/adminserver"
	"github.com/kvgate/kvgate/internal/server/config"
	"github.com/kvgate/kvgate/internal/storage"
	"github.com/kvgate/kvgate/internal/storage/badgerkv"
	"github.com/kvgate/kvgate/internal/storage/memkv"
	"github.com/kvgate/kvgate/internal/telemetry/logger"
	"github.com/kvgate/kvgate/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")

		flagAddr     = flag.String("addr", "", "RESP listen address")
		flagUnixsock = flag.String("unixsocket", "", "Unix domain socket path")
		flagEngine   = flag.String("storage-engine", "", "Storage engine (memory or badger)")
		flagDir      = flag.String("storage-dir", "", "Data directory for the badger engine")
		flagLogLevel = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("kvgate-server %s\n", buildinfo.String())
		return nil
	}

	// Only flags the user actually set override the file and env.
	overrides := map[string]any{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			overrides["server.addr"] = *flagAddr
		case "unixsocket":
			overrides["server.unixsocket"] = *flagUnixsock
		case "storage-engine":
			overrides["storage.engine"] = *flagEngine
		case "storage-dir":
			overrides["storage.dir"] = *flagDir
		case "log-level":
			overrides["log.level"] = *flagLogLevel
		}
	})

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting kvgate-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", *config.Sanitize(cfg)))

	metrics := metric.NewRegistry()

	shutdownHandler := shutdown.NewHandler(30*time.Second, shutdown.WithLogger(log.Slog()))

	// Storage engine.
	engine, err := initStorage(cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return engine.Close()
	})

	if store, ok := engine.(*memkv.Store); ok && cfg.Storage.Sweep > 0 {
		sweepStop := make(chan struct{})
		go sweepLoop(sweepStop, store, cfg.Storage.Sweep, log)
		shutdownHandler.OnShutdown("sweeper", func(context.Context) error {
			close(sweepStop)
			return nil
		})
	}

	// Command executor over the engine.
	users := make([]auth.User, 0, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		users = append(users, auth.User{Name: u.Name, PasswordHash: u.Hash})
	}
	registry, err := auth.NewRegistry(users)
	if err != nil {
		return fmt.Errorf("auth registry: %w", err)
	}
	exec := executor.New(engine, registry, log.Slog()).WithMetrics(metrics)

	// RESP server.
	tlsConfig, err := loadTLS(cfg)
	if err != nil {
		return fmt.Errorf("load TLS keypair: %w", err)
	}
	respServer := server.New(serverConfig(cfg, tlsConfig), exec, metrics, log.Slog())
	if err := respServer.Start(context.Background()); err != nil {
		return fmt.Errorf("start resp server: %w", err)
	}
	shutdownHandler.OnShutdown("resp-server", func(ctx context.Context) error {
		return respServer.Shutdown(ctx)
	})

	// Admin HTTP endpoint.
	if cfg.Admin.Enabled {
		router := adminserver.NewRouter(&adminserver.RouterConfig{
			Metrics: metrics,
			Logger:  log,
		})
		admin := adminserver.New(cfg.Admin.Addr, router)
		shutdownHandler.OnShutdown("admin-server", func(ctx context.Context) error {
			return admin.Shutdown(ctx)
		})
		go func() {
			log.Info("admin endpoint listening", "address", cfg.Admin.Addr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin endpoint failed", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	// Re-read the config when the file changes; only the log level can
	// move at runtime, everything else needs a restart.
	if *configFile != "" {
		if err := watchConfig(*configFile, overrides, log, shutdownHandler); err != nil {
			log.Warn("config watcher unavailable", "error", err)
		}
	}

	log.Info("server started",
		"addr", cfg.Server.Addr,
		"engine", cfg.Storage.Engine,
		"auth", registry.Enabled())
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the optional file, environment, and flag
// overrides, then validates the result.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger builds the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// initStorage opens the configured storage engine.
func initStorage(cfg *config.ServerConfig, metrics *metric.Registry, log logger.Logger) (storage.Engine, error) {
	switch cfg.Storage.Engine {
	case "badger":
		bcfg := badgerkv.DefaultConfig(cfg.Storage.Dir)
		bcfg.SyncWrites = cfg.Storage.Sync
		eng, err := badgerkv.Open(bcfg, log.Slog())
		if err != nil {
			return nil, err
		}
		eng.RegisterMetrics(metrics.Prometheus())
		return eng, nil
	default:
		return memkv.New(), nil
	}
}

// loadTLS reads the keypair when both file settings are present.
func loadTLS(cfg *config.ServerConfig) (*tls.Config, error) {
	if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// serverConfig maps the file configuration onto the RESP server's.
func serverConfig(cfg *config.ServerConfig, tlsConfig *tls.Config) *server.Config {
	srvCfg := &server.Config{
		Addr:        cfg.Server.Addr,
		Unixsocket:  cfg.Server.Unixsocket,
		TLSConfig:   tlsConfig,
		IdleTimeout: cfg.Server.Timeout,
		MaxClients:  cfg.Limits.MaxClients,
		Rate:        cfg.Limits.Rate,
		Burst:       cfg.Limits.Burst,
	}
	if cfg.Limits.Maxbulk > 0 {
		srvCfg.Limits = resp.DefaultLimits()
		srvCfg.Limits.MaxBulkLen = cfg.Limits.Maxbulk
	}
	return srvCfg
}

// sweepLoop periodically removes expired keys from the memory engine.
func sweepLoop(stop <-chan struct{}, store *memkv.Store, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("swept expired keys", "count", n)
			}
		}
	}
}

// watchConfig installs a file watcher that applies log-level changes
// in place.
func watchConfig(path string, overrides map[string]any, log logger.Logger, handler *shutdown.Handler) error {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return err
	}

	watcher.OnChange(func(changed string) {
		// The watcher covers the whole parent directory; ignore
		// neighbors like editor temp files.
		if filepath.Base(changed) != filepath.Base(path) {
			return
		}
		reloaded, err := loadConfig(path, overrides)
		if err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if reloaded.Log.Level != logger.GetLevel() {
			logger.SetLevel(reloaded.Log.Level)
			log.Info("log level changed", "level", reloaded.Log.Level)
		}
	})
	watcher.StartAsync()

	handler.OnShutdown("config-watcher", func(context.Context) error {
		return watcher.Stop()
	})
	return nil
}
