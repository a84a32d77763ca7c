package config

import "time"

// Defaults applied before any file or environment value.
const (
	DefaultAddr      = "127.0.0.1:6379"
	DefaultAdminAddr = "127.0.0.1:7379"

	DefaultEngine        = "memory"
	DefaultDataDir       = "/var/lib/kvgate/data"
	DefaultSweepInterval = 30 * time.Second

	DefaultMaxClients = 10000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns a configuration the server can run with out of the
// box: loopback listeners, the in-memory engine, JSON logs.
func Default() *ServerConfig {
	var cfg ServerConfig
	cfg.Server.Addr = DefaultAddr
	cfg.Admin.Enabled = true
	cfg.Admin.Addr = DefaultAdminAddr
	cfg.Storage.Engine = DefaultEngine
	cfg.Storage.Dir = DefaultDataDir
	cfg.Storage.Sweep = DefaultSweepInterval
	cfg.Limits.MaxClients = DefaultMaxClients
	cfg.Log.Level = DefaultLogLevel
	cfg.Log.Format = DefaultLogFormat
	return &cfg
}
