// Package config defines the server configuration structure.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kvgate/kvgate/internal/auth"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyAdmin(&cfg.Admin); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyAuth(&cfg.Auth); err != nil {
		return err
	}
	if err := verifyLimits(&cfg.Limits); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Timeout < 0 {
		return errors.New("server.timeout must not be negative")
	}

	// TLS is both-or-neither, and the files must exist at startup.
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if cfg.TLSCertFile != "" {
		if _, err := os.Stat(cfg.TLSCertFile); err != nil {
			return fmt.Errorf("server.tls_cert_file: %w", err)
		}
		if _, err := os.Stat(cfg.TLSKeyFile); err != nil {
			return fmt.Errorf("server.tls_key_file: %w", err)
		}
	}
	return nil
}

func verifyAdmin(cfg *AdminSection) error {
	if cfg.Enabled && cfg.Addr == "" {
		return errors.New("admin.addr is required when the admin endpoint is enabled")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case "memory":
		if cfg.Sweep < 0 {
			return errors.New("storage.sweep must not be negative")
		}
	case "badger":
		if cfg.Dir == "" {
			return errors.New("storage.dir is required for the badger engine")
		}
		// Check if data directory exists or can be created.
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
	default:
		return fmt.Errorf("storage.engine must be \"memory\" or \"badger\", got %q", cfg.Engine)
	}
	return nil
}

func verifyAuth(cfg *AuthSection) error {
	seen := make(map[string]bool, len(cfg.Users))
	for i, u := range cfg.Users {
		if u.Name == "" {
			return fmt.Errorf("auth.users[%d].name is required", i)
		}
		if seen[u.Name] {
			return fmt.Errorf("auth.users: duplicate user %q", u.Name)
		}
		seen[u.Name] = true
		if err := auth.CheckHash(u.Hash); err != nil {
			return fmt.Errorf("auth.users[%d] (%s): %w", i, u.Name, err)
		}
	}
	return nil
}

func verifyLimits(cfg *LimitsSection) error {
	if cfg.MaxClients < 1 {
		return errors.New("limits.maxclients must be at least 1")
	}
	if cfg.Rate < 0 {
		return errors.New("limits.rate must not be negative")
	}
	if cfg.Rate > 0 && cfg.Burst < 1 {
		return errors.New("limits.burst must be at least 1 when limits.rate is set")
	}
	if cfg.Maxbulk < 0 {
		return errors.New("limits.maxbulk must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
	}
	return nil
}
