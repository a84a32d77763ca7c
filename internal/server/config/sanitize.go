package config

import "github.com/kvgate/kvgate/internal/telemetry/logger"

// Sanitize returns a copy of cfg safe to log: password hashes are
// masked, everything else passes through. The user list is deep-copied
// so the original hashes stay intact.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg

	if len(cfg.Auth.Users) > 0 {
		users := make([]UserConfig, len(cfg.Auth.Users))
		for i, u := range cfg.Auth.Users {
			users[i] = UserConfig{
				Name: u.Name,
				Hash: logger.RedactString(u.Hash),
			}
		}
		out.Auth.Users = users
	}

	return &out
}
