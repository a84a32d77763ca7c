// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for kvgate-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Admin   AdminSection   `koanf:"admin"`
	Storage StorageSection `koanf:"storage"`
	Auth    AuthSection    `koanf:"auth"`
	Limits  LimitsSection  `koanf:"limits"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the RESP listeners.
type ServerSection struct {
	// Addr is the TCP listen address.
	Addr string `koanf:"addr"`

	// Unixsocket is an optional unix domain socket path. Empty
	// disables the socket listener.
	Unixsocket string `koanf:"unixsocket"`

	// Timeout is the idle client timeout. Zero means connections
	// never time out.
	Timeout time.Duration `koanf:"timeout"`

	// TLSCertFile and TLSKeyFile enable TLS on the TCP listener when
	// both are set. File-only settings.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// AdminSection configures the admin HTTP endpoint (/healthz, /metrics).
type AdminSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// StorageSection selects and tunes the storage engine.
type StorageSection struct {
	// Engine is "memory" or "badger".
	Engine string `koanf:"engine"`

	// Dir is the data directory for the badger engine.
	Dir string `koanf:"dir"`

	// Sync enables fsync after each badger commit.
	Sync bool `koanf:"sync"`

	// Sweep is the interval between expired-entry sweeps of the
	// memory engine. Zero disables sweeping; expired keys are then
	// only reclaimed when read.
	Sweep time.Duration `koanf:"sweep"`
}

// AuthSection configures authentication. An empty user list disables
// AUTH entirely.
type AuthSection struct {
	Users []UserConfig `koanf:"users"`
}

// UserConfig is one login. AUTH with a single argument authenticates
// against the user named "default".
type UserConfig struct {
	Name string `koanf:"name"`
	// Hash is an argon2id PHC string, produced by
	// `kvgate-cli hash-password`.
	Hash string `koanf:"hash"`
}

// LimitsSection bounds client resource use.
type LimitsSection struct {
	// MaxClients caps concurrent connections.
	MaxClients int `koanf:"maxclients"`

	// Rate is the per-client-IP command budget in commands per
	// second. Zero disables rate limiting.
	Rate float64 `koanf:"rate"`

	// Burst is the token bucket depth used with Rate.
	Burst int `koanf:"burst"`

	// Maxbulk caps a single bulk payload in bytes. Zero means the
	// protocol default (512MB).
	Maxbulk int64 `koanf:"maxbulk"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
