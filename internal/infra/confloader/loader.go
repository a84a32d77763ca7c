package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix marks the environment variables the loader reads.
const DefaultEnvPrefix = "KVGATE_"

// Loader merges configuration sources onto one koanf tree. Sources are
// layered in a fixed order, later ones winning: the target struct's
// pre-filled defaults, the YAML file, the environment, and finally any
// explicit override maps (CLI flags).
type Loader struct {
	tree   *koanf.Koanf
	prefix string
	path   string
	loaded bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces the default environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.prefix = prefix }
}

// WithConfigFile sets the YAML file read by Load. Without it, Load
// merges only the environment.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.path = path }
}

// NewLoader creates a loader with an empty tree.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{tree: koanf.New("."), prefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges the configured file and the environment into the tree
// and unmarshals the result into target. Flag overrides go through
// LoadMap afterwards, followed by a second Unmarshal, so flags outrank
// both the file and the environment.
func (l *Loader) Load(target any) error {
	if l.path != "" {
		if err := l.LoadFile(l.path); err != nil {
			return err
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	l.loaded = true
	return nil
}

// LoadFile merges one YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.tree.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges prefixed environment variables. Underscores become
// key separators: KVGATE_SERVER_ADDR sets server.addr.
func (l *Loader) LoadEnv() error {
	rekey := func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, l.prefix))
		return strings.ReplaceAll(name, "_", ".")
	}
	if err := l.tree.Load(env.Provider(l.prefix, ".", rekey), nil); err != nil {
		return fmt.Errorf("merge environment: %w", err)
	}
	return nil
}

// LoadMap merges explicit key-value overrides, dotted keys allowed.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.tree.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("merge overrides: %w", err)
	}
	return nil
}

// Unmarshal fills target from the merged tree via its koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.tree.Unmarshal("", target)
}

// GetString reads one string key from the merged tree.
func (l *Loader) GetString(key string) string {
	return l.tree.String(key)
}

// GetInt reads one integer key from the merged tree.
func (l *Loader) GetInt(key string) int {
	return l.tree.Int(key)
}

// IsLoaded reports whether a full Load has completed.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// Keys lists every merged key. Values are deliberately not exposed
// here; startup logging prints keys only.
func (l *Loader) Keys() []string {
	return l.tree.Keys()
}
