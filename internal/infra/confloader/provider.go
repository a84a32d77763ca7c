package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported signals that a map provider has no byte
// form; koanf must use Read.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form, use Read()")

// mapProvider adapts an in-memory map (flag overrides, test fixtures)
// to the koanf provider interface. Dotted keys are unflattened so they
// merge into the nested tree and reach struct unmarshalling, not just
// key lookups.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return maps.Unflatten(copied, "."), nil
}
