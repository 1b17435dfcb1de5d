package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mbardeau/factura/pkg/config"
)

// OpenFunc builds a Store from resolved settings.
type OpenFunc func(cfg config.Settings, log zerolog.Logger) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// Register makes a backend available under a name. Backends call it
// from init, database/sql style; importing a backend package is what
// enables it.
func Register(name string, fn OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("storage: backend %q registered twice", name))
	}
	registry[name] = fn
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the Store selected by cfg.Backend.
func Open(cfg config.Settings, log zerolog.Logger) (Store, error) {
	registryMu.RLock()
	fn, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (registered: %v)", cfg.Backend, Backends())
	}
	store, err := fn(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", cfg.Backend).Msg("storage opened")
	return store, nil
}
