package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config carries everything a backend needs to open a Repository. Kind
// selects the backend; the remaining fields pass through to it unchanged.
type Config struct {
	Kind       string
	DSN        string
	Table      string
	Columns    []string
	KeyColumns []string
}

// FactoryFn opens a concrete Repository from a Config.
type FactoryFn func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]FactoryFn{}
)

// Register makes a backend available under the given kind. Registering a
// kind again replaces the previous factory; backends call Register from
// init, tests use it to install fakes.
func Register(kind string, fn FactoryFn) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind via its registered factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factoryMu.RLock()
	fn, ok := factories[cfg.Kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
