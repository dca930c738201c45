// Package adapters routes dump paths to the [persist.Store] that serves them,
// chosen by URL scheme. Plain paths without a scheme are local files.
package adapters

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/brettbedarf/treefs/persist"
)

// ErrUnknownScheme is returned for a path whose scheme has no registered store
var ErrUnknownScheme = errors.New("no store registered for scheme")

// Registry is a [persist.Store] that hands each call to the store registered
// for the path's scheme.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]persist.Store
}

func NewRegistry() *Registry {
	return &Registry{stores: map[string]persist.Store{}}
}

// Register ties a store to a scheme such as "http". The first registration
// for a scheme wins; later ones are ignored.
func (r *Registry) Register(scheme string, store persist.Store) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[scheme]; !ok {
		r.stores[scheme] = store
	}
}

// GetStore returns the store registered for scheme.
func (r *Registry) GetStore(scheme string) (persist.Store, error) {
	r.mu.RLock()
	store, ok := r.stores[strings.ToLower(scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return store, nil
}

// splitScheme returns the lowercased scheme of path, or FileType when it has
// none. A file:// prefix is stripped so the local store sees a plain path.
func splitScheme(path string) (scheme, rest string) {
	i := strings.Index(path, "://")
	if i <= 0 || strings.ContainsAny(path[:i], "/ ") {
		return FileType, path
	}
	scheme = strings.ToLower(path[:i])
	if scheme == FileType {
		return scheme, path[i+len("://"):]
	}
	return scheme, path
}

func (r *Registry) storeFor(path string) (persist.Store, string, error) {
	scheme, rest := splitScheme(path)
	store, err := r.GetStore(scheme)
	if err != nil {
		return nil, "", err
	}
	return store, rest, nil
}

func (r *Registry) Read(path string) ([]byte, error) {
	store, rest, err := r.storeFor(path)
	if err != nil {
		return nil, err
	}
	return store.Read(rest)
}

func (r *Registry) Write(path string, data []byte) error {
	store, rest, err := r.storeFor(path)
	if err != nil {
		return err
	}
	return store.Write(rest, data)
}

var _ persist.Store = (*Registry)(nil)
