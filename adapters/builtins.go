package adapters

import (
	"time"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/persist"
)

type BuiltInStoreType = string

const (
	FileType  BuiltInStoreType = "file"
	HTTPType  BuiltInStoreType = "http"
	HTTPSType BuiltInStoreType = "https"
)

// RegisterBuiltins registers all built-in stores by default or only the
// specific ones if types are provided. cfg supplies the HTTP timeout and
// headers and may be nil.
func RegisterBuiltins(r *Registry, cfg *config.Config, types ...BuiltInStoreType) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if len(types) == 0 {
		types = []BuiltInStoreType{FileType, HTTPType, HTTPSType}
	}

	var web *HTTPStore
	for _, key := range types {
		switch key {
		case FileType:
			r.Register(FileType, persist.NewFileStore())
		case HTTPType, HTTPSType:
			if web == nil {
				web = NewHTTPStore(nil)
				web.Timeout = time.Duration(cfg.HTTPTimeout * float64(time.Second))
				web.Headers = cfg.HTTPHeaders
			}
			r.Register(key, web)
		}
	}
}

// NewDefaultRegistry returns a registry holding every built-in store
func NewDefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry()
	RegisterBuiltins(r, cfg)
	return r
}
