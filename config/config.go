package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/treefs/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Merge policies for loading a dump into a tree that already holds files.
const (
	MergeAppend  = "append"
	MergeReplace = "replace"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	// DefaultMaxNameLen bounds a single path segment or node name
	DefaultMaxNameLen = 255

	// DefaultStorePath is where the tree is persisted when no file was opened
	DefaultStorePath = "fs.txt"

	DefaultAutoSave    = true
	DefaultMergePolicy = MergeAppend

	DefaultFsName = "treefs"
	DefaultName   = "treefs"

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultHTTPTimeout bounds fetching a dump from an http(s) URL, in seconds
	DefaultHTTPTimeout = 30.0
)

// Config contains runtime configuration values for the tree filesystem.
type Config struct {
	MountOptions
	LogLvl      util.LogLevel // Internal log level (Default Info)
	MaxNameLen  int           // Max bytes in a name or path segment; 0 disables the limit (Default 255)
	StorePath   string        // Persisted dump used when nothing was opened (Default fs.txt)
	AutoSave    bool          // Save after every successful mutation (Default true)
	MergePolicy string        // "append" or "replace" (Default append)
	// NOTE: FUSE view only:

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)

	// NOTE: http(s) dump sources only:

	HTTPTimeout float64           // Request timeout in seconds; 0 disables it (Default 30)
	HTTPHeaders map[string]string // Extra headers sent with every request
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is the CLI verbosity between 1 (error) and 5 (trace)
	LogLvl       *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	MaxNameLen   *int     `yaml:"max_name_len,omitempty" json:"max_name_len,omitempty"`
	StorePath    *string  `yaml:"store_path,omitempty" json:"store_path,omitempty"`
	AutoSave     *bool    `yaml:"auto_save,omitempty" json:"auto_save,omitempty"`
	MergePolicy  *string  `yaml:"merge_policy,omitempty" json:"merge_policy,omitempty"`
	FsName       *string  `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name         *string  `yaml:"name,omitempty" json:"name,omitempty"`
	Debug        *bool    `yaml:"debug,omitempty" json:"debug,omitempty"`
	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	HTTPTimeout  *float64 `yaml:"http_timeout,omitempty" json:"http_timeout,omitempty"`
	// HTTPHeaders entries are added to the configured headers, replacing equal keys
	HTTPHeaders map[string]string `yaml:"http_headers,omitempty" json:"http_headers,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		MaxNameLen:   DefaultMaxNameLen,
		StorePath:    DefaultStorePath,
		AutoSave:     DefaultAutoSave,
		MergePolicy:  DefaultMergePolicy,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
		HTTPTimeout:  DefaultHTTPTimeout,
	}
}

// NewConfig returns the defaults with override applied; override may be nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// VerboseToLogLevel clamps a CLI verbosity to 1..5 and maps it to a [util.LogLevel].
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return logLvls[verbose-1]
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
	if override.MaxNameLen != nil {
		c.MaxNameLen = *override.MaxNameLen
	}
	if override.StorePath != nil {
		c.StorePath = *override.StorePath
	}
	if override.AutoSave != nil {
		c.AutoSave = *override.AutoSave
	}
	if override.MergePolicy != nil {
		c.MergePolicy = *override.MergePolicy
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.HTTPTimeout != nil {
		c.HTTPTimeout = *override.HTTPTimeout
	}
	if len(override.HTTPHeaders) > 0 {
		if c.HTTPHeaders == nil {
			c.HTTPHeaders = make(map[string]string, len(override.HTTPHeaders))
		}
		for k, v := range override.HTTPHeaders {
			c.HTTPHeaders[k] = v
		}
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.MaxNameLen < 0 {
		return fmt.Errorf("max_name_len must not be negative: %d", c.MaxNameLen)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative: %g", c.HTTPTimeout)
	}
	switch c.MergePolicy {
	case MergeAppend, MergeReplace:
	default:
		return fmt.Errorf("unknown merge policy: %q", c.MergePolicy)
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
