// Package config loads nix-inspect settings from config.yaml and the
// environment.
//
// A missing file is not an error; every field has a default. Environment
// variables override the file:
//
//	NIX_INSPECT_DATA      data directory (log, bookmarks, config)
//	NIX_INSPECT_LOGLEVEL  debug, info, warn or error
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level config.yaml.
type Config struct {
	// MaxAttrNames caps attribute name listings in responses.
	MaxAttrNames int `yaml:"max_attr_names,omitempty"`

	// MaxEvalDepth caps nested forcing and calling in the evaluator.
	MaxEvalDepth int `yaml:"max_eval_depth,omitempty"`

	// MaxNodes caps the values one session may allocate.
	MaxNodes int `yaml:"max_nodes,omitempty"`

	// TypeTags selects "number" (the default, e.g. "7") or "name" ("set").
	TypeTags string `yaml:"type_tags,omitempty"`

	// ErrorMode selects "typed" error objects or the bare "error" line.
	ErrorMode string `yaml:"error_mode,omitempty"`

	// Format is "json" or "yaml" for worker responses.
	Format string `yaml:"format,omitempty"`

	// BaseDir anchors relative paths in expressions. Defaults to the
	// working directory.
	BaseDir string `yaml:"base_dir,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`

	// LogFile overrides <data_dir>/nix-inspect.log; "-" means stderr.
	LogFile string `yaml:"log_file,omitempty"`

	DataDir string `yaml:"data_dir,omitempty"`

	// WorkerPath is the executable the browser spawns. Defaults to the
	// running binary.
	WorkerPath string `yaml:"worker_path,omitempty"`

	GRPCAddr string `yaml:"grpc_addr,omitempty"`

	// Args and ArgStrs are default arguments for auto-applied functions,
	// the same as --arg and --argstr.
	Args    map[string]string `yaml:"args,omitempty"`
	ArgStrs map[string]string `yaml:"argstrs,omitempty"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load finds the configuration for this process: explicit path if given,
// otherwise config.yaml in the data directory, otherwise defaults. The
// environment is applied last.
func Load(explicit string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch {
	case explicit != "":
		cfg, err = LoadConfig(explicit)
	default:
		var path string
		path, err = FindConfig(ResolveDataDir(""))
		if err == nil && path != "" {
			cfg, err = LoadConfig(path)
		}
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfig returns the config file inside dir, or "" if there is none.
func FindConfig(dir string) (string, error) {
	for _, name := range []string{ConfigFileName, ConfigFileAlt} {
		candidate := filepath.Join(dir, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
	}
	return "", nil
}

// ApplyEnv overrides fields from NIX_INSPECT_DATA and NIX_INSPECT_LOGLEVEL.
func (c *Config) ApplyEnv() error {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		if _, err := ParseLevel(lvl); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.LogLevel = lvl
	}
	return nil
}

// ResolveDataDir returns dir if set, else NIX_INSPECT_DATA, else
// <user config dir>/nix-inspect, else ./.data.
func ResolveDataDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return env
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, DataDirName)
	}
	return FallbackDataDir
}

// DataPath joins name onto the resolved data directory.
func (c *Config) DataPath(name string) string {
	return filepath.Join(ResolveDataDir(c.DataDir), name)
}

// LogPath is where the log goes, or "" for stderr.
func (c *Config) LogPath() string {
	switch c.LogFile {
	case "-":
		return ""
	case "":
		return c.DataPath(LogFileName)
	}
	return c.LogFile
}

// Level returns the slog level for LogLevel. validate has already
// rejected unknown names.
func (c *Config) Level() slog.Level {
	lvl, _ := ParseLevel(c.LogLevel)
	return lvl
}

// ParseLevel maps a level name to slog.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.MaxAttrNames < 0 {
		return fmt.Errorf("%s: max_attr_names must not be negative", path)
	}
	if c.MaxEvalDepth < 0 {
		return fmt.Errorf("%s: max_eval_depth must not be negative", path)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("%s: max_nodes must not be negative", path)
	}
	switch c.TypeTags {
	case TypeTagsNumber, TypeTagsName:
	default:
		return fmt.Errorf("%s: type_tags must be %q or %q, got %q", path, TypeTagsNumber, TypeTagsName, c.TypeTags)
	}
	switch c.ErrorMode {
	case ErrorModeTyped, ErrorModeSentinel:
	default:
		return fmt.Errorf("%s: error_mode must be %q or %q, got %q", path, ErrorModeTyped, ErrorModeSentinel, c.ErrorMode)
	}
	switch c.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%s: format must be %q or %q, got %q", path, FormatJSON, FormatYAML, c.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: log_level: %w", path, err)
	}
	for name := range c.Args {
		if _, dup := c.ArgStrs[name]; dup {
			return fmt.Errorf("%s: argument %q is set in both args and argstrs", path, name)
		}
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.MaxAttrNames == 0 {
		c.MaxAttrNames = DefaultMaxAttrNames
	}
	if c.MaxEvalDepth == 0 {
		c.MaxEvalDepth = DefaultMaxEvalDepth
	}
	if c.MaxNodes == 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.TypeTags == "" {
		c.TypeTags = TypeTagsNumber
	}
	if c.ErrorMode == "" {
		c.ErrorMode = ErrorModeTyped
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GRPCAddr == "" {
		c.GRPCAddr = DefaultGRPCAddr
	}
}
