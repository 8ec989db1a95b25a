package config

// Version is reported by `nix-inspect version`.
const Version = "0.1.0"

// Limits
const (
	DefaultMaxAttrNames = 10000
	DefaultMaxEvalDepth = 10000
	DefaultMaxNodes     = 1 << 22
)

// File names inside the data directory
const (
	ConfigFileName   = "config.yaml"
	ConfigFileAlt    = "config.yml"
	LogFileName      = "nix-inspect.log"
	BookmarksDBName  = "bookmarks.db"
	DataDirName      = "nix-inspect"
	FallbackDataDir  = ".data"
	WorkerSubcommand = "worker"
)

// Environment variables
const (
	EnvDataDir  = "NIX_INSPECT_DATA"
	EnvLogLevel = "NIX_INSPECT_LOGLEVEL"
)

// Type tag styles on the wire
const (
	TypeTagsNumber = "number"
	TypeTagsName   = "name"
)

// Error reporting modes on the wire
const (
	ErrorModeTyped    = "typed"
	ErrorModeSentinel = "sentinel"
)

// SentinelError is the whole response line in sentinel mode.
const SentinelError = "error"

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const DefaultGRPCAddr = "127.0.0.1:50515"
