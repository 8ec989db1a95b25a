package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(""), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.MaxAttrNames != 10000 || cfg.MaxEvalDepth != 10000 {
		t.Errorf("unexpected limits %d %d", cfg.MaxAttrNames, cfg.MaxEvalDepth)
	}
	if cfg.TypeTags != TypeTagsNumber || cfg.ErrorMode != ErrorModeTyped || cfg.Format != FormatJSON {
		t.Errorf("unexpected wire defaults %+v", cfg)
	}
}

func TestParseConfig_Full(t *testing.T) {
	yaml := `
max_attr_names: 50
max_eval_depth: 2000
max_nodes: 100000
type_tags: name
error_mode: sentinel
format: yaml
base_dir: /src
log_level: debug
log_file: "-"
data_dir: /var/lib/nix-inspect
grpc_addr: 127.0.0.1:9000
args:
  pkgs: "{ hello = 1; }"
argstrs:
  system: x86_64-linux
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Config{
		MaxAttrNames: 50,
		MaxEvalDepth: 2000,
		MaxNodes:     100000,
		TypeTags:     TypeTagsName,
		ErrorMode:    ErrorModeSentinel,
		Format:       FormatYAML,
		BaseDir:      "/src",
		LogLevel:     "debug",
		LogFile:      "-",
		DataDir:      "/var/lib/nix-inspect",
		GRPCAddr:     "127.0.0.1:9000",
		Args:         map[string]string{"pkgs": "{ hello = 1; }"},
		ArgStrs:      map[string]string{"system": "x86_64-linux"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.LogPath() != "" {
		t.Errorf("log_file \"-\" should mean stderr, got %q", cfg.LogPath())
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.Level())
	}
}

func TestParseConfig_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		yaml    string
		message string
	}{
		{"bad_yaml", "max_attr_names: [", "parsing test.yaml"},
		{"negative_cap", "max_attr_names: -1", "max_attr_names must not be negative"},
		{"negative_depth", "max_eval_depth: -5", "max_eval_depth must not be negative"},
		{"negative_nodes", "max_nodes: -1", "max_nodes must not be negative"},
		{"type_tags", "type_tags: hex", "type_tags must be"},
		{"error_mode", "error_mode: loud", "error_mode must be"},
		{"format", "format: xml", "format must be"},
		{"log_level", "log_level: chatty", "unknown log level"},
		{"duplicate_arg", "args: {x: \"1\"}\nargstrs: {x: one}", "both args and argstrs"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml), "test.yaml")
			if err == nil {
				t.Fatalf("expected error containing %q", tc.message)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tc.message)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without a file: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("data dir = %q, want %q", cfg.DataDir, dir)
	}
	if got := cfg.LogPath(); got != filepath.Join(dir, LogFileName) {
		t.Errorf("log path = %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("max_attr_names: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "warn")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxAttrNames != 7 {
		t.Errorf("config file not picked up: %+v", cfg)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("env level not applied: %v", cfg.Level())
	}

	t.Setenv(EnvLogLevel, "nope")
	if _, err := Load(""); err == nil {
		t.Error("expected an error for a bad NIX_INSPECT_LOGLEVEL")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for an explicit missing file")
	}
}

func TestResolveDataDir(t *testing.T) {
	if got := ResolveDataDir("/explicit"); got != "/explicit" {
		t.Errorf("explicit dir ignored: %q", got)
	}
	t.Setenv(EnvDataDir, "/from-env")
	if got := ResolveDataDir(""); got != "/from-env" {
		t.Errorf("env dir ignored: %q", got)
	}
}
