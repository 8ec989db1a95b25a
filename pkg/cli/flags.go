package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bluskript/nix-inspect/internal/config"
	"github.com/bluskript/nix-inspect/internal/evaluator"
	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/value"
)

// argsFlag collects repeated name=value flags.
type argsFlag map[string]string

func (f argsFlag) String() string {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n+"="+f[n])
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (f argsFlag) Set(s string) error {
	name, val, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	f[strings.TrimSpace(name)] = val
	return nil
}

// common are the flags shared by commands that evaluate an expression.
type common struct {
	configPath string
	expr       string
	file       string
	args       argsFlag
	argStrs    argsFlag
	logLevel   string
}

func newFlagSet(a *app, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: nix-inspect %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func (c *common) register(fs *flag.FlagSet, withExpr bool) {
	c.args = argsFlag{}
	c.argStrs = argsFlag{}
	fs.StringVar(&c.configPath, "config", "", "config file (default <data dir>/config.yaml)")
	fs.StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	fs.Var(c.args, "arg", "default argument `name=expr` for auto-called functions (repeatable)")
	fs.Var(c.argStrs, "argstr", "default string argument `name=value` (repeatable)")
	if withExpr {
		fs.StringVar(&c.expr, "e", "", "root expression")
		fs.StringVar(&c.file, "f", "", "file whose value is the root")
	}
}

// parse parses args and returns the positional rest.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}
	return fs.Args(), nil
}

// load reads the configuration and merges the command line over it.
func (c *common) load() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		if _, err := config.ParseLevel(c.logLevel); err != nil {
			return nil, err
		}
		cfg.LogLevel = c.logLevel
	}
	cfg.Args = merge(cfg.Args, c.args)
	cfg.ArgStrs = merge(cfg.ArgStrs, c.argStrs)
	for name := range cfg.Args {
		if _, dup := cfg.ArgStrs[name]; dup {
			return nil, fmt.Errorf("argument %q is given both as --arg and --argstr", name)
		}
	}
	return cfg, nil
}

func merge(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// rootExpr returns the expression named by -e or -f. A file becomes an
// import so the expression fits on one protocol line.
func (c *common) rootExpr() (string, error) {
	switch {
	case c.expr != "" && c.file != "":
		return "", errors.New("-e and -f are mutually exclusive")
	case c.expr != "":
		return c.expr, nil
	case c.file != "":
		abs, err := filepath.Abs(c.file)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", err
		}
		return "import " + strconv.Quote(abs), nil
	}
	return "", errors.New("no root expression; use -e <expr> or -f <file>")
}

// openLog opens the configured log destination. The returned closer is a
// no-op for stderr.
func openLog(cfg *config.Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	path := cfg.LogPath()
	if path == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), f, nil
}

// newSession evaluates expr with the configured limits and defaults.
func newSession(cfg *config.Config, expr string, logger *slog.Logger) (*inspector.Session, error) {
	heap := value.NewHeap()
	heap.MaxDepth = cfg.MaxEvalDepth
	heap.MaxNodes = cfg.MaxNodes
	ev := evaluator.New(heap)
	ev.Logger = logger
	if cfg.BaseDir != "" {
		ev.BaseDir = cfg.BaseDir
	}
	return inspector.NewSession(ev, expr, inspector.Options{
		MaxAttrNames: cfg.MaxAttrNames,
		Args:         cfg.Args,
		ArgStrs:      cfg.ArgStrs,
		Logger:       logger,
	})
}
