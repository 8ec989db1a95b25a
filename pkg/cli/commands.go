package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"google.golang.org/grpc"

	"github.com/bluskript/nix-inspect/internal/bookmarks"
	"github.com/bluskript/nix-inspect/internal/browser"
	"github.com/bluskript/nix-inspect/internal/config"
	"github.com/bluskript/nix-inspect/internal/host"
	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/protocol"
	"github.com/bluskript/nix-inspect/internal/rpc"
)

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newEncoder(a *app, cfg *config.Config) *protocol.Encoder {
	enc := protocol.NewEncoder(a.stdout)
	enc.TypeTags = cfg.TypeTags
	enc.ErrorMode = cfg.ErrorMode
	enc.Format = cfg.Format
	return enc
}

// worker serves the line protocol on stdin and stdout. The root expression
// is the first input line.
func (a *app) worker(ctx context.Context, args []string) error {
	var c common
	fs := newFlagSet(a, "worker", "[flags] < requests")
	c.register(fs, false)
	if _, err := parse(fs, args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	logger, closer, err := openLog(cfg, a.stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	srv := &protocol.Server{
		NewSession: func(expr string) (*inspector.Session, error) {
			return newSession(cfg, expr, logger)
		},
		Encoder: newEncoder(a, cfg),
		Logger:  logger,
	}
	if isTerminal(a.stdin) {
		srv.Prompt = a.stdout
	}
	logger.Info("worker started", "pid", os.Getpid())
	return srv.Serve(ctx, a.stdin)
}

// eval inspects each path argument, or the root when there are none.
func (a *app) eval(ctx context.Context, args []string) error {
	var c common
	fs := newFlagSet(a, "eval", "[flags] [path...]")
	c.register(fs, true)
	paths, err := parse(fs, args)
	if err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	expr, err := c.rootExpr()
	if err != nil {
		return err
	}
	logger, closer, err := openLog(cfg, a.stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	sess, err := newSession(cfg, expr, logger)
	if err != nil {
		return err
	}
	enc := newEncoder(a, cfg)
	if len(paths) == 0 {
		return enc.Encode(sess.Root())
	}

	failed := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		proj, err := sess.Inspect(p)
		if err != nil {
			failed++
		}
		if werr := enc.Encode(proj, err); werr != nil {
			return werr
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d paths failed", failed, len(paths))
	}
	return nil
}

// serve exposes a session over gRPC until interrupted.
func (a *app) serve(ctx context.Context, args []string) error {
	var (
		c    common
		addr string
	)
	fs := newFlagSet(a, "serve", "[flags]")
	c.register(fs, true)
	fs.StringVar(&addr, "addr", "", "listen address (default from config)")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.GRPCAddr
	}
	expr, err := c.rootExpr()
	if err != nil {
		return err
	}
	logger, closer, err := openLog(cfg, a.stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	sess, err := newSession(cfg, expr, logger)
	if err != nil {
		return err
	}
	srv, err := rpc.NewServer(sess, logger)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	g := grpc.NewServer()
	srv.Register(g)
	go func() {
		<-ctx.Done()
		g.GracefulStop()
	}()
	logger.Info("serving", "addr", lis.Addr().String(), "session", sess.ID)
	fmt.Fprintf(a.stderr, "listening on %s\n", lis.Addr())
	return g.Serve(lis)
}

// query sends one request to a gRPC server and prints the response in the
// configured wire format.
func (a *app) query(ctx context.Context, args []string) error {
	var (
		configPath string
		addr       string
	)
	fs := newFlagSet(a, "query", "[flags] inspect <path> | root | child <path> <key> | complete <prefix>")
	fs.StringVar(&configPath, "config", "", "config file")
	fs.StringVar(&addr, "addr", "", "server address (default from config)")
	rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.GRPCAddr
	}

	client, err := rpc.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	enc := newEncoder(a, cfg)
	op, rest := rest[0], rest[1:]
	var proj inspector.Projection
	switch {
	case op == "inspect" && len(rest) == 1:
		proj, err = client.Inspect(ctx, rest[0])
	case op == "root" && len(rest) == 0:
		proj, err = client.Root(ctx)
	case op == "child" && len(rest) == 2:
		proj, err = client.Child(ctx, rest[0], rest[1])
	case op == "complete" && len(rest) <= 1:
		prefix := strings.Join(rest, "")
		names, err := client.Complete(ctx, prefix)
		if err != nil {
			return err
		}
		return enc.EncodeNames(names)
	default:
		fs.Usage()
		return errUsage
	}
	if err != nil {
		if werr := enc.EncodeError(err); werr != nil {
			return werr
		}
		return err
	}
	return enc.Encode(proj, nil)
}

// browse spawns a worker for the expression and reads browser commands
// from stdin.
func (a *app) browse(ctx context.Context, args []string) error {
	var (
		c     common
		start string
	)
	fs := newFlagSet(a, "browse", "[flags]")
	c.register(fs, true)
	fs.StringVar(&start, "start", "", "path to open first")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	expr, err := c.rootExpr()
	if err != nil {
		return err
	}
	logger, closer, err := openLog(cfg, a.stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	workerPath := cfg.WorkerPath
	if workerPath == "" {
		if workerPath, err = os.Executable(); err != nil {
			return fmt.Errorf("locating worker: %w", err)
		}
	}
	workerArgs := []string{config.WorkerSubcommand}
	if c.configPath != "" {
		workerArgs = append(workerArgs, "-config", c.configPath)
	}
	for name, v := range cfg.Args {
		workerArgs = append(workerArgs, "-arg", name+"="+v)
	}
	for name, v := range cfg.ArgStrs {
		workerArgs = append(workerArgs, "-argstr", name+"="+v)
	}

	wh, err := host.Spawn(ctx, workerPath, workerArgs, expr, logger)
	if err != nil {
		return err
	}
	defer wh.Close()

	var store *bookmarks.Store
	if err = os.MkdirAll(config.ResolveDataDir(cfg.DataDir), 0o755); err == nil {
		store, err = bookmarks.Open(ctx, cfg.DataPath(config.BookmarksDBName))
	}
	if err != nil {
		logger.Warn("bookmarks unavailable", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	b := browser.New(wh, a.stdout, browser.Options{
		Start:     host.ParseBrowserPath(start),
		Bookmarks: store,
		Prompt:    isTerminal(a.stdin),
		Logger:    logger,
	})
	return b.Run(ctx, a.stdin)
}

// bookmark manages the bookmark database without a worker.
func (a *app) bookmark(ctx context.Context, args []string) error {
	var configPath string
	fs := newFlagSet(a, "bookmark", "[flags] add <name> <path> | ls | rm <name>")
	fs.StringVar(&configPath, "config", "", "config file")
	rest, err := parse(fs, args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	path := cfg.DataPath(config.BookmarksDBName)
	if err := os.MkdirAll(config.ResolveDataDir(cfg.DataDir), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	store, err := bookmarks.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case len(rest) == 3 && rest[0] == "add":
		_, err := store.Add(ctx, rest[1], rest[2])
		return err
	case len(rest) == 2 && rest[0] == "rm":
		return store.Remove(ctx, rest[1])
	case len(rest) == 1 && rest[0] == "ls", len(rest) == 0:
		list, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, b := range list {
			fmt.Fprintf(a.stdout, "%s\t%s\n", b.Name, b.Path)
		}
		return nil
	}
	fs.Usage()
	return errUsage
}
