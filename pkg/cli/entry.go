// Package cli implements the nix-inspect command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluskript/nix-inspect/internal/config"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// app carries the process streams so commands can be run from tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"worker", "answer line protocol requests on stdin", (*app).worker},
	{"eval", "inspect paths of an expression and print one response per path", (*app).eval},
	{"serve", "serve an expression over gRPC", (*app).serve},
	{"query", "query a gRPC server", (*app).query},
	{"browse", "browse an expression interactively", (*app).browse},
	{"bookmark", "manage bookmarks (add, ls, rm)", (*app).bookmark},
	{"version", "print the version", (*app).version},
}

// errUsage marks an error already explained by printed usage.
var errUsage = errors.New("usage")

// Run executes the command line args (without the program name) and returns
// the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(stderr, "Internal error: %v\n", r)
			code = exitError
		}
	}()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) == 0 {
		a.usage()
		return exitUsage
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		a.usage()
		return exitOK
	case "-v", "-version", "--version":
		args[0] = "version"
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := c.run(a, ctx, args[1:])
		switch {
		case err == nil, errors.Is(err, flag.ErrHelp):
			return exitOK
		case errors.Is(err, errUsage):
			return exitUsage
		case errors.Is(err, context.Canceled):
			return exitOK
		}
		fmt.Fprintf(stderr, "nix-inspect %s: %v\n", c.name, err)
		return exitError
	}

	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	a.usage()
	return exitUsage
}

func (a *app) usage() {
	fmt.Fprintf(a.stderr, "nix-inspect %s\n\nUsage: nix-inspect <command> [flags]\n\nCommands:\n", config.Version)
	for _, c := range commands {
		fmt.Fprintf(a.stderr, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(a.stderr, "\nRun 'nix-inspect <command> -h' for command flags.")
}

func (a *app) version(_ context.Context, _ []string) error {
	fmt.Fprintln(a.stdout, "nix-inspect "+config.Version)
	return nil
}
