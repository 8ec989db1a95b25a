// Package host drives a worker process from the browsing side: it sends the
// root expression, turns path requests into protocol lines and reports each
// path as Loading, then Ready or Failed.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/bluskript/nix-inspect/internal/protocol"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("worker host closed")

// killGrace is how long Close lets a spawned worker exit on end of input
// before killing it.
const killGrace = 3 * time.Second

// Result pairs a path with its latest state.
type Result struct {
	Path BrowserPath
	Data PathData
}

// WorkerHost owns the connection to one worker.
type WorkerHost struct {
	requests chan BrowserPath
	results  chan Result
	quit     chan struct{}
	done     chan struct{}

	stdin  io.WriteCloser
	stdout *bufio.Reader
	rawOut io.Reader
	wait   func() error
	kill   func() error
	logger *slog.Logger

	closeOnce sync.Once
}

// Spawn starts `<worker> <args...>` and connects to it.
func Spawn(ctx context.Context, worker string, args []string, expr string, logger *slog.Logger) (*WorkerHost, error) {
	cmd := exec.CommandContext(ctx, worker, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawning worker %s: %w", worker, err)
	}
	h := Connect(expr, stdin, stdout, logger)
	h.wait = cmd.Wait
	h.kill = cmd.Process.Kill
	return h, nil
}

// Connect runs the host over an existing pipe pair.
func Connect(expr string, stdin io.WriteCloser, stdout io.Reader, logger *slog.Logger) *WorkerHost {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WorkerHost{
		requests: make(chan BrowserPath),
		results:  make(chan Result, 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		stdin:    stdin,
		stdout:   bufio.NewReader(stdout),
		rawOut:   stdout,
		logger:   logger,
	}
	go h.run(expr)
	return h
}

// Results delivers every state change. It is closed when the host stops.
func (h *WorkerHost) Results() <-chan Result { return h.results }

// Request queues a path.
func (h *WorkerHost) Request(ctx context.Context, path BrowserPath) error {
	select {
	case h.requests <- path:
		return nil
	case <-h.quit:
		return ErrClosed
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch requests path and waits for its final state. It must not be mixed
// with another consumer of Results.
func (h *WorkerHost) Fetch(ctx context.Context, path BrowserPath) (PathData, error) {
	if err := h.Request(ctx, path); err != nil {
		return PathData{}, err
	}
	for {
		select {
		case r, ok := <-h.results:
			if !ok {
				return PathData{}, ErrClosed
			}
			if r.Path.Equal(path) && r.Data.State != Loading {
				return r.Data, nil
			}
		case <-ctx.Done():
			return PathData{}, ctx.Err()
		}
	}
}

// Close stops the worker by closing both pipes, abandoning a request in
// flight. A spawned worker that does not exit on end of input within
// killGrace is killed.
func (h *WorkerHost) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.quit)
		h.stdin.Close()
		if c, ok := h.rawOut.(io.Closer); ok {
			c.Close()
		}
		<-h.done
		if h.wait != nil {
			err = h.reap()
		}
	})
	return err
}

func (h *WorkerHost) reap() error {
	exited := make(chan error, 1)
	go func() { exited <- h.wait() }()
	select {
	case err := <-exited:
		return err
	case <-time.After(killGrace):
	}
	h.logger.Warn("worker did not exit, killing it")
	if err := h.kill(); err != nil {
		return fmt.Errorf("killing worker: %w", err)
	}
	<-exited
	return nil
}

func (h *WorkerHost) run(expr string) {
	defer close(h.done)
	defer close(h.results)
	defer h.stdin.Close()

	_, exprErr := fmt.Fprintln(h.stdin, expr)
	if exprErr != nil {
		h.logger.Error("failed to send expression", "error", exprErr)
	}

	for {
		var path BrowserPath
		select {
		case path = <-h.requests:
		case <-h.quit:
			return
		}
		if exprErr != nil {
			h.emit(path, failed(fmt.Errorf("sending expression: %w", exprErr)))
			continue
		}
		h.serve(path)
	}
}

// emit delivers a result unless the host is closing.
func (h *WorkerHost) emit(path BrowserPath, d PathData) bool {
	select {
	case h.results <- Result{Path: path, Data: d}:
		return true
	case <-h.quit:
		return false
	}
}

func (h *WorkerHost) serve(path BrowserPath) {
	h.logger.Info("request", "path", path.Expr())
	if !h.emit(path, PathData{State: Loading}) {
		return
	}

	if _, err := fmt.Fprintln(h.stdin, path.request()); err != nil {
		h.logger.Error("failed to send path", "path", path.Expr(), "error", err)
		h.emit(path, failed(fmt.Errorf("sending path: %w", err)))
		return
	}

	line, err := h.stdout.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		h.logger.Error("failed to read response", "error", err)
		h.emit(path, failed(fmt.Errorf("reading response: %w", err)))
		return
	}

	proj, err := protocol.Decode(line)
	if err != nil {
		var remote *protocol.RemoteError
		if !errors.As(err, &remote) {
			h.logger.Error("failed to decode response", "response", string(line), "error", err)
		}
		h.emit(path, failed(err))
		return
	}
	h.emit(path, FromProjection(proj))
}
