package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bluskript/nix-inspect/internal/inspector"
)

const maxLine = 1 << 20

// SessionFunc builds the session for the root expression line.
type SessionFunc func(expr string) (*inspector.Session, error)

// Server runs the request loop of one worker.
type Server struct {
	NewSession SessionFunc
	Encoder    *Encoder
	Logger     *slog.Logger

	// Prompt, when set, receives "> " before each read. Used when a person
	// types at the worker directly.
	Prompt io.Writer
}

// Serve reads the root expression and then answers requests until r is
// exhausted, ":quit" is read or ctx is done. A root expression that fails
// to evaluate is reported as one error response and returned.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	s.prompt()
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("reading root expression: %w", err)
		}
		return nil
	}
	sess, err := s.NewSession(sc.Text())
	if err != nil {
		logger.Error("root expression failed", "error", err)
		if werr := s.Encoder.EncodeError(err); werr != nil {
			return werr
		}
		return err
	}
	logger.Info("worker ready", "session", sess.ID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.prompt()
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return fmt.Errorf("reading request: %w", err)
			}
			return nil
		}
		quit, err := s.handle(sess, sc.Text())
		if err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *Server) prompt() {
	if s.Prompt != nil {
		io.WriteString(s.Prompt, "> ")
	}
}

// handle answers one line. The returned error is a write failure; request
// failures are part of the response.
func (s *Server) handle(sess *inspector.Session, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return false, s.Encoder.Encode(sess.Inspect(line))
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "root":
		return false, s.Encoder.Encode(sess.Root())
	case "child":
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return false, s.Encoder.EncodeError(&protocolError{kind: KindUnknownCommand, msg: "usage: :child [path] key"})
		}
		path := strings.Join(fields[:len(fields)-1], " ")
		return false, s.Encoder.Encode(sess.Child(path, fields[len(fields)-1]))
	case "complete":
		names, err := sess.Complete(rest)
		if err != nil {
			return false, s.Encoder.EncodeError(err)
		}
		return false, s.Encoder.EncodeNames(names)
	case "quit", "q":
		return true, nil
	}
	return false, s.Encoder.EncodeError(&protocolError{kind: KindUnknownCommand, msg: fmt.Sprintf("unknown command %q", ":"+cmd)})
}
