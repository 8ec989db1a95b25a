// Package inspector answers questions about a lazy value graph: it resolves
// dotted attribute paths against a root value, forces what the path touches
// and nothing else, calls functions with a record of default arguments and
// returns a bounded projection of the value it lands on.
//
// Every failure is returned as an *Error whose Kind tells request errors
// (EmptyPath, MalformedPath, NotAnAttrSet, MissingAttribute) from engine
// failures (EvalFailure, ApplyFailure). A Session stays usable after any of
// them.
package inspector

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bluskript/nix-inspect/internal/value"
)

// Engine turns expression text into values. *evaluator.Evaluator
// implements it.
type Engine interface {
	Heap() *value.Heap
	Parse(expr string) (value.Handle, error)
}

// Options configure a session.
type Options struct {
	// MaxAttrNames caps attribute name listings; 0 means the default.
	MaxAttrNames int
	// Args are default arguments given as expressions, evaluated lazily.
	Args map[string]string
	// ArgStrs are default arguments given as literal strings.
	ArgStrs map[string]string
	Logger  *slog.Logger
}

// Session binds one root value and its default arguments. Requests are
// served one at a time.
type Session struct {
	ID string

	mu        sync.Mutex
	heap      *value.Heap
	root      value.Handle
	forcer    *Forcer
	resolver  *Resolver
	applier   *AutoApplier
	projector *Projector
	logger    *slog.Logger
}

// NewSession parses expr, forces it to find syntax and top-level errors
// early, and builds the defaults record from opts.
func NewSession(engine Engine, expr string, opts Options) (*Session, error) {
	heap := engine.Heap()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := engine.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing root expression: %w", err)
	}

	defaults := make(map[string]value.Handle, len(opts.Args)+len(opts.ArgStrs))
	for name, src := range opts.Args {
		v, err := engine.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing argument %s: %w", name, err)
		}
		defaults[name] = v
	}
	for name, s := range opts.ArgStrs {
		defaults[name] = heap.NewString(s, value.Pos{})
	}

	s := &Session{
		ID:        uuid.NewString(),
		heap:      heap,
		forcer:    NewForcer(heap),
		projector: NewProjector(heap),
		logger:    logger,
	}
	if opts.MaxAttrNames > 0 {
		s.projector.MaxAttrNames = opts.MaxAttrNames
	}
	s.resolver = NewResolver(heap, s.forcer)
	s.applier = NewAutoApplier(heap, s.forcer, heap.NewAttrsFrom(defaults, value.Pos{}))
	s.resolver.Applier = s.applier

	if s.root, err = s.forcer.Force(root); err != nil {
		return nil, fmt.Errorf("evaluating root expression: %w", err)
	}
	s.logger.Info("session started", "session", s.ID, "defaults", len(defaults))
	return s, nil
}

// Inspect resolves path, applies a function found there and projects the
// result. On failure the projection is ErrorProjection.
func (s *Session) Inspect(path string) (Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.lookup(path)
	return s.finish("inspect", path, v, err)
}

// Root projects the root value after auto-application.
func (s *Session) Root() (Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.applier.Apply(s.root)
	return s.finish("root", "", v, err)
}

// Child projects the entry key of the container at path. An empty path
// names the root.
func (s *Session) Child(path, key string) (Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.child(path, key)
	return s.finish("child", path+" "+key, v, err)
}

func (s *Session) child(path, key string) (value.Handle, error) {
	parent, err := s.container(path)
	if err != nil {
		return 0, err
	}
	v, err := s.resolver.Child(parent, key)
	if err != nil {
		return 0, annotateChild(err, path, key)
	}
	return s.applier.Apply(v)
}

// Complete lists full paths that extend prefix by one segment. The part
// after the last dot is matched against the keys of the container before
// it, so "a.b" completes the keys of a that start with "b".
func (s *Session) Complete(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentPath, partial := "", prefix
	if i := strings.LastIndexByte(prefix, '.'); i >= 0 {
		parentPath, partial = prefix[:i], prefix[i+1:]
	}
	parent, err := s.container(parentPath)
	if err != nil {
		return nil, err
	}
	if k := s.heap.Kind(parent); k != value.KindAttrs && k != value.KindList {
		return nil, &Error{Kind: NotAnAttrSet, Path: parentPath, Segment: -1, Found: k, Pos: s.heap.Pos(parent)}
	}

	var out []string
	for _, key := range s.resolver.Keys(parent) {
		if !strings.HasPrefix(key, partial) {
			continue
		}
		seg := quoteSegment(key)
		if parentPath != "" {
			seg = parentPath + "." + seg
		}
		out = append(out, seg)
		if len(out) == s.projector.MaxAttrNames {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

// container resolves path (the root when empty) to an applied, forced value.
func (s *Session) container(path string) (value.Handle, error) {
	if strings.TrimSpace(path) == "" {
		return s.applier.Apply(s.root)
	}
	return s.lookup(path)
}

func (s *Session) lookup(path string) (value.Handle, error) {
	p, err := ParsePath(path)
	if err != nil {
		return 0, err
	}
	v, _, err := s.resolver.Resolve(s.root, p)
	if err != nil {
		return 0, err
	}
	v, err = s.applier.Apply(v)
	if err != nil {
		return 0, annotate(err, p, len(p)-1)
	}
	return v, nil
}

func (s *Session) finish(op, arg string, v value.Handle, err error) (Projection, error) {
	reqID := uuid.NewString()
	if err != nil {
		s.logger.Debug("request failed", "session", s.ID, "request", reqID, "op", op, "arg", arg,
			"kind", KindOf(err).String(), "error", err)
		return ErrorProjection, err
	}
	out := s.projector.Project(v)
	s.logger.Debug("request", "session", s.ID, "request", reqID, "op", op, "arg", arg, "type", out.Type.Name())
	return out, nil
}

func annotateChild(err error, path, key string) error {
	ie, ok := err.(*Error)
	if !ok {
		return err
	}
	ie.Path = strings.TrimSpace(path)
	if ie.Kind == MissingAttribute {
		ie.Symbol = key
	}
	return ie
}
