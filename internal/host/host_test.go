package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bluskript/nix-inspect/internal/evaluator"
	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/protocol"
	"github.com/bluskript/nix-inspect/internal/value"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// startHost runs an in-process worker behind a pipe pair.
func startHost(t *testing.T, expr string) *WorkerHost {
	t.Helper()
	reqR, reqW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	srv := &protocol.Server{
		NewSession: func(expr string) (*inspector.Session, error) {
			return inspector.NewSession(evaluator.New(value.NewHeap()), expr, inspector.Options{Logger: quiet})
		},
		Encoder: protocol.NewEncoder(respW),
		Logger:  quiet,
	}
	go func() {
		srv.Serve(context.Background(), reqR)
		reqR.Close()
		respW.Close()
	}()
	h := Connect(expr, reqW, respR, quiet)
	t.Cleanup(func() {
		h.Close()
		respR.Close()
	})
	return h
}

func fetch(t *testing.T, h *WorkerHost, path BrowserPath) PathData {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d, err := h.Fetch(ctx, path)
	if err != nil {
		t.Fatalf("Fetch(%v): %v", path, err)
	}
	return d
}

func TestBrowserPath(t *testing.T) {
	p := ParseBrowserPath("a.b.c")
	if diff := cmp.Diff(BrowserPath{"a", "b", "c"}, p); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
	parent, ok := p.Parent()
	if !ok || parent.Expr() != "a.b" {
		t.Errorf("parent = %v %v", parent, ok)
	}
	if _, ok := (BrowserPath{"a"}).Parent(); ok {
		t.Error("a top-level path has no parent path")
	}
	if got := p.Child("d.e").Expr(); got != `a.b.c."d.e"` {
		t.Errorf("child expr = %s", got)
	}
	if got := (BrowserPath{"x"}).Extend(BrowserPath{"y", "z"}); !got.Equal(BrowserPath{"x", "y", "z"}) {
		t.Errorf("extend = %v", got)
	}
	if p.Last() != "c" || (BrowserPath{}).Last() != "" {
		t.Errorf("unexpected Last")
	}
	if got := ParseBrowserPath(`a."b.c"`); !got.Equal(BrowserPath{"a", "b.c"}) {
		t.Errorf("quoted parse = %v", got)
	}
	if got := ParseBrowserPath("  "); len(got) != 0 {
		t.Errorf("blank parse = %v", got)
	}
	if (BrowserPath{}).request() != ":root" {
		t.Error("the empty path should ask for the root")
	}

	// Child must not alias the parent's backing array.
	base := make(BrowserPath, 1, 4)
	base[0] = "r"
	c1, c2 := base.Child("x"), base.Child("y")
	if c1.Last() != "x" || c2.Last() != "y" {
		t.Errorf("children alias each other: %v %v", c1, c2)
	}
}

func TestFromProjection(t *testing.T) {
	testCases := []struct {
		name     string
		proj     inspector.Projection
		children []string
		display  string
		typeName string
	}{
		{"set", inspector.Projection{Type: 7, Data: []string{"a", "b"}}, []string{"a", "b"}, "{ 2 attributes }", "Set"},
		{"list", inspector.Projection{Type: 8, Data: 3}, []string{"0", "1", "2"}, "[ 3 elements ]", "List"},
		{"empty_list", inspector.Projection{Type: 8, Data: 0}, []string{}, "[ 0 elements ]", "List"},
		{"int", inspector.Projection{Type: 1, Data: int64(4)}, nil, "4", "Int"},
		{"string", inspector.Projection{Type: 4, Data: "a\"b"}, nil, `"a\"b"`, "String"},
		{"path", inspector.Projection{Type: 5, Data: "/nix"}, nil, "/nix", "Path"},
		{"null", inspector.Projection{Type: 6}, nil, "null", "Null"},
		{"function", inspector.Projection{Type: 9}, nil, "<lambda>", "Function"},
		{"nan", inspector.Projection{Type: 2}, nil, "nan", "Float"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := FromProjection(tc.proj)
			if diff := cmp.Diff(tc.children, d.Children); diff != "" {
				t.Errorf("children mismatch (-want +got):\n%s", diff)
			}
			if d.String() != tc.display {
				t.Errorf("display = %q, want %q", d.String(), tc.display)
			}
			if d.TypeName() != tc.typeName {
				t.Errorf("type = %q, want %q", d.TypeName(), tc.typeName)
			}
		})
	}

	d := FromProjection(inspector.Projection{Type: 7, Data: []string{"a", "b"}})
	d.Cursor = 1
	sel, ok := d.Selected(BrowserPath{"root"})
	if !ok || !sel.Equal(BrowserPath{"root", "b"}) {
		t.Errorf("selected = %v %v", sel, ok)
	}
	d.Cursor = 5
	if _, ok := d.Selected(nil); ok {
		t.Error("out of range cursor selected something")
	}
}

func TestWorkerHostFetch(t *testing.T) {
	h := startHost(t, `{ pkgs = { hello = "2.12"; }; xs = [ 1 2 3 ]; bad = throw "nope"; }`)

	root := fetch(t, h, BrowserPath{})
	if diff := cmp.Diff([]string{"bad", "pkgs", "xs"}, root.Children); diff != "" {
		t.Errorf("root mismatch (-want +got):\n%s", diff)
	}

	hello := fetch(t, h, BrowserPath{"pkgs", "hello"})
	if hello.State != Ready || hello.String() != `"2.12"` {
		t.Errorf("hello = %+v", hello)
	}

	xs := fetch(t, h, BrowserPath{"xs"})
	if diff := cmp.Diff([]string{"0", "1", "2"}, xs.Children); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	bad := fetch(t, h, BrowserPath{"bad"})
	var remote *protocol.RemoteError
	if bad.State != Failed || !errors.As(bad.Err, &remote) || remote.Kind != "EvalFailure" {
		t.Errorf("bad = %+v", bad)
	}
	if !strings.Contains(bad.String(), "nope") {
		t.Errorf("error display lost the message: %s", bad.String())
	}

	// The worker keeps serving after a failure.
	if again := fetch(t, h, BrowserPath{"xs", "2"}); again.String() != "3" {
		t.Errorf("xs.2 = %+v", again)
	}
}

func TestWorkerHostLoadingState(t *testing.T) {
	h := startHost(t, "{ a = 1; }")
	if err := h.Request(context.Background(), BrowserPath{"a"}); err != nil {
		t.Fatal(err)
	}
	var states []State
	for r := range h.Results() {
		states = append(states, r.Data.State)
		if r.Data.State != Loading {
			break
		}
	}
	if diff := cmp.Diff([]State{Loading, Ready}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkerHostRootFailure(t *testing.T) {
	h := startHost(t, "1 / 0")
	d := fetch(t, h, BrowserPath{"a"})
	if d.State != Failed {
		t.Fatalf("expected a failed path, got %+v", d)
	}
	// The worker is gone; later requests fail instead of hanging.
	if d := fetch(t, h, BrowserPath{"b"}); d.State != Failed {
		t.Errorf("expected a failed path after the worker exited, got %+v", d)
	}
}

func TestWorkerHostClose(t *testing.T) {
	h := startHost(t, "{ }")
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := h.Request(context.Background(), BrowserPath{"a"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Request after Close: %v", err)
	}
	if _, err := h.Fetch(context.Background(), BrowserPath{"a"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch after Close: %v", err)
	}
}

// closeWithin fails the test when Close does not return in time.
func closeWithin(t *testing.T, h *WorkerHost, d time.Duration) {
	t.Helper()
	closed := make(chan error, 1)
	go func() { closed <- h.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(d):
		t.Fatalf("Close still blocked after %v", d)
	}
}

func TestWorkerHostCloseStalledWorker(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	defer respW.Close()
	// Reads every request and never answers.
	go io.Copy(io.Discard, reqR)

	h := Connect("{ a = 1; }", reqW, respR, quiet)
	if err := h.Request(context.Background(), BrowserPath{"a"}); err != nil {
		t.Fatal(err)
	}
	closeWithin(t, h, 5*time.Second)
}

func TestWorkerHostCloseWithUnreadResults(t *testing.T) {
	h := startHost(t, "{ a = 1; }")
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := h.Request(ctx, BrowserPath{"a"})
		cancel()
		if err != nil {
			break
		}
	}
	closeWithin(t, h, 5*time.Second)
}
