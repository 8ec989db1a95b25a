package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bluskript/nix-inspect/internal/evaluator"
	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/value"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func startServer(t *testing.T, expr string) *Client {
	t.Helper()
	sess, err := inspector.NewSession(evaluator.New(value.NewHeap()), expr, inspector.Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(sess, quiet)
	if err != nil {
		t.Fatal(err)
	}

	lis := bufconn.Listen(1 << 20)
	g := grpc.NewServer()
	srv.Register(g)
	go g.Serve(lis)
	t.Cleanup(g.Stop)

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestServiceDescriptor(t *testing.T) {
	sd, err := Service()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range sd.GetMethods() {
		names = append(names, m.GetName())
	}
	if diff := cmp.Diff([]string{"Inspect", "Root", "Child", "Complete"}, names); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}
}

func TestInspect(t *testing.T) {
	c := startServer(t, `{ n = 42; f = 1.5; b = true; s = "hi"; p = /tmp/x; z = null; xs = [ 1 2 ]; set = { b = 1; a = 2; }; fn = { }: x: x; }`)

	testCases := []struct {
		path     string
		expected inspector.Projection
	}{
		{"n", inspector.Projection{Type: inspector.Tag(value.KindInt), Data: int64(42)}},
		{"f", inspector.Projection{Type: inspector.Tag(value.KindFloat), Data: 1.5}},
		{"b", inspector.Projection{Type: inspector.Tag(value.KindBool), Data: true}},
		{"s", inspector.Projection{Type: inspector.Tag(value.KindString), Data: "hi"}},
		{"p", inspector.Projection{Type: inspector.Tag(value.KindPath), Data: "/tmp/x"}},
		{"z", inspector.Projection{Type: inspector.Tag(value.KindNull)}},
		{"xs", inspector.Projection{Type: inspector.Tag(value.KindList), Data: 2}},
		{"set", inspector.Projection{Type: inspector.Tag(value.KindAttrs), Data: []string{"a", "b"}}},
		{"fn", inspector.Projection{Type: inspector.Tag(value.KindFunction)}},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := c.Inspect(ctx(t), tc.path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("projection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRootChildComplete(t *testing.T) {
	c := startServer(t, `{ pkgs = { hello = 1; help = 2; world = 3; }; }`)

	root, err := c.Root(ctx(t))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"pkgs"}, root.Data); diff != "" {
		t.Errorf("root mismatch (-want +got):\n%s", diff)
	}

	child, err := c.Child(ctx(t), "pkgs", "world")
	if err != nil || child.Data != int64(3) {
		t.Errorf("child = %+v %v", child, err)
	}

	paths, err := c.Complete(ctx(t), "pkgs.hel")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"pkgs.hello", "pkgs.help"}, paths); diff != "" {
		t.Errorf("completion mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	c := startServer(t, `{ a = { b = 1; }; bad = throw "boom"; n = 3; }`)

	testCases := []struct {
		path string
		code codes.Code
		kind string
	}{
		{"", codes.InvalidArgument, "EmptyPath"},
		{"a..b", codes.InvalidArgument, "MalformedPath"},
		{"n.x", codes.InvalidArgument, "NotAnAttrSet"},
		{"a.c", codes.NotFound, "MissingAttribute"},
		{"bad", codes.Aborted, "EvalFailure"},
	}

	for _, tc := range testCases {
		t.Run(tc.kind, func(t *testing.T) {
			_, err := c.Inspect(ctx(t), tc.path)
			var re *RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("expected a RemoteError, got %v", err)
			}
			if re.Code != tc.code || re.Kind != tc.kind {
				t.Errorf("got %s/%s, want %s/%s", re.Code, re.Kind, tc.code, tc.kind)
			}
		})
	}

	// The session keeps serving after failures.
	if p, err := c.Inspect(ctx(t), "a.b"); err != nil || p.Data != int64(1) {
		t.Errorf("a.b = %+v %v", p, err)
	}
}

func TestParseTag(t *testing.T) {
	if tag, err := parseTag("7"); err != nil || tag != inspector.Tag(value.KindAttrs) {
		t.Errorf("parseTag(7) = %v %v", tag, err)
	}
	for _, s := range []string{"", "x", "-1", "12", "7a"} {
		if _, err := parseTag(s); err == nil {
			t.Errorf("parseTag(%q) succeeded", s)
		}
	}
}
