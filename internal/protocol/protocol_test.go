package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bluskript/nix-inspect/internal/config"
	"github.com/bluskript/nix-inspect/internal/evaluator"
	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/value"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newServer(out io.Writer) *Server {
	return &Server{
		NewSession: func(expr string) (*inspector.Session, error) {
			return inspector.NewSession(evaluator.New(value.NewHeap()), expr, inspector.Options{Logger: quiet})
		},
		Encoder: NewEncoder(out),
		Logger:  quiet,
	}
}

const root = `{ a = { b = 42; }; s = "x"; xs = [ 1 2 ]; f = 1.5; bad = 1 / 0; }`

func TestServe(t *testing.T) {
	input := strings.Join([]string{
		root,
		"a.b",
		":root",
		":child a b",
		":child xs",
		"xs",
		"f",
		"s",
		":complete a",
		"missing",
		"",
		"bad",
		":bogus",
		":quit",
		"a.b",
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := newServer(&out).Serve(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	want := []string{
		`{"type":"1","data":42}`,
		`{"type":"7","data":["a","bad","f","s","xs"]}`,
		`{"type":"1","data":42}`,
		`{"type":"8","data":2}`,
		`{"type":"8","data":2}`,
		`{"type":"2","data":1.5}`,
		`{"type":"4","data":"x"}`,
		`{"type":"7","data":["a"]}`,
	}
	if len(lines) != len(want)+4 {
		t.Fatalf("expected %d response lines, got %d:\n%s", len(want)+4, len(lines), out.String())
	}
	if diff := cmp.Diff(want, lines[:len(want)]); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}

	kinds := []string{"MissingAttribute", "EmptyPath", "EvalFailure", KindUnknownCommand}
	for i, kind := range kinds {
		line := lines[len(want)+i]
		_, err := Decode([]byte(line))
		var re *RemoteError
		if !errors.As(err, &re) {
			t.Errorf("line %q: expected a remote error, got %v", line, err)
			continue
		}
		if re.Kind != kind {
			t.Errorf("line %q: kind = %s, want %s", line, re.Kind, kind)
		}
	}
}

func TestServeErrorModes(t *testing.T) {
	testCases := []struct {
		name     string
		setup    func(*Encoder)
		request  string
		expected string
	}{
		{"sentinel", func(e *Encoder) { e.ErrorMode = config.ErrorModeSentinel }, "nope", "error\n"},
		{"named_tags", func(e *Encoder) { e.TypeTags = config.TypeTagsName }, "a", `{"type":"set","data":["b"]}` + "\n"},
		{"yaml", func(e *Encoder) { e.Format = config.FormatYAML; e.TypeTags = config.TypeTagsName }, "a.b", "---\ntype: int\ndata: 42\n"},
		{"typed_error_message", func(e *Encoder) {}, "a.c",
			`{"type":"11","data":"attribute 'c' missing in 'a'","error":{"kind":"MissingAttribute","message":"attribute 'c' missing in 'a'","pos":"«string»:1:7"}}` + "\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			s := newServer(&out)
			tc.setup(s.Encoder)
			if err := s.Serve(context.Background(), strings.NewReader(root+"\n"+tc.request+"\n")); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expected, out.String()); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServeRootFailure(t *testing.T) {
	var out bytes.Buffer
	err := newServer(&out).Serve(context.Background(), strings.NewReader("1 / 0\na\n"))
	if inspector.KindOf(err) != inspector.EvalFailure {
		t.Fatalf("expected the root failure, got %v", err)
	}
	_, derr := Decode(out.Bytes())
	var re *RemoteError
	if !errors.As(derr, &re) || re.Kind != "EvalFailure" {
		t.Errorf("expected one EvalFailure response, got %q", out.String())
	}
}

func TestServeEmptyInput(t *testing.T) {
	var out bytes.Buffer
	if err := newServer(&out).Serve(context.Background(), strings.NewReader("")); err != nil {
		t.Errorf("empty input: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestServeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := newServer(&out).Serve(ctx, strings.NewReader(root+"\na.b\n"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestServePrompt(t *testing.T) {
	var out, prompt bytes.Buffer
	s := newServer(&out)
	s.Prompt = &prompt
	if err := s.Serve(context.Background(), strings.NewReader(root+"\na.b\n")); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(prompt.String(), "> "); got != 3 {
		t.Errorf("expected 3 prompts, got %d", got)
	}
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected inspector.Projection
	}{
		{"int", `{"type":"1","data":9007199254740993}`, inspector.Projection{Type: 1, Data: int64(9007199254740993)}},
		{"float", `{"type":"2","data":0.25}`, inspector.Projection{Type: 2, Data: 0.25}},
		{"float_null", `{"type":"2","data":null}`, inspector.Projection{Type: 2}},
		{"bool", `{"type":"3","data":true}`, inspector.Projection{Type: 3, Data: true}},
		{"string", `{"type":"4","data":"hi"}`, inspector.Projection{Type: 4, Data: "hi"}},
		{"path", `{"type":"path","data":"/a"}`, inspector.Projection{Type: 5, Data: "/a"}},
		{"null", `{"type":"6","data":null}`, inspector.Projection{Type: 6}},
		{"set", `{"type":"set","data":["x","y"]}`, inspector.Projection{Type: 7, Data: []string{"x", "y"}}},
		{"list", `{"type":"8","data":3}`, inspector.Projection{Type: 8, Data: 3}},
		{"function", `{"type":"lambda","data":null}`, inspector.Projection{Type: 9}},
		{"thunk", `{"type":"0","data":null}`, inspector.Projection{Type: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.line))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("projection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte("error\n")); !errors.Is(err, ErrSentinel) {
		t.Errorf("sentinel: got %v", err)
	}

	_, err := Decode([]byte(`{"type":"11","data":"boom","error":{"kind":"EvalFailure","message":"boom","pos":"f:1:2"}}`))
	var re *RemoteError
	if !errors.As(err, &re) || re.Kind != "EvalFailure" || re.Error() != "boom at f:1:2" {
		t.Errorf("typed error: got %v", err)
	}

	_, err = Decode([]byte(`{"type":"11","data":"plain"}`))
	if !errors.As(err, &re) || re.Message != "plain" {
		t.Errorf("untyped error: got %v", err)
	}

	for _, line := range []string{`not json`, `{"type":"99","data":1}`, `{"type":"1","data":"x"}`} {
		if _, err := Decode([]byte(line)); err == nil {
			t.Errorf("%s: expected an error", line)
		}
	}
}

func TestEncodeNaN(t *testing.T) {
	h := value.NewHeap()
	p := inspector.NewProjector(h).Project(h.NewFloat(math.NaN(), value.Pos{}))
	var out bytes.Buffer
	if err := NewEncoder(&out).Encode(p, nil); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != `{"type":"2","data":null}`+"\n" {
		t.Errorf("got %q", got)
	}
}
