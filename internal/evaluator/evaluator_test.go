package evaluator

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/value"
)

// render forces v completely and prints it in a compact Nix-like syntax.
func render(t *testing.T, h *value.Heap, v value.Handle) string {
	t.Helper()
	v, err := h.Force(v)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	n := h.Node(v)
	switch n.Kind {
	case value.KindInt:
		return strconv.FormatInt(n.Int, 10)
	case value.KindFloat:
		return strconv.FormatFloat(n.Float, 'g', -1, 64)
	case value.KindBool:
		return strconv.FormatBool(n.Bool)
	case value.KindString:
		return strconv.Quote(n.Str)
	case value.KindPath:
		return n.Str
	case value.KindNull:
		return "null"
	case value.KindList:
		parts := []string{"["}
		for _, el := range n.List {
			parts = append(parts, render(t, h, el))
		}
		return strings.Join(append(parts, "]"), " ")
	case value.KindAttrs:
		parts := []string{"{"}
		for _, a := range n.Attrs.Attrs() {
			parts = append(parts, h.Symbols.Name(a.Name)+" = "+render(t, h, a.Value)+";")
		}
		return strings.Join(append(parts, "}"), " ")
	case value.KindFunction:
		return "<lambda>"
	}
	return "<" + n.Kind.String() + ">"
}

func evalString(t *testing.T, src string) (*Evaluator, value.Handle, error) {
	t.Helper()
	e := New(value.NewHeap())
	root, err := e.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	v, err := e.heap.Force(root)
	return e, v, err
}

func TestEval(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"arithmetic", "1 + 2 * 3", "7"},
		{"integer_division", "7 / 2", "3"},
		{"float_mix", "1 + 0.5", "1.5"},
		{"let", "let a = 1; b = a + 1; in b", "2"},
		{"rec", "rec { a = 1; b = a; }.b", "1"},
		{"rec_shadows_outer", "let a = 1; in rec { a = 2; b = a; }.b", "2"},
		{"nested_paths_merge", "{ a.b = 1; a.c = 2; }", "{ a = { b = 1; c = 2; }; }"},
		{"lambda", "(x: x + 1) 2", "3"},
		{"formals_default_sees_formals", "({ a, b ? a * 2 }: a + b) { a = 3; }", "9"},
		{"at_pattern", "(args@{ a, ... }: args.b) { a = 1; b = 5; }", "5"},
		{"with", "with { x = 4; }; x", "4"},
		{"lexical_beats_with", "let x = 1; in with { x = 2; }; x", "1"},
		{"interpolation", `"a${"b"}c"`, `"abc"`},
		{"concat", "[ 1 2 ] ++ [ 3 ]", "[ 1 2 3 ]"},
		{"update", "{ a = 1; } // { b = 2; a = 3; }", "{ a = 3; b = 2; }"},
		{"has_attr", "{ a = 1; } ? a", "true"},
		{"select_or", "{ a = 1; }.b or 7", "7"},
		{"quoted_attr", `{ "x y" = 1; }."x y"`, "1"},
		{"inherit", "let x = 5; in { inherit x; }", "{ x = 5; }"},
		{"inherit_from", "let inherit (builtins) head; in head [ 5 ]", "5"},
		{"length", "builtins.length [ 1 2 3 ]", "3"},
		{"attr_names_sorted", "builtins.attrNames { b = 1; a = 2; }", `[ "a" "b" ]`},
		{"map", "map (x: x * 2) [ 1 2 ]", "[ 2 4 ]"},
		{"filter", "builtins.filter (x: x > 1) [ 1 2 3 ]", "[ 2 3 ]"},
		{"foldl", "builtins.foldl' (a: b: a + b) 0 [ 1 2 3 ]", "6"},
		{"gen_list", "builtins.genList (x: x) 3", "[ 0 1 2 ]"},
		{"type_of", "builtins.typeOf { }", `"set"`},
		{"to_string", "toString 5", `"5"`},
		{"to_string_list", `toString [ 1 "a" true ]`, `"1 a 1"`},
		{"if", `if 1 < 2 then "y" else "n"`, `"y"`},
		{"list_equality", "[ 1 2 ] == [ 1 2 ]", "true"},
		{"int_float_equality", "1 == 1.0", "true"},
		{"set_equality", "{ a = 1; } != { a = 2; }", "true"},
		{"list_to_attrs", `builtins.listToAttrs [ { name = "a"; value = 1; } ]`, "{ a = 1; }"},
		{"remove_attrs", `removeAttrs { a = 1; b = 2; } [ "a" ]`, "{ b = 2; }"},
		{"lazy_list_elements", `builtins.length [ (throw "x") ]`, "1"},
		{"lazy_attr_values", `builtins.attrNames { a = throw "x"; }`, `[ "a" ]`},
		{"short_circuit", `false && throw "x"`, "false"},
		{"implication", "false -> x", "true"},
		{"seq", "builtins.seq 1 2", "2"},
		{"partial_builtin", "let add1 = builtins.add 1; in add1 2", "3"},
		{"comments", "/* c */ 1 # trailing", "1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, v, err := evalString(t, tc.input)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got := render(t, e.heap, v); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		message string
	}{
		{"division_by_zero", "1 / 0", "division by zero"},
		{"infinite_recursion", "let x = x; in x", "infinite recursion encountered"},
		{"assertion", "assert 1 == 2; 3", "assertion '(1 == 2)' failed"},
		{"throw", `throw "boom"`, "boom"},
		{"abort", `abort "no"`, "evaluation aborted with the following error message: 'no'"},
		{"undefined_variable", "undefinedVar", "undefined variable 'undefinedVar'"},
		{"missing_attribute", "{ a = 1; }.b", "attribute 'b' missing"},
		{"unexpected_argument", "({ a }: a) { a = 1; b = 2; }", "unexpected argument 'b'"},
		{"missing_argument", "({ a }: a) { }", "without required argument 'a'"},
		{"type_error", `1 + "a"`, "cannot apply '+' to a string"},
		{"duplicate_attribute", "{ a = 1; a = 2; }", "attribute 'a' already defined"},
		{"not_a_function", "1 2", "not a function"},
		{"head_empty", "builtins.head [ ]", "called on an empty list"},
		{"if_non_bool", "if 1 then 2 else 3", "while a Boolean was expected"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := evalString(t, tc.input)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.message)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("expected error containing %q, got %q", tc.message, err.Error())
			}
			var ve *value.Error
			if !errors.As(err, &ve) {
				t.Errorf("expected *value.Error, got %T", err)
			}
		})
	}
}

func TestErrorCarriesPosition(t *testing.T) {
	_, _, err := evalString(t, "let\n  x = 1 / 0;\nin x")
	var ve *value.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *value.Error, got %v", err)
	}
	if ve.Pos.Line != 2 {
		t.Errorf("expected error on line 2, got %v", ve.Pos)
	}

	_, _, err = evalString(t, `let f = x: throw "bad"; in f 1`)
	if !errors.As(err, &ve) || !ve.Pos.Valid() {
		t.Errorf("builtin error did not get the call position: %v", err)
	}
}

func TestRecursionDepthLimit(t *testing.T) {
	e := New(value.NewHeap())
	e.heap.MaxDepth = 500
	root, err := e.Parse("let f = x: f x; in f 1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.heap.Force(root)
	if err == nil || !strings.Contains(err.Error(), "max-eval-depth") {
		t.Fatalf("expected depth error, got %v", err)
	}
	if e.heap.Depth() != 0 {
		t.Errorf("depth leaked: %d", e.heap.Depth())
	}
}

func TestParseError(t *testing.T) {
	e := New(value.NewHeap())
	_, err := e.Parse("{ a = ; }")
	var d *diagnostics.DiagnosticError
	if !errors.As(err, &d) {
		t.Fatalf("expected a diagnostic, got %v", err)
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "other.nix"), []byte("41 + 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "default.nix")
	if err := os.WriteFile(main, []byte("{ p = ./other.nix; v = import ./other.nix; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := New(value.NewHeap())
	root, err := e.ParseFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := render(t, e.heap, root)
	want := "{ p = " + filepath.Join(dir, "other.nix") + "; v = 42; }"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestFormalsInterface(t *testing.T) {
	e, v, err := evalString(t, "{ b, a ? 1, ... }: a")
	if err != nil {
		t.Fatal(err)
	}
	p, ok := e.heap.Node(v).Fn.(value.Parameterized)
	if !ok {
		t.Fatal("formals function does not expose its formals")
	}
	names, ellipsis := p.Formals()
	if len(names) != 2 || e.heap.Symbols.Name(names[0]) != "b" || !ellipsis {
		t.Errorf("unexpected formals %v %v", names, ellipsis)
	}

	e, v, err = evalString(t, "x: x")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.heap.Node(v).Fn.(value.Parameterized); ok {
		t.Error("plain lambda claims to destructure its argument")
	}
}
