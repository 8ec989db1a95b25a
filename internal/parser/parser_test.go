package parser_test

import (
	"strings"
	"testing"

	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/lexer"
	"github.com/bluskript/nix-inspect/internal/parser"
	"github.com/bluskript/nix-inspect/internal/pipeline"
)

func parse(input string) *pipeline.PipelineContext {
	ctx := &pipeline.PipelineContext{SourceCode: input}
	return pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"precedence", "1 + 2 * 3", "(1 + (2 * 3))"},
		{"application_left_assoc", "f x y", "((f x) y)"},
		{"select_default", "a.b.c or 1", "(a.b.c or 1)"},
		{"curried_lambda", "x: y: x", "(x: (y: x))"},
		{"formals", "{ a, b ? 2, ... }: a", "({ a, b ? 2, ... }: a)"},
		{"formals_at", "args@{ a }: a", "(args@{ a }: a)"},
		{"formals_at_suffix", "{ a }@args: a", "(args@{ a }: a)"},
		{"empty_formals", "{ }: 1", "({ }: 1)"},
		{"attrset", "{ a = 1; b.c = 2; }", "{ a = 1; b.c = 2; }"},
		{"empty_attrset", "{ }", "{ }"},
		{"rec_inherit", "rec { inherit (x) y; z = y; }", "rec { inherit (x) y; z = y; }"},
		{"let", "let a = 1; in a", "let a = 1; in a"},
		{"concat_right_assoc", "a ++ b ++ c", "(a ++ (b ++ c))"},
		{"update_right_assoc", "a // b // c", "(a // (b // c))"},
		{"impl_right_assoc", "a -> b -> c", "(a -> (b -> c))"},
		{"not_and", "!a && b", "((!a) && b)"},
		{"negate_application", "-f x", "(-(f x))"},
		{"hasattr_after_application", "f x ? a", "((f x) ? a)"},
		{"list_elements", "[ f x (g y) ]", "[ f x (g y) ]"},
		{"if", "if a then b else c", "if a then b else c"},
		{"interpolation", `"a${b}c"`, `"a${b}c"`},
		{"path_argument", "import ./foo.nix", "(import ./foo.nix)"},
		{"division", "10 / 2", "(10 / 2)"},
		{"quoted_attr", `x."quoted name"`, `x."quoted name"`},
		{"with", "with a; b", "with a; b"},
		{"assert", "assert a; b", "assert a; b"},
		{"comments", "# lead\n1 /* mid */ + 2", "(1 + 2)"},
		{"select_on_attrset", "{ a = 1; }.a", "{ a = 1; }.a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := parse(tc.input)
			if len(ctx.Errors) > 0 {
				t.Fatalf("unexpected errors: %v", diagnostics.Join(ctx.Errors))
			}
			if got := ctx.AstRoot.String(); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		code  diagnostics.ErrorCode
	}{
		{"missing_semicolon", "{ a = 1 }", diagnostics.ErrP001},
		{"trailing_input", "1 )", diagnostics.ErrP005},
		{"unclosed_paren", "(1", diagnostics.ErrP001},
		{"no_prefix", ")", diagnostics.ErrP002},
		{"duplicate_formal", "{ a, a }: 1", diagnostics.ErrP004},
		{"ellipsis_not_last", "{ ..., a }: 1", diagnostics.ErrP004},
		{"dynamic_attr", `{ "${x}" = 1; }`, diagnostics.ErrP003},
		{"illegal_char", "1 $ 2", diagnostics.ErrL001},
		{"unterminated_string", `"abc`, diagnostics.ErrL001},
		{"too_deep", strings.Repeat("(", 2000) + "1" + strings.Repeat(")", 2000), diagnostics.ErrP006},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := parse(tc.input)
			if len(ctx.Errors) == 0 {
				t.Fatalf("expected error %s, got none (ast %v)", tc.code, ctx.AstRoot)
			}
			if ctx.Errors[0].Code != tc.code {
				t.Errorf("expected code %s, got %s: %v", tc.code, ctx.Errors[0].Code, ctx.Errors[0])
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	ctx := parse("{\n  a = 1\n}")
	if len(ctx.Errors) == 0 {
		t.Fatal("expected an error")
	}
	err := ctx.Errors[0]
	if err.Token.Line != 3 || err.Token.Column != 1 {
		t.Errorf("expected error at 3:1, got %d:%d", err.Token.Line, err.Token.Column)
	}
	if !strings.HasPrefix(err.Error(), "<expr>:3:1:") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
