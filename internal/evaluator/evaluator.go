// Package evaluator is a lazy evaluator for the Nix expression subset the
// inspector works on. Every value lives in a value.Heap; unevaluated
// expressions become thunk nodes that the heap forces on demand.
package evaluator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/lexer"
	"github.com/bluskript/nix-inspect/internal/parser"
	"github.com/bluskript/nix-inspect/internal/pipeline"
	"github.com/bluskript/nix-inspect/internal/value"
)

type Evaluator struct {
	heap *value.Heap

	// BaseDir anchors relative path literals in expressions that do not come
	// from a file.
	BaseDir string
	Logger  *slog.Logger

	root    map[value.Symbol]value.Handle
	imports map[string]value.Handle
}

func New(heap *value.Heap) *Evaluator {
	e := &Evaluator{
		heap:    heap,
		Logger:  slog.Default(),
		imports: make(map[string]value.Handle),
	}
	if wd, err := os.Getwd(); err == nil {
		e.BaseDir = wd
	}
	e.root = e.newBaseScope()
	return e
}

// Heap returns the heap all values of this evaluator live in.
func (e *Evaluator) Heap() *value.Heap { return e.heap }

// Parse parses src and returns an unevaluated thunk for it. Syntax errors
// are returned as diagnostics.
func (e *Evaluator) Parse(src string) (value.Handle, error) {
	return e.parse(src, "")
}

// ParseFile reads and parses a file. A directory means its default.nix.
func (e *Evaluator) ParseFile(path string) (value.Handle, error) {
	path, err := resolveImportPath(path)
	if err != nil {
		return 0, err
	}
	if v, ok := e.imports[path]; ok {
		return v, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := e.parse(string(src), path)
	if err != nil {
		return 0, err
	}
	e.imports[path] = v
	return v, nil
}

func (e *Evaluator) parse(src, file string) (value.Handle, error) {
	ctx := &pipeline.PipelineContext{SourceCode: src, FilePath: file}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if len(ctx.Errors) > 0 {
		for _, d := range ctx.Errors {
			d.File = file
		}
		return 0, diagnostics.Join(ctx.Errors)
	}
	env := e.newRootEnvironment(file)
	return e.heap.NewThunk(&thunk{e: e, node: ctx.AstRoot, env: env}, e.pos(env, ctx.AstRoot)), nil
}

func resolveImportPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		abs = filepath.Join(abs, "default.nix")
	}
	return abs, nil
}

func (e *Evaluator) newRootEnvironment(file string) *Environment {
	env := NewEnvironment(file)
	for k, v := range e.root {
		env.Set(k, v)
	}
	return env
}

// thunk is the suspension of an expression in its environment.
type thunk struct {
	e    *Evaluator
	node ast.Expression
	env  *Environment
}

func (t *thunk) Resume() (value.Handle, error) { return t.e.Eval(t.node, t.env) }

// delay returns a handle for node without evaluating it. Literals are
// allocated directly; variables bound lexically are shared.
func (e *Evaluator) delay(node ast.Expression, env *Environment) value.Handle {
	switch n := node.(type) {
	case *ast.IntegerLiteral:
		return e.heap.NewInt(n.Value, e.pos(env, n))
	case *ast.FloatLiteral:
		return e.heap.NewFloat(n.Value, e.pos(env, n))
	case *ast.StringLiteral:
		return e.heap.NewString(n.Value, e.pos(env, n))
	case *ast.Identifier:
		if v, ok := env.lookupLexical(e.heap.Symbols.Intern(n.Value)); ok {
			return v
		}
	}
	return e.suspend(node, env)
}

// suspend always allocates a thunk, even for literals. Recursive scopes use
// it while their frame is still being filled.
func (e *Evaluator) suspend(node ast.Expression, env *Environment) value.Handle {
	return e.heap.NewThunk(&thunk{e: e, node: node, env: env}, e.pos(env, node))
}

func (e *Evaluator) pos(env *Environment, node ast.TokenProvider) value.Pos {
	tok := node.GetToken()
	return value.Pos{File: env.file, Line: tok.Line, Column: tok.Column}
}

// Eval evaluates node in env. The result may still be a thunk; callers that
// need a weak-head normal form force it.
func (e *Evaluator) Eval(node ast.Expression, env *Environment) (value.Handle, error) {
	switch node := node.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.StringLiteral:
		return e.delay(node, env), nil
	case *ast.PathLiteral:
		return e.evalPathLiteral(node, env)
	case *ast.InterpolatedString:
		return e.evalInterpolatedString(node, env)
	case *ast.Identifier:
		return e.evalIdentifier(node, env)
	case *ast.ListLiteral:
		return e.evalListLiteral(node, env), nil
	case *ast.AttrSetLiteral:
		return e.evalAttrSetLiteral(node, env)
	case *ast.LetExpression:
		return e.evalLetExpression(node, env)
	case *ast.WithExpression:
		return e.Eval(node.Body, newWithEnvironment(env, e.delay(node.Scope, env)))
	case *ast.AssertExpression:
		return e.evalAssertExpression(node, env)
	case *ast.IfExpression:
		return e.evalIfExpression(node, env)
	case *ast.FunctionLiteral:
		return e.newClosure(node, env), nil
	case *ast.CallExpression:
		return e.evalCallExpression(node, env)
	case *ast.SelectExpression:
		return e.evalSelectExpression(node, env)
	case *ast.HasAttrExpression:
		return e.evalHasAttrExpression(node, env)
	case *ast.PrefixExpression:
		return e.evalPrefixExpression(node, env)
	case *ast.InfixExpression:
		return e.evalInfixExpression(node, env)
	case nil:
		return 0, newError(value.Pos{}, "nil expression")
	}
	return 0, newError(e.pos(env, node), "cannot evaluate %T", node)
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *Environment) (value.Handle, error) {
	v, ok, err := env.Get(e.heap, e.heap.Symbols.Intern(node.Value))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newError(e.pos(env, node), "undefined variable '%s'", node.Value)
	}
	return v, nil
}

// force evaluates v to weak-head normal form and returns a copy of its node.
func (e *Evaluator) force(v value.Handle) (value.Node, error) {
	v, err := e.heap.Force(v)
	if err != nil {
		return value.Node{}, err
	}
	return e.heap.Node(v), nil
}

// evalForce evaluates node and forces the result.
func (e *Evaluator) evalForce(node ast.Expression, env *Environment) (value.Node, error) {
	v, err := e.Eval(node, env)
	if err != nil {
		return value.Node{}, err
	}
	return e.force(v)
}
