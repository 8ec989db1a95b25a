// Package browser is a line-oriented navigator over a worker. It keeps a
// visit stack, a cursor per container and the fetched data of every path it
// has seen, and reads one command per line:
//
//	ls               list the current container
//	ll               list with types and values
//	cd <path>        enter a child path; "/" or "/a.b" are absolute, ".." goes up
//	up, back         go to the parent, or to the previously visited path
//	next, prev       move the cursor
//	enter            enter the child under the cursor
//	show [key]       print the selected child, or key
//	find <text>      move the cursor to the nearest child containing text
//	tab [path|-]     complete path against its parent, cycling on repeat
//	bm add|ls|go|rm  manage bookmarks
//	pwd, help, quit
package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bluskript/nix-inspect/internal/bookmarks"
	"github.com/bluskript/nix-inspect/internal/host"
)

// Fetcher loads the data of one path. *host.WorkerHost implements it.
type Fetcher interface {
	Fetch(ctx context.Context, path host.BrowserPath) (host.PathData, error)
}

// Options configure a browser.
type Options struct {
	// Start is the first path visited. Empty means the root.
	Start host.BrowserPath
	// Bookmarks may be nil; the bm command then reports an error.
	Bookmarks *bookmarks.Store
	// Prompt prints "path> " before each command.
	Prompt bool
	// Width is the column budget for listings. 0 means 80.
	Width  int
	Logger *slog.Logger
}

// Browser holds the navigation state.
type Browser struct {
	fetcher Fetcher
	out     io.Writer
	store   *bookmarks.Store
	prompt  bool
	width   int
	logger  *slog.Logger

	visits []host.BrowserPath
	data   map[string]host.PathData

	// Tab completion cycles within tabParent while tabPrefix is set.
	tabParent host.BrowserPath
	tabPrefix *string
	tabCursor int
}

var errQuit = errors.New("quit")

func New(f Fetcher, out io.Writer, opts Options) *Browser {
	b := &Browser{
		fetcher: f,
		out:     out,
		store:   opts.Bookmarks,
		prompt:  opts.Prompt,
		width:   opts.Width,
		logger:  opts.Logger,
		data:    make(map[string]host.PathData),
		visits:  []host.BrowserPath{opts.Start},
	}
	if b.width <= 0 {
		b.width = 80
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Current is the path on top of the visit stack.
func (b *Browser) Current() host.BrowserPath { return b.visits[len(b.visits)-1] }

// Run reads commands until quit or end of input. Command failures are
// printed and do not stop the loop.
func (b *Browser) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.prompt {
			fmt.Fprintf(b.out, "%s> ", displayPath(b.Current()))
		}
		if !sc.Scan() {
			return sc.Err()
		}
		err := b.Exec(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(b.out, "error: %v\n", err)
		}
	}
}

// Exec runs one command line.
func (b *Browser) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	if cmd != "tab" {
		b.tabPrefix = nil
	}
	b.logger.Debug("command", "cmd", cmd, "args", args, "path", b.Current().Expr())

	switch cmd {
	case "ls":
		return b.list(ctx, false)
	case "ll":
		return b.list(ctx, true)
	case "cd":
		return b.cd(ctx, args)
	case "up":
		return b.up(ctx)
	case "back":
		return b.back()
	case "next":
		return b.move(ctx, 1)
	case "prev":
		return b.move(ctx, -1)
	case "enter":
		return b.enter(ctx)
	case "show":
		return b.show(ctx, args)
	case "find":
		return b.find(ctx, args)
	case "tab":
		return b.tab(ctx, args)
	case "bm":
		return b.bookmark(ctx, fields[1:])
	case "pwd":
		fmt.Fprintln(b.out, displayPath(b.Current()))
		return nil
	case "help":
		fmt.Fprint(b.out, helpText)
		return nil
	case "quit", "q", "exit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

const helpText = `ls | ll                  list the current container
cd <path> | cd / | cd ..  change path
up | back                 parent | previous path
next | prev | enter       move the cursor | enter the selection
show [key]                print a value
find <text>               jump to the nearest match
tab [path|-]              complete, cycling on repeat
bm add <name> [path]      bookmark a path
bm ls | bm go <name> | bm rm <name>
pwd | help | quit
`

// load returns the data of path, fetching it when not cached. Failures are
// not cached so a later visit retries.
func (b *Browser) load(ctx context.Context, path host.BrowserPath) (host.PathData, error) {
	if d, ok := b.data[path.Key()]; ok {
		return d, nil
	}
	d, err := b.fetcher.Fetch(ctx, path)
	if err != nil {
		return host.PathData{}, err
	}
	if d.State == host.Ready {
		b.data[path.Key()] = d
	}
	return d, nil
}

// container loads path and requires it to have children.
func (b *Browser) container(ctx context.Context, path host.BrowserPath) (host.PathData, error) {
	d, err := b.load(ctx, path)
	if err != nil {
		return d, err
	}
	if d.State == host.Failed {
		return d, d.Err
	}
	if !d.IsContainer() {
		return d, fmt.Errorf("%s is a %s, not a set or list", displayPath(path), strings.ToLower(d.TypeName()))
	}
	return d, nil
}

func (b *Browser) setCursor(path host.BrowserPath, cursor int) {
	d := b.data[path.Key()]
	d.Cursor = cursor
	b.data[path.Key()] = d
}

func (b *Browser) visit(ctx context.Context, path host.BrowserPath) error {
	if _, err := b.container(ctx, path); err != nil {
		return err
	}
	if !path.Equal(b.Current()) {
		b.visits = append(b.visits, path)
	}
	return nil
}

func (b *Browser) target(arg string) host.BrowserPath {
	switch {
	case arg == "" || arg == "/":
		return host.BrowserPath{}
	case strings.HasPrefix(arg, "/"):
		return host.ParseBrowserPath(arg[1:])
	}
	return b.Current().Extend(host.ParseBrowserPath(arg))
}

func (b *Browser) cd(ctx context.Context, arg string) error {
	if arg == ".." {
		return b.up(ctx)
	}
	return b.visit(ctx, b.target(arg))
}

func (b *Browser) up(ctx context.Context) error {
	cur := b.Current()
	if len(cur) == 0 {
		return errors.New("already at the root")
	}
	parent, ok := cur.Parent()
	if !ok {
		parent = host.BrowserPath{}
	}
	if err := b.visit(ctx, parent); err != nil {
		return err
	}
	d := b.data[parent.Key()]
	for i, c := range d.Children {
		if c == cur.Last() {
			b.setCursor(parent, i)
			break
		}
	}
	return nil
}

func (b *Browser) back() error {
	if len(b.visits) == 1 {
		return errors.New("no previous path")
	}
	b.visits = b.visits[:len(b.visits)-1]
	fmt.Fprintln(b.out, displayPath(b.Current()))
	return nil
}

func (b *Browser) move(ctx context.Context, delta int) error {
	cur := b.Current()
	d, err := b.container(ctx, cur)
	if err != nil {
		return err
	}
	n := len(d.Children)
	if n == 0 {
		return errors.New("nothing to select")
	}
	c := ((d.Cursor+delta)%n + n) % n
	b.setCursor(cur, c)
	return b.printSelected(ctx)
}

func (b *Browser) enter(ctx context.Context) error {
	cur := b.Current()
	d, err := b.container(ctx, cur)
	if err != nil {
		return err
	}
	sel, ok := d.Selected(cur)
	if !ok {
		return errors.New("nothing selected")
	}
	return b.visit(ctx, sel)
}

func (b *Browser) show(ctx context.Context, arg string) error {
	if arg == "" {
		return b.printSelected(ctx)
	}
	path := b.target(arg)
	d, err := b.load(ctx, path)
	if err != nil {
		return err
	}
	b.printValue(path, d)
	return nil
}

func (b *Browser) printSelected(ctx context.Context) error {
	cur := b.Current()
	d, err := b.container(ctx, cur)
	if err != nil {
		return err
	}
	sel, ok := d.Selected(cur)
	if !ok {
		return errors.New("nothing selected")
	}
	child, err := b.load(ctx, sel)
	if err != nil {
		return err
	}
	b.printValue(sel, child)
	return nil
}

func (b *Browser) find(ctx context.Context, text string) error {
	cur := b.Current()
	d, err := b.container(ctx, cur)
	if err != nil {
		return err
	}
	i, ok := closestItem(d.Children, text, d.Cursor)
	if !ok {
		return fmt.Errorf("no entry contains %q", text)
	}
	b.setCursor(cur, i)
	return b.printSelected(ctx)
}

// tab completes the last segment of a path against its parent's entries.
// A bare "tab" moves to the next match of the remembered prefix and "tab -"
// to the previous one.
func (b *Browser) tab(ctx context.Context, arg string) error {
	backward := arg == "-"
	if arg != "" && !backward {
		trimmed := strings.TrimSuffix(arg, ".")
		path := b.target(trimmed)
		if trimmed != arg {
			path = append(path, "")
		}
		if len(path) == 0 {
			return errors.New("nothing to complete")
		}
		prefix := path.Last()
		b.tabParent = path[:len(path)-1]
		b.tabPrefix = &prefix
		b.tabCursor = -1
	}
	if b.tabPrefix == nil {
		return errors.New("nothing to complete")
	}

	d, err := b.container(ctx, b.tabParent)
	if err != nil {
		b.tabPrefix = nil
		return err
	}
	var (
		i  int
		ok bool
	)
	if backward {
		i, ok = prevWithPrefix(d.Children, *b.tabPrefix, b.tabCursor)
	} else {
		i, ok = nextWithPrefix(d.Children, *b.tabPrefix, b.tabCursor)
	}
	if !ok {
		b.tabPrefix = nil
		return errors.New("no completions")
	}
	b.tabCursor = i
	b.setCursor(b.tabParent, i)
	fmt.Fprintln(b.out, b.tabParent.Child(d.Children[i]).Expr())
	return nil
}

func displayPath(p host.BrowserPath) string {
	if len(p) == 0 {
		return "/"
	}
	return p.Expr()
}
