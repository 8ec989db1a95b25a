package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/timefmt-go"
	"github.com/mattn/go-runewidth"

	"github.com/bluskript/nix-inspect/internal/host"
)

const (
	cursorMark = "> "
	blankMark  = "  "
	ellipsis   = "…"
	timeLayout = "%Y-%m-%d %H:%M"
)

// list prints the entries of the current container. The long form fetches
// every entry and aligns name, type and value columns.
func (b *Browser) list(ctx context.Context, long bool) error {
	cur := b.Current()
	d, err := b.container(ctx, cur)
	if err != nil {
		return err
	}
	if len(d.Children) == 0 {
		fmt.Fprintln(b.out, "(empty)")
		return nil
	}

	if !long {
		for i, c := range d.Children {
			fmt.Fprintln(b.out, mark(i == d.Cursor)+c)
		}
		return nil
	}

	nameWidth := 0
	for _, c := range d.Children {
		nameWidth = max(nameWidth, runewidth.StringWidth(c))
	}
	nameWidth = min(nameWidth, b.width/3)

	rows := make([][2]string, len(d.Children))
	typeWidth := 0
	for i, c := range d.Children {
		child, err := b.load(ctx, cur.Child(c))
		if err != nil {
			return err
		}
		rows[i] = [2]string{child.TypeName(), child.String()}
		typeWidth = max(typeWidth, runewidth.StringWidth(rows[i][0]))
	}

	valueWidth := max(b.width-len(cursorMark)-nameWidth-typeWidth-2, 8)
	for i, c := range d.Children {
		fmt.Fprintf(b.out, "%s%s %s %s\n",
			mark(i == d.Cursor),
			runewidth.FillRight(runewidth.Truncate(c, nameWidth, ellipsis), nameWidth),
			runewidth.FillRight(rows[i][0], typeWidth),
			runewidth.Truncate(oneLine(rows[i][1]), valueWidth, ellipsis))
	}
	return nil
}

func (b *Browser) printValue(path host.BrowserPath, d host.PathData) {
	header := fmt.Sprintf("%s : %s", displayPath(path), d.TypeName())
	fmt.Fprintln(b.out, header)
	if d.IsContainer() {
		fmt.Fprintln(b.out, blankMark+d.String())
		return
	}
	fmt.Fprintln(b.out, blankMark+runewidth.Truncate(oneLine(d.String()), b.width-len(blankMark), ellipsis))
}

func (b *Browser) bookmark(ctx context.Context, args []string) error {
	if b.store == nil {
		return errors.New("bookmarks are not available")
	}
	if len(args) == 0 {
		args = []string{"ls"}
	}
	switch args[0] {
	case "add":
		if len(args) < 2 {
			return errors.New("usage: bm add <name> [path]")
		}
		path := b.Current()
		if len(args) > 2 {
			path = b.target(strings.Join(args[2:], " "))
		}
		bm, err := b.store.Add(ctx, args[1], path.Expr())
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "bookmarked %s as %s\n", displayPath(path), bm.Name)
		return nil
	case "ls":
		list, err := b.store.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(b.out, "(no bookmarks)")
			return nil
		}
		width := 0
		for _, bm := range list {
			width = max(width, runewidth.StringWidth(bm.Name))
		}
		for _, bm := range list {
			fmt.Fprintf(b.out, "%s  %s  %s\n",
				runewidth.FillRight(bm.Name, width),
				timefmt.Format(bm.CreatedAt, timeLayout),
				bm.Path)
		}
		return nil
	case "go":
		if len(args) != 2 {
			return errors.New("usage: bm go <name>")
		}
		bm, err := b.store.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return b.visit(ctx, host.ParseBrowserPath(bm.Path))
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: bm rm <name>")
		}
		return b.store.Remove(ctx, args[1])
	}
	return fmt.Errorf("unknown bookmark command %q", args[0])
}

func mark(selected bool) string {
	if selected {
		return cursorMark
	}
	return blankMark
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", `\n`, "\t", " ").Replace(s)
}
