package host

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/value"
)

// BrowserPath is a location in the value tree. The empty path is the root.
type BrowserPath []string

// ParseBrowserPath reads a dotted path. Quoted segments are honored; text
// that does not parse as a path is split on dots.
func ParseBrowserPath(s string) BrowserPath {
	s = strings.TrimSpace(s)
	if s == "" {
		return BrowserPath{}
	}
	if p, err := inspector.ParsePath(s); err == nil {
		return BrowserPath(p)
	}
	return BrowserPath(strings.Split(s, "."))
}

// Parent drops the last segment. The root and top-level entries have no
// parent path.
func (p BrowserPath) Parent() (BrowserPath, bool) {
	if len(p) > 1 {
		return slices.Clone(p[:len(p)-1]), true
	}
	return nil, false
}

func (p BrowserPath) Child(name string) BrowserPath {
	return BrowserPath(inspector.AttrPath(p).Append(name))
}

func (p BrowserPath) Extend(other BrowserPath) BrowserPath {
	return append(slices.Clone(p), other...)
}

func (p BrowserPath) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p BrowserPath) Equal(other BrowserPath) bool { return slices.Equal(p, other) }

// Expr renders the path as request text.
func (p BrowserPath) Expr() string { return inspector.AttrPath(p).String() }

// Key is a map key for the path.
func (p BrowserPath) Key() string { return p.Expr() }

// request is the protocol line asking for this path.
func (p BrowserPath) request() string {
	if len(p) == 0 {
		return ":root"
	}
	return p.Expr()
}

// State of a path as the host knows it.
type State uint8

const (
	Loading State = iota
	Ready
	Failed
)

// PathData is what the host knows about one path.
type PathData struct {
	State      State
	Projection inspector.Projection
	// Children are attribute names or list indices, in display order.
	Children []string
	// Cursor is the selected child.
	Cursor int
	Err    error
}

// FromProjection converts a worker response. Lists become their indices.
func FromProjection(p inspector.Projection) PathData {
	d := PathData{State: Ready, Projection: p}
	switch p.Type {
	case inspector.Tag(value.KindAttrs):
		d.Children, _ = p.Data.([]string)
		if d.Children == nil {
			d.Children = []string{}
		}
	case inspector.Tag(value.KindList):
		n, _ := p.Data.(int)
		d.Children = make([]string, n)
		for i := range d.Children {
			d.Children[i] = strconv.Itoa(i)
		}
	}
	return d
}

func failed(err error) PathData {
	return PathData{State: Failed, Projection: inspector.ErrorProjection, Err: err}
}

// IsContainer reports whether the path has children to browse.
func (d PathData) IsContainer() bool { return d.State == Ready && d.Children != nil }

// Selected is the path of the child under the cursor.
func (d PathData) Selected(at BrowserPath) (BrowserPath, bool) {
	if d.Cursor < 0 || d.Cursor >= len(d.Children) {
		return nil, false
	}
	return at.Child(d.Children[d.Cursor]), true
}

// TypeName is the short type label shown next to a value.
func (d PathData) TypeName() string {
	switch d.State {
	case Loading:
		return "Loading"
	case Failed:
		return "Error"
	}
	switch d.Projection.Type {
	case inspector.Tag(value.KindAttrs):
		return "Set"
	case inspector.Tag(value.KindList):
		return "List"
	case inspector.Tag(value.KindFunction):
		return "Function"
	}
	name := d.Projection.Type.Name()
	return strings.ToUpper(name[:1]) + name[1:]
}

func (d PathData) String() string {
	switch d.State {
	case Loading:
		return "Loading..."
	case Failed:
		return "error: " + d.Err.Error()
	}
	p := d.Projection
	switch p.Type {
	case inspector.Tag(value.KindString):
		return strconv.Quote(p.Data.(string))
	case inspector.Tag(value.KindPath):
		return p.Data.(string)
	case inspector.Tag(value.KindAttrs):
		return fmt.Sprintf("{ %d attributes }", len(d.Children))
	case inspector.Tag(value.KindList):
		return fmt.Sprintf("[ %d elements ]", len(d.Children))
	case inspector.Tag(value.KindFloat):
		if p.Data == nil {
			return "nan"
		}
		return strconv.FormatFloat(p.Data.(float64), 'g', -1, 64)
	case inspector.Tag(value.KindNull):
		return "null"
	case inspector.Tag(value.KindFunction):
		return "<lambda>"
	case inspector.Tag(value.KindExternal):
		return "<external>"
	case inspector.Tag(value.KindThunk):
		return "<thunk>"
	}
	return fmt.Sprint(p.Data)
}
