package inspector

import (
	"math"
	"strconv"

	"github.com/bluskript/nix-inspect/internal/value"
)

// DefaultMaxAttrNames caps the key listing of one attribute set.
const DefaultMaxAttrNames = 10000

// Tag is the type tag of a projection. Values 0 to 10 follow value.Kind;
// TagError marks a failed request.
type Tag uint8

const TagError Tag = 11

func tagOf(k value.Kind) Tag { return Tag(k) }

// Name is the symbolic form of the tag, e.g. "set" or "error".
func (t Tag) Name() string {
	if t == TagError {
		return "error"
	}
	return value.Kind(t).String()
}

// String is the numeric form used on the wire.
func (t Tag) String() string { return strconv.Itoa(int(t)) }

// Projection is the bounded view of one value. Data holds one of nil, bool,
// int64, float64, string, []string (attribute names) or int (list length).
type Projection struct {
	Type Tag
	Data any
	// Truncated is set when Data lists fewer attribute names than the set has.
	Truncated bool
}

// ErrorProjection is what failed values project to.
var ErrorProjection = Projection{Type: TagError}

// Projector converts forced values to projections. It never forces
// anything itself.
type Projector struct {
	heap         *value.Heap
	MaxAttrNames int
}

func NewProjector(heap *value.Heap) *Projector {
	return &Projector{heap: heap, MaxAttrNames: DefaultMaxAttrNames}
}

// ProjectResult projects v, or the error projection when err is set.
func (p *Projector) ProjectResult(v value.Handle, err error) Projection {
	if err != nil {
		return ErrorProjection
	}
	return p.Project(v)
}

// Project never fails. Functions, externals and unforced thunks project to
// their tag with null data; lists project to their length.
func (p *Projector) Project(v value.Handle) (out Projection) {
	if !p.heap.Valid(v) {
		return ErrorProjection
	}
	defer func() {
		if r := recover(); r != nil {
			out = ErrorProjection
		}
	}()

	n := p.heap.Node(v)
	out.Type = tagOf(n.Kind)
	switch n.Kind {
	case value.KindInt:
		out.Data = n.Int
	case value.KindFloat:
		if !math.IsNaN(n.Float) && !math.IsInf(n.Float, 0) {
			out.Data = n.Float
		}
	case value.KindBool:
		out.Data = n.Bool
	case value.KindString, value.KindPath:
		out.Data = n.Str
	case value.KindList:
		out.Data = len(n.List)
	case value.KindAttrs:
		out.Data, out.Truncated = p.names(n.Attrs)
	}
	return out
}

func (p *Projector) names(b *value.Bindings) ([]string, bool) {
	keys := b.Keys()
	limit := p.MaxAttrNames
	if limit <= 0 {
		limit = DefaultMaxAttrNames
	}
	truncated := len(keys) > limit
	if truncated {
		keys = keys[:limit]
	}
	names := make([]string, len(keys))
	copy(names, keys)
	return names, truncated
}
