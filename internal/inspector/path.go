package inspector

import (
	"math"
	"strconv"
	"strings"
)

// AttrPath is a parsed dotted attribute path. Segments are raw attribute
// names; a segment of decimal digits also indexes a list.
type AttrPath []string

// String renders the path back in request syntax, quoting segments that
// would not parse as bare names.
func (p AttrPath) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(quoteSegment(seg))
	}
	return b.String()
}

// Append returns a new path with name added; p is not modified.
func (p AttrPath) Append(name string) AttrPath {
	out := make(AttrPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

func quoteSegment(seg string) string {
	q := strconv.Quote(seg)
	if seg == "" || strings.ContainsAny(seg, ". ") || q[1:len(q)-1] != seg {
		return q
	}
	return seg
}

// ParsePath splits a dotted path. Segments may be written as double-quoted
// Go string literals to include dots or control characters. Surrounding
// whitespace is ignored.
func ParsePath(s string) (AttrPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &Error{Kind: EmptyPath, Segment: -1}
	}

	var (
		path AttrPath
		cur  strings.Builder
		// quoted marks a segment that was written in quotes, so "" is a
		// legal empty name rather than a missing segment.
		quoted bool
	)
	malformed := func(detail string) error {
		return &Error{Kind: MalformedPath, Segment: len(path), Detail: detail + " in " + strconv.Quote(s)}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '.':
			if cur.Len() == 0 && !quoted {
				return nil, malformed("empty segment")
			}
			path = append(path, cur.String())
			cur.Reset()
			quoted = false
		case '"':
			if cur.Len() != 0 || quoted {
				return nil, malformed("unexpected quote")
			}
			start := i
			closed := false
			for i++; i < len(s); i++ {
				if s[i] == '\\' {
					i++
					continue
				}
				if s[i] == '"' {
					closed = true
					break
				}
			}
			if !closed {
				return nil, malformed("unterminated quote")
			}
			name, err := strconv.Unquote(s[start : i+1])
			if err != nil {
				return nil, malformed("invalid escape")
			}
			cur.WriteString(name)
			quoted = true
			if i+1 < len(s) && s[i+1] != '.' {
				return nil, malformed("text after closing quote")
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() == 0 && !quoted {
		return nil, malformed("empty segment")
	}
	return append(path, cur.String()), nil
}

// listIndex reports whether seg is a non-negative decimal index. Indices
// too large for an int come back as math.MaxInt, which no list reaches.
func listIndex(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}
