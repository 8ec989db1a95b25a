// Package protocol is the line protocol between a worker and its host.
//
// The first input line is the root expression. Every following line is one
// request and gets exactly one response:
//
//	a.b.c              inspect the value at a path
//	:root              inspect the root
//	:child <path> <k>  inspect entry k of the container at path
//	:complete <pre>    list paths completing pre
//	:quit              stop
//
// A response is a JSON object {"type": "<tag>", "data": ...} on one line,
// or a YAML document when the worker runs with format yaml.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bluskript/nix-inspect/internal/config"
	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/value"
)

// Response is one reply on the wire.
type Response struct {
	Type  string     `json:"type" yaml:"type"`
	Data  any        `json:"data" yaml:"data"`
	Error *ErrorInfo `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorInfo keeps the inspector's error taxonomy on the wire.
type ErrorInfo struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Pos     string `json:"pos,omitempty" yaml:"pos,omitempty"`
}

// Kinds the protocol itself reports, next to the inspector's.
const (
	KindUnknownCommand = "UnknownCommand"
	KindSession        = "SessionFailure"
)

// Encoder writes responses.
type Encoder struct {
	w         io.Writer
	TypeTags  string
	ErrorMode string
	Format    string
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, TypeTags: config.TypeTagsNumber, ErrorMode: config.ErrorModeTyped, Format: config.FormatJSON}
}

func (e *Encoder) tag(t inspector.Tag) string {
	if e.TypeTags == config.TypeTagsName {
		return t.Name()
	}
	return t.String()
}

// Encode writes the projection, or the error when err is set.
func (e *Encoder) Encode(p inspector.Projection, err error) error {
	if err != nil {
		return e.EncodeError(err)
	}
	return e.write(Response{Type: e.tag(p.Type), Data: p.Data})
}

// EncodeNames writes a list of names with the attribute set tag, the shape
// a host already knows how to read.
func (e *Encoder) EncodeNames(names []string) error {
	if names == nil {
		names = []string{}
	}
	return e.write(Response{Type: e.tag(inspector.Tag(value.KindAttrs)), Data: names})
}

// EncodeError writes a typed error object, or the bare sentinel line.
func (e *Encoder) EncodeError(err error) error {
	if e.ErrorMode == config.ErrorModeSentinel {
		_, werr := io.WriteString(e.w, config.SentinelError+"\n")
		return werr
	}
	return e.write(Response{Type: e.tag(inspector.TagError), Data: err.Error(), Error: describe(err)})
}

func describe(err error) *ErrorInfo {
	info := &ErrorInfo{Kind: KindSession, Message: err.Error()}
	var pe *protocolError
	if errors.As(err, &pe) {
		info.Kind = pe.kind
	}
	var ie *inspector.Error
	if errors.As(err, &ie) {
		info.Kind = ie.Kind.String()
		if ie.Pos.Valid() {
			info.Pos = ie.Pos.String()
		}
	}
	return info
}

func (e *Encoder) write(r Response) error {
	var (
		out []byte
		err error
	)
	if e.Format == config.FormatYAML {
		out, err = yaml.Marshal(r)
		out = append([]byte("---\n"), out...)
	} else {
		out, err = json.Marshal(r)
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	_, err = e.w.Write(out)
	return err
}

type protocolError struct {
	kind string
	msg  string
}

func (e *protocolError) Error() string { return e.msg }

// RemoteError is a failure reported by the worker.
type RemoteError struct {
	ErrorInfo
}

func (e *RemoteError) Error() string {
	if e.Pos != "" {
		return e.Message + " at " + e.Pos
	}
	return e.Message
}

// ErrSentinel is returned by Decode for the bare sentinel line.
var ErrSentinel = errors.New("worker reported an error")

// Decode parses one JSON response line into a projection. Both numeric and
// named type tags are accepted. An error response is returned as a
// *RemoteError, or ErrSentinel in sentinel mode.
func Decode(line []byte) (inspector.Projection, error) {
	line = bytes.TrimSpace(line)
	if string(line) == config.SentinelError {
		return inspector.ErrorProjection, ErrSentinel
	}

	var raw struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error *ErrorInfo      `json:"error"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return inspector.ErrorProjection, fmt.Errorf("decoding response: %w", err)
	}
	tag, err := parseTag(raw.Type)
	if err != nil {
		return inspector.ErrorProjection, err
	}

	out := inspector.Projection{Type: tag}
	isNull := len(raw.Data) == 0 || string(raw.Data) == "null"
	switch tag {
	case inspector.TagError:
		info := ErrorInfo{Kind: KindSession}
		if raw.Error != nil {
			info = *raw.Error
		} else if !isNull {
			_ = json.Unmarshal(raw.Data, &info.Message)
		}
		return inspector.ErrorProjection, &RemoteError{ErrorInfo: info}
	case inspector.Tag(value.KindInt):
		var n int64
		err = json.Unmarshal(raw.Data, &n)
		out.Data = n
	case inspector.Tag(value.KindFloat):
		if !isNull {
			var f float64
			err = json.Unmarshal(raw.Data, &f)
			out.Data = f
		}
	case inspector.Tag(value.KindBool):
		var b bool
		err = json.Unmarshal(raw.Data, &b)
		out.Data = b
	case inspector.Tag(value.KindString), inspector.Tag(value.KindPath):
		var s string
		err = json.Unmarshal(raw.Data, &s)
		out.Data = s
	case inspector.Tag(value.KindList):
		var n int
		err = json.Unmarshal(raw.Data, &n)
		out.Data = n
	case inspector.Tag(value.KindAttrs):
		names := []string{}
		err = json.Unmarshal(raw.Data, &names)
		out.Data = names
	}
	if err != nil {
		return inspector.ErrorProjection, fmt.Errorf("decoding %s data: %w", tag.Name(), err)
	}
	return out, nil
}

var tagsByName = func() map[string]inspector.Tag {
	m := make(map[string]inspector.Tag)
	for t := inspector.Tag(0); t <= inspector.TagError; t++ {
		m[t.Name()] = t
	}
	return m
}()

func parseTag(s string) (inspector.Tag, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= int(inspector.TagError) {
		return inspector.Tag(n), nil
	}
	if t, ok := tagsByName[s]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown type tag %q", s)
}
