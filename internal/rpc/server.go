package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/bluskript/nix-inspect/internal/inspector"
	"github.com/bluskript/nix-inspect/internal/value"
)

// ErrorKindKey is the trailer carrying the inspector error kind of a failed
// call.
const ErrorKindKey = "nix-inspect-error-kind"

// Server exposes one session as the Inspector service.
type Server struct {
	session *inspector.Session
	sd      *desc.ServiceDescriptor
	logger  *slog.Logger
}

func NewServer(session *inspector.Session, logger *slog.Logger) (*Server, error) {
	sd, err := Service()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{session: session, sd: sd, logger: logger}, nil
}

// Register adds the service to g.
func (s *Server) Register(g *grpc.Server) {
	sdesc := &grpc.ServiceDesc{
		ServiceName: s.sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    s.sd.GetFile().GetName(),
	}
	for _, md := range s.sd.GetMethods() {
		md := md
		sdesc.Methods = append(sdesc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := dynamic.NewMessage(md.GetInputType())
				if err := dec(req); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.handle(ctx, md, req.(*dynamic.Message))
				}
				if interceptor == nil {
					return call(ctx, req)
				}
				info := &grpc.UnaryServerInfo{
					Server:     srv,
					FullMethod: fmt.Sprintf("/%s/%s", s.sd.GetFullyQualifiedName(), md.GetName()),
				}
				return interceptor(ctx, req, info, call)
			},
		})
	}
	g.RegisterService(sdesc, s)
}

func (s *Server) handle(ctx context.Context, md *desc.MethodDescriptor, req *dynamic.Message) (*dynamic.Message, error) {
	resp := dynamic.NewMessage(md.GetOutputType())
	s.logger.Debug("rpc", "method", md.GetName(), "session", s.session.ID)

	var (
		proj inspector.Projection
		err  error
	)
	switch md.GetName() {
	case "Inspect":
		proj, err = s.session.Inspect(stringField(req, "path"))
	case "Root":
		proj, err = s.session.Root()
	case "Child":
		proj, err = s.session.Child(stringField(req, "path"), stringField(req, "key"))
	case "Complete":
		var paths []string
		paths, err = s.session.Complete(stringField(req, "prefix"))
		if err != nil {
			return nil, toStatus(ctx, err)
		}
		resp.SetFieldByName("paths", toList(paths))
		return resp, nil
	default:
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", md.GetName())
	}
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	setProjection(resp, proj)
	return resp, nil
}

func stringField(msg *dynamic.Message, name string) string {
	s, _ := msg.GetFieldByName(name).(string)
	return s
}

func toList(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func setProjection(msg *dynamic.Message, p inspector.Projection) {
	msg.SetFieldByName("type", p.Type.String())
	msg.SetFieldByName("type_name", p.Type.Name())
	msg.SetFieldByName("truncated", p.Truncated)
	switch d := p.Data.(type) {
	case nil:
		msg.SetFieldByName("is_null", true)
	case int64:
		msg.SetFieldByName("int_value", d)
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			msg.SetFieldByName("is_null", true)
		} else {
			msg.SetFieldByName("float_value", d)
		}
	case bool:
		msg.SetFieldByName("bool_value", d)
	case string:
		msg.SetFieldByName("string_value", d)
	case int:
		msg.SetFieldByName("length", int64(d))
	case []string:
		msg.SetFieldByName("names", toList(d))
	}
}

// toStatus maps inspector kinds onto gRPC codes and records the kind in a
// trailer so clients can rebuild it.
func toStatus(ctx context.Context, err error) error {
	code := codes.Internal
	kind := "SessionFailure"
	var ie *inspector.Error
	if errors.As(err, &ie) {
		kind = ie.Kind.String()
		switch ie.Kind {
		case inspector.EmptyPath, inspector.MalformedPath, inspector.NotAnAttrSet:
			code = codes.InvalidArgument
		case inspector.MissingAttribute:
			code = codes.NotFound
		case inspector.EvalFailure, inspector.ApplyFailure:
			code = codes.Aborted
		}
	}
	_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorKindKey, kind))
	return status.Error(code, err.Error())
}

// fromMessage rebuilds a projection from a Projection message.
func fromMessage(msg *dynamic.Message) (inspector.Projection, error) {
	tag, err := parseTag(stringField(msg, "type"))
	if err != nil {
		return inspector.ErrorProjection, err
	}
	p := inspector.Projection{Type: tag}
	p.Truncated, _ = msg.GetFieldByName("truncated").(bool)
	if null, _ := msg.GetFieldByName("is_null").(bool); null {
		return p, nil
	}
	switch value.Kind(tag) {
	case value.KindInt:
		p.Data, _ = msg.GetFieldByName("int_value").(int64)
	case value.KindFloat:
		p.Data, _ = msg.GetFieldByName("float_value").(float64)
	case value.KindBool:
		p.Data, _ = msg.GetFieldByName("bool_value").(bool)
	case value.KindString, value.KindPath:
		p.Data = stringField(msg, "string_value")
	case value.KindList:
		n, _ := msg.GetFieldByName("length").(int64)
		p.Data = int(n)
	case value.KindAttrs:
		p.Data = fromList(msg.GetFieldByName("names"))
	}
	return p, nil
}

func fromList(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseTag(s string) (inspector.Tag, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > int(inspector.TagError) {
		return 0, fmt.Errorf("unknown type tag %q", s)
	}
	return inspector.Tag(n), nil
}
