package rpc

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/bluskript/nix-inspect/internal/inspector"
)

// Client calls a remote Inspector service.
type Client struct {
	conn  *grpc.ClientConn
	sd    *desc.ServiceDescriptor
	owned bool
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	c, err := NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.owned = true
	return c, nil
}

// NewClient uses an existing connection. Close leaves it open.
func NewClient(conn *grpc.ClientConn) (*Client, error) {
	sd, err := Service()
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, sd: sd}, nil
}

func (c *Client) Close() error {
	if c.owned {
		return c.conn.Close()
	}
	return nil
}

// RemoteError is a failed call. Kind is the inspector error kind when the
// server reported one.
type RemoteError struct {
	Code    codes.Code
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Message
}

func (c *Client) Inspect(ctx context.Context, path string) (inspector.Projection, error) {
	return c.projection(ctx, "Inspect", map[string]interface{}{"path": path})
}

func (c *Client) Root(ctx context.Context) (inspector.Projection, error) {
	return c.projection(ctx, "Root", nil)
}

func (c *Client) Child(ctx context.Context, path, key string) (inspector.Projection, error) {
	return c.projection(ctx, "Child", map[string]interface{}{"path": path, "key": key})
}

func (c *Client) Complete(ctx context.Context, prefix string) ([]string, error) {
	resp, err := c.invoke(ctx, "Complete", map[string]interface{}{"prefix": prefix})
	if err != nil {
		return nil, err
	}
	return fromList(resp.GetFieldByName("paths")), nil
}

func (c *Client) projection(ctx context.Context, name string, fields map[string]interface{}) (inspector.Projection, error) {
	resp, err := c.invoke(ctx, name, fields)
	if err != nil {
		return inspector.ErrorProjection, err
	}
	return fromMessage(resp)
}

func (c *Client) invoke(ctx context.Context, name string, fields map[string]interface{}) (*dynamic.Message, error) {
	md, err := method(c.sd, name)
	if err != nil {
		return nil, err
	}
	req := dynamic.NewMessage(md.GetInputType())
	for k, v := range fields {
		if err := req.TrySetFieldByName(k, v); err != nil {
			return nil, fmt.Errorf("setting %s.%s: %w", name, k, err)
		}
	}
	resp := dynamic.NewMessage(md.GetOutputType())

	var trailer metadata.MD
	fullMethod := fmt.Sprintf("/%s/%s", c.sd.GetFullyQualifiedName(), name)
	if err := c.conn.Invoke(ctx, fullMethod, req, resp, grpc.Trailer(&trailer)); err != nil {
		st, ok := status.FromError(err)
		if !ok {
			return nil, fmt.Errorf("calling %s: %w", name, err)
		}
		re := &RemoteError{Code: st.Code(), Message: st.Message()}
		if kinds := trailer.Get(ErrorKindKey); len(kinds) > 0 {
			re.Kind = kinds[0]
		}
		return nil, re
	}
	return resp, nil
}
