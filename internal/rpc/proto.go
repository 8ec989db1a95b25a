// Package rpc serves a Session over gRPC. The service is described by a
// .proto source parsed at startup; messages are dynamic.
package rpc

import (
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/types/descriptorpb"
)

const protoFile = "nix_inspect.proto"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "nixinspect.v1.Inspector"

const protoSource = `syntax = "proto3";

package nixinspect.v1;

service Inspector {
  rpc Inspect(InspectRequest) returns (Projection);
  rpc Root(RootRequest) returns (Projection);
  rpc Child(ChildRequest) returns (Projection);
  rpc Complete(CompleteRequest) returns (CompleteResponse);
}

message InspectRequest {
  string path = 1;
}

message RootRequest {}

message ChildRequest {
  string path = 1;
  string key = 2;
}

message CompleteRequest {
  string prefix = 1;
}

message CompleteResponse {
  repeated string paths = 1;
}

// Projection mirrors the line protocol response. Only the field matching
// type is meaningful; is_null marks a value without data.
message Projection {
  string type = 1;
  string type_name = 2;
  bool is_null = 3;
  int64 int_value = 4;
  double float_value = 5;
  bool bool_value = 6;
  string string_value = 7;
  int64 length = 8;
  repeated string names = 9;
  bool truncated = 10;
}
`

var (
	loadOnce sync.Once
	service  *desc.ServiceDescriptor
	loadErr  error
)

// Service returns the parsed Inspector service descriptor.
func Service() (*desc.ServiceDescriptor, error) {
	loadOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: protoSource}),
		}
		fds, err := parser.ParseFiles(protoFile)
		if err != nil {
			loadErr = fmt.Errorf("parsing %s: %w", protoFile, err)
			return
		}
		service = fds[0].FindService(ServiceName)
		if service == nil {
			loadErr = fmt.Errorf("service %s not found in %s", ServiceName, protoFile)
			return
		}
		loadErr = checkProjection(fds[0].FindMessage("nixinspect.v1.Projection"))
	})
	return service, loadErr
}

func method(sd *desc.ServiceDescriptor, name string) (*desc.MethodDescriptor, error) {
	md := sd.FindMethodByName(name)
	if md == nil {
		return nil, fmt.Errorf("method %s not found in %s", name, sd.GetFullyQualifiedName())
	}
	return md, nil
}

// projectionFields are the Projection fields the server fills and the
// client reads, by name.
var projectionFields = map[string]descriptorpb.FieldDescriptorProto_Type{
	"type":         descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"type_name":    descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"is_null":      descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"int_value":    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"float_value":  descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	"bool_value":   descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"string_value": descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"length":       descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"names":        descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"truncated":    descriptorpb.FieldDescriptorProto_TYPE_BOOL,
}

func checkProjection(md *desc.MessageDescriptor) error {
	if md == nil {
		return fmt.Errorf("message Projection not found in %s", protoFile)
	}
	for name, want := range projectionFields {
		fd := md.FindFieldByName(name)
		if fd == nil {
			return fmt.Errorf("%s has no field %s", md.GetFullyQualifiedName(), name)
		}
		if fd.GetType() != want {
			return fmt.Errorf("%s.%s is %s, want %s", md.GetFullyQualifiedName(), name, fd.GetType(), want)
		}
	}
	return nil
}
