package server

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls ComplianceService over an existing connection.
type Client struct {
	cc       grpc.ClientConnInterface
	tenantID uuid.UUID
}

func NewClient(cc grpc.ClientConnInterface, tenantID uuid.UUID) *Client {
	return &Client{cc: cc, tenantID: tenantID}
}

// Call invokes method with a JSON-shaped request and returns the JSON-shaped response.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	if c.tenantID != uuid.Nil {
		ctx = metadata.AppendToOutgoingContext(ctx, MetadataTenantID, c.tenantID.String())
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
