package httpsource

import (
	"context"

	"google.golang.org/grpc"
)

// queryClient issues unary calls against the remote indexer's query
// service. It is a thin wrapper over grpc.ClientConn.Invoke so the request
// and response shapes can stay plain JSON-tagged structs.
type queryClient interface {
	call(ctx context.Context, method string, req, resp any) error
}

type grpcQueryClient struct {
	conn *grpc.ClientConn
}

func newQueryClient(conn *grpc.ClientConn) queryClient {
	return &grpcQueryClient{conn: conn}
}

func (c *grpcQueryClient) call(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, method, req, resp)
}
