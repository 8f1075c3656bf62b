// Package sentitrade is the Go client for the sentitrade-server gRPC API.
package sentitrade

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"sentitrade/internal/api"
	"sentitrade/internal/domain"
)

// OrderStatus is the state of one order as reported by the server.
type OrderStatus = domain.OrderStatus

// Client talks to a sentitrade-server.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewClient creates a client for the server at addr. Extra dial options
// are appended after the default insecure transport credentials.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// CheckStatus returns the live state of orderID.
func (c *Client) CheckStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.CheckStatusMethod, api.StatusRequest(orderID), out); err != nil {
		return OrderStatus{}, err
	}
	return api.StatusFromStruct(out), nil
}

// Health returns the serving status of the trading service, e.g. "SERVING".
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: api.TradingServiceName})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
