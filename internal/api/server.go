// Package api exposes order status and broker health over gRPC.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"sentitrade/internal/broker"
	"sentitrade/internal/engine"
	"sentitrade/internal/util"
)

// Server hosts the gRPC endpoints. Health reports SERVING for both the
// overall server and sentitrade.Trading while the broker is connected.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	broker broker.Broker
	log    *slog.Logger

	// HealthInterval is how often broker state is re-read while serving.
	HealthInterval time.Duration
}

// NewServer creates a Server for b. tracker answers CheckStatus.
func NewServer(b broker.Broker, tracker *engine.Tracker, log *slog.Logger, opts ...grpc.ServerOption) *Server {
	if log == nil {
		log = util.Discard()
	}
	s := &Server{
		grpc:           grpc.NewServer(opts...),
		health:         health.NewServer(),
		broker:         b,
		log:            log.With("component", "api"),
		HealthInterval: 5 * time.Second,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	RegisterTradingServer(s.grpc, &tradingService{tracker: tracker})
	s.UpdateHealth()
	return s
}

// UpdateHealth publishes the broker's current state to the health service.
func (s *Server) UpdateHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.broker.State() == broker.StateConnected {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(TradingServiceName, st)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gRPC server listening", "addr", lis.Addr().String(), "broker", s.broker.Name())
		errCh <- s.grpc.Serve(lis)
	}()

	ticker := time.NewTicker(s.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.UpdateHealth()
		case <-ctx.Done():
			s.log.Info("shutting down gRPC server")
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return nil
		}
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}
