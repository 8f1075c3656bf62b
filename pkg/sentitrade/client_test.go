package sentitrade

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"sentitrade/internal/api"
	"sentitrade/internal/broker"
	"sentitrade/internal/domain"
	"sentitrade/internal/engine"
)

func TestClient(t *testing.T) {
	sim := broker.NewSimulatorBroker(nil)
	sub, err := sim.SubmitOrder(context.Background(), domain.OrderRequest{
		Ticker: "AAPL", Side: domain.OrderSideSell, Qty: 2,
		Type: domain.OrderTypeMarket, TimeInForce: domain.TimeInForceGTC,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := api.NewServer(sim, engine.NewTracker(sim), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, lis) }()

	c, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(
		func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health != "SERVING" {
		t.Errorf("Health = %q, want SERVING", health)
	}

	st, err := c.CheckStatus(ctx, sub.OrderID)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if st.Status != "filled" || st.Symbol != "AAPL" {
		t.Errorf("CheckStatus = %+v, want filled AAPL", st)
	}
	if st.FilledQty == nil || *st.FilledQty != 2 {
		t.Errorf("FilledQty = %v, want 2", st.FilledQty)
	}
}
