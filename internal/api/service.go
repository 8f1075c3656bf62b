package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"sentitrade/internal/domain"
	"sentitrade/internal/engine"
)

// Service and method names of the trading surface.
const (
	TradingServiceName = "sentitrade.Trading"
	CheckStatusMethod  = "/" + TradingServiceName + "/CheckStatus"
)

// TradingServer is the server API for the sentitrade.Trading service.
// Messages are google.protobuf.Struct values:
//
//	CheckStatus({order_id}) -> {order_id, status, filled_qty, filled_price, symbol, message}
type TradingServer interface {
	CheckStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTradingServer registers srv on s.
func RegisterTradingServer(s grpc.ServiceRegistrar, srv TradingServer) {
	s.RegisterService(&tradingServiceDesc, srv)
}

var tradingServiceDesc = grpc.ServiceDesc{
	ServiceName: TradingServiceName,
	HandlerType: (*TradingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckStatus", Handler: checkStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sentitrade/trading",
}

func checkStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TradingServer).CheckStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TradingServer).CheckStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// tradingService answers status queries from the tracker.
type tradingService struct {
	tracker *engine.Tracker
}

// CheckStatus returns the live state of an order. Venue failures are
// reported in the response as status "error", not as RPC errors.
func (s *tradingService) CheckStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetFields()["order_id"].GetStringValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	out, err := StatusToStruct(s.tracker.CheckStatus(ctx, id))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding status: %v", err)
	}
	return out, nil
}

// StatusRequest builds a CheckStatus request.
func StatusRequest(orderID string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"order_id": structpb.NewStringValue(orderID),
	}}
}

// StatusToStruct encodes st as a CheckStatus response. Absent values are
// encoded as null.
func StatusToStruct(st domain.OrderStatus) (*structpb.Struct, error) {
	m := map[string]any{
		"order_id":     st.OrderID,
		"status":       st.Status,
		"symbol":       st.Symbol,
		"filled_qty":   nil,
		"filled_price": nil,
		"message":      nil,
	}
	if st.FilledQty != nil {
		m["filled_qty"] = *st.FilledQty
	}
	if st.FilledPrice != nil {
		m["filled_price"] = *st.FilledPrice
	}
	if st.Message != nil {
		m["message"] = *st.Message
	}
	return structpb.NewStruct(m)
}

// StatusFromStruct decodes a CheckStatus response.
func StatusFromStruct(s *structpb.Struct) domain.OrderStatus {
	f := s.GetFields()
	st := domain.OrderStatus{
		OrderID: f["order_id"].GetStringValue(),
		Status:  f["status"].GetStringValue(),
		Symbol:  f["symbol"].GetStringValue(),
	}
	if v, ok := f["filled_qty"].GetKind().(*structpb.Value_NumberValue); ok {
		st.FilledQty = domain.Ptr(v.NumberValue)
	}
	if v, ok := f["filled_price"].GetKind().(*structpb.Value_NumberValue); ok {
		st.FilledPrice = domain.Ptr(v.NumberValue)
	}
	if v, ok := f["message"].GetKind().(*structpb.Value_StringValue); ok {
		st.Message = domain.Ptr(v.StringValue)
	}
	return st
}
