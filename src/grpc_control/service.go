package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements AggregatorControlServer on top of a status provider
type ControlService struct {
	Status interfaces.IStatusProvider
	Logger *logger.Logger

	server *grpc.Server
}

// NewControlService creates a new instance of ControlService
func NewControlService(provider interfaces.IStatusProvider) *ControlService {
	return &ControlService{
		Status: provider,
		Logger: logger.NewLogger(nil, "ControlService"),
	}
}

// -----------------------------------------------------------------------------

// Serve registers the service on a new grpc.Server and serves lis in the
// background until Stop.
func (s *ControlService) Serve(lis net.Listener) {
	s.server = grpc.NewServer()
	RegisterAggregatorControlServer(s.server, s)

	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.Logger.Error("gRPC server stopped: %v", err)
		}
	}()
	s.Logger.Info("gRPC control listening on %s", lis.Addr())
}

// Listen binds host:port and serves on it.
func (s *ControlService) Listen(host string, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	s.Serve(lis)
	return nil
}

func (s *ControlService) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Status.Status())
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSymbols(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	class := req.GetValue()
	if class != "" && class != models.ClassMarketHours && class != models.ClassAlwaysOn {
		return nil, status.Errorf(codes.InvalidArgument, "unknown class %q", class)
	}

	var symbols []models.MSymbolStatus
	for _, st := range s.Status.Symbols() {
		if class == "" || st.Class == class {
			symbols = append(symbols, st)
		}
	}
	if symbols == nil {
		symbols = []models.MSymbolStatus{}
	}

	return toStruct(map[string]interface{}{"count": len(symbols), "symbols": symbols})
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetHistory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.GetValue()))
	if symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}

	records, ok := s.Status.History(symbol)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no history for %s", symbol)
	}
	return toStruct(map[string]interface{}{"symbol": symbol, "records": records})
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-serialisable value into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}
