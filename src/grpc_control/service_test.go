package grpc_control

import (
	"context"
	"net"
	"testing"
	"time"

	"market-aggregator/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeStatus struct{}

func (fakeStatus) Status() models.MServiceStatus {
	return models.MServiceStatus{Name: "agg", Cadence: models.CadenceDaily, Cycles: 4, MarketCount: 2, AlwaysOnCount: 1}
}

func (fakeStatus) Symbols() []models.MSymbolStatus {
	return []models.MSymbolStatus{
		{Symbol: "AAPL", Class: models.ClassMarketHours, Initialized: true, BufferLength: 30},
		{Symbol: "BTC-USD", Class: models.ClassAlwaysOn, Initialized: true, BufferLength: 30},
		{Symbol: "MSFT", Class: models.ClassMarketHours, LastError: "timeout"},
	}
}

func (fakeStatus) History(symbol string) ([]models.MRecord, bool) {
	if symbol != "AAPL" {
		return nil, false
	}
	return []models.MRecord{
		{Timestamp: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Close: 170},
		{Timestamp: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), Close: 171},
	}, true
}

func newTestClient(t *testing.T) *AggregatorControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	svc := NewControlService(fakeStatus{})
	svc.Serve(lis)
	t.Cleanup(svc.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewAggregatorControlClient(conn)
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t)

	st, err := client.GetStatus(context.Background())
	require.NoError(t, err)

	m := st.AsMap()
	assert.Equal(t, "agg", m["name"])
	assert.Equal(t, "1d", m["cadence"])
	assert.Equal(t, 4.0, m["cycles"])
}

func TestListSymbols(t *testing.T) {
	client := newTestClient(t)

	all, err := client.ListSymbols(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3.0, all.AsMap()["count"])

	market, err := client.ListSymbols(context.Background(), models.ClassMarketHours)
	require.NoError(t, err)
	symbols := market.AsMap()["symbols"].([]interface{})
	require.Len(t, symbols, 2)
	assert.Equal(t, "MSFT", symbols[1].(map[string]interface{})["symbol"])
	assert.Equal(t, "timeout", symbols[1].(map[string]interface{})["last_error"])

	_, err = client.ListSymbols(context.Background(), "weekend")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetHistory(t *testing.T) {
	client := newTestClient(t)

	h, err := client.GetHistory(context.Background(), "aapl")
	require.NoError(t, err)
	m := h.AsMap()
	assert.Equal(t, "AAPL", m["symbol"])
	records := m["records"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, 171.0, records[1].(map[string]interface{})["close"])

	_, err = client.GetHistory(context.Background(), "NOPE")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetHistory(context.Background(), " ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
