package subscriber

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"market-aggregator/src/logger"

	"github.com/gorilla/websocket"
)

// WebsocketSubscriber connects to the /ws endpoint of the publish server.
type WebsocketSubscriber struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *logger.Logger
}

func NewWebsocketSubscriber(host string, port int) *WebsocketSubscriber {
	return &WebsocketSubscriber{
		URL:    fmt.Sprintf("ws://%s:%d/ws", host, port),
		Dialer: websocket.DefaultDialer,
		Logger: logger.NewLogger(nil, "WebsocketSubscriber"),
	}
}

// -----------------------------------------------------------------------------

func (s *WebsocketSubscriber) Subscribe(ctx context.Context, symbols []string, handler Handler) error {
	target := s.URL
	if symbols = normalize(symbols); len(symbols) > 0 {
		target += "?symbols=" + url.QueryEscape(strings.Join(symbols, ","))
	}

	conn, _, err := s.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", target, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	s.Logger.Info("Connected to %s", target)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return err
		}

		msg, isData, err := decode(payload)
		if err != nil {
			s.Logger.Warning("Dropping undecodable message: %v", err)
			continue
		}
		if isData {
			handler(msg)
		}
	}
}
