package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"market-aggregator/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the hub loop. It is the only goroutine touching
// s.clients, so messages reach each client in the order they were sent.
func (s *PublishServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.clientCount.Add(1)

		case client := <-s.unregister:
			s.drop(client)

		case msg := <-s.broadcast:
			for client := range s.clients {
				if !client.wants(msg.symbol) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// too slow, disconnect instead of blocking the hub
					s.Logger.Warning("Dropping slow client %s", client.conn.RemoteAddr())
					s.drop(client)
				}
			}

		case <-s.done:
			for client := range s.clients {
				s.drop(client)
			}
			return
		}
	}
}

func (s *PublishServer) drop(client *Client) {
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		client.sendLock.Lock()
		client.closed = true
		close(client.send)
		client.sendLock.Unlock()
		s.clientCount.Add(-1)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

// handleWebSocket upgrades the connection. ?symbols=A,B subscribes up front;
// no symbols or "*" subscribes to everything.
func (s *PublishServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warning("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	client.subscribe(splitSymbols(c.Query("symbols")))

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	s.Logger.Debug("Client %s connected (%s)", conn.RemoteAddr(), client.describe())

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe/unsubscribe command and acknowledges
// it with the resulting subscription.
func (s *PublishServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Warning("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "subscribe":
		client.subscribe(cmd.Symbols)
	case "unsubscribe":
		client.unsubscribe(cmd.Symbols)
	default:
		s.Logger.Debug("Ignoring unknown command %q", cmd.Command)
		return
	}

	ack, _ := json.Marshal(models.MSubscribeCommand{Command: "subscribed", Symbols: client.topics()})
	client.trySend(ack)
}

// -----------------------------------------------------------------------------

func splitSymbols(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
