package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	"github.com/gin-gonic/gin"
)

// outbound is one encoded message on its way to the clients of symbol.
type outbound struct {
	symbol  string
	payload []byte
}

// -----------------------------------------------------------------------------
// PublishServer is the websocket transport: clients connect on /ws and receive
// the messages of the symbols they subscribed to. It also serves read-only
// status endpoints under /api.
// -----------------------------------------------------------------------------

type PublishServer struct {
	Config models.MWebsocketConfig
	Logger *logger.Logger
	engine *gin.Engine

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	clientCount atomic.Int64
	broadcast   chan outbound
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
	stopOnce   sync.Once

	status     interfaces.IStatusProvider
	statusMu   sync.RWMutex
	lastSendAt atomic.Int64
}

// -----------------------------------------------------------------------------

func NewPublishServer(cfg models.MWebsocketConfig, debug bool) *PublishServer {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &PublishServer{
		Config:     cfg,
		Logger:     logger.NewLogger(nil, "PublishServer"),
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery())
	if debug {
		s.engine.Use(gin.Logger())
	}

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func (s *PublishServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/status", s.getStatus)
	api.GET("/symbols", s.getSymbols)
	api.GET("/history/:symbol", s.getHistory)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// SetStatusProvider attaches the source of the /api status endpoints.
func (s *PublishServer) SetStatusProvider(p interfaces.IStatusProvider) {
	s.statusMu.Lock()
	s.status = p
	s.statusMu.Unlock()
}

func (s *PublishServer) statusProvider() interfaces.IStatusProvider {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// -----------------------------------------------------------------------------
// Transport lifecycle
// -----------------------------------------------------------------------------

func (s *PublishServer) Name() string {
	return "websocket"
}

// Start binds the listen address and serves in the background.
func (s *PublishServer) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("publish server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	s.running.Store(true)

	go s.handleWebsockets()
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("HTTP server stopped: %v", err)
		}
	}()

	s.Logger.Info("Publishing on ws://%s/ws", ln.Addr())
	return nil
}

// Addr returns the bound address, nil before Start.
func (s *PublishServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// -----------------------------------------------------------------------------

// Send queues msg for every client subscribed to its symbol.
func (s *PublishServer) Send(ctx context.Context, msg models.MMessage) error {
	if !s.running.Load() {
		return fmt.Errorf("publish server not started")
	}

	select {
	case <-s.done:
		return fmt.Errorf("publish server stopped")
	default:
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case s.broadcast <- outbound{symbol: msg.Symbol, payload: payload}:
		s.lastSendAt.Store(time.Now().Unix())
		return nil
	case <-s.done:
		return fmt.Errorf("publish server stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (s *PublishServer) Stop() error {
	if !s.running.Load() {
		return nil
	}

	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
		s.Logger.Info("Publish server stopped")
	})
	return err
}

// ClientCount returns the number of connected websocket clients.
func (s *PublishServer) ClientCount() int {
	return int(s.clientCount.Load())
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *PublishServer) getHealth(c *gin.Context) {
	var latest interface{}
	if ts := s.lastSendAt.Load(); ts > 0 {
		latest = time.Unix(ts, 0).UTC()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.ClientCount(),
		"latest_update": latest,
	})
}

// -----------------------------------------------------------------------------

func (s *PublishServer) getStatus(c *gin.Context) {
	p := s.statusProvider()
	if p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "aggregation not running"})
		return
	}
	c.JSON(http.StatusOK, p.Status())
}

// -----------------------------------------------------------------------------

func (s *PublishServer) getSymbols(c *gin.Context) {
	p := s.statusProvider()
	if p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "aggregation not running"})
		return
	}

	symbols := p.Symbols()
	if class := c.Query("class"); class != "" {
		filtered := symbols[:0]
		for _, st := range symbols {
			if st.Class == class {
				filtered = append(filtered, st)
			}
		}
		symbols = filtered
	}
	c.JSON(http.StatusOK, symbols)
}

// -----------------------------------------------------------------------------

func (s *PublishServer) getHistory(c *gin.Context) {
	p := s.statusProvider()
	if p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "aggregation not running"})
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))
	records, ok := p.History(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no history for %s", symbol)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "records": records})
}
