package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	"Sentinel/pkg/config"
	xhttp "Sentinel/pkg/http"
	applogger "Sentinel/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var ErrHubClosed = errors.New("stream hub closed")

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *streamClient) close() {
	c.once.Do(func() { close(c.send) })
}

// StreamHub pushes every published analysis result to connected websocket clients.
// A client that cannot keep up is disconnected rather than slowing the others.
type StreamHub struct {
	cfg      config.Stream
	logger   *applogger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	last    []byte
	closed  bool
}

var _ drepo.ResultPublisher = (*StreamHub)(nil)

func NewStreamHub(cfg config.Stream, logger *applogger.Logger) *StreamHub {
	return &StreamHub{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// Publish marshals res once and queues it for every client.
func (h *StreamHub) Publish(_ context.Context, res *models.AnalysisResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.last = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warn("stream client too slow, disconnecting",
				applogger.String("remote", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// Clients is the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects further results.
func (h *StreamHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	return nil
}

// Serve upgrades the request and streams results until the client leaves.
func (h *StreamHub) Serve(c echo.Context) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("stream is shutting down").Wrap(ErrHubClosed))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the error response
		h.logger.Debug("stream upgrade failed", applogger.Error(err))
		return nil
	}

	client := &streamClient{conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[client] = struct{}{}
	if h.last != nil {
		client.send <- h.last
	}
	h.mu.Unlock()

	h.logger.Debug("stream client connected", applogger.String("remote", conn.RemoteAddr().String()))
	go h.writePump(client)
	h.readPump(client)
	return nil
}

func (h *StreamHub) remove(c *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// readPump only consumes control frames; it returns when the connection drops.
func (h *StreamHub) readPump(c *streamClient) {
	defer h.remove(c)

	wait := 2 * h.cfg.PingInterval
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writePump(c *streamClient) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
