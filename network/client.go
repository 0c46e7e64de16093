package network

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"snakepit/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20 // 1MB
	sendBuffer     = 256
)

var (
	errClosed       = errors.New("connection closed")
	errSlowConsumer = errors.New("send buffer full")
)

// client is one websocket connection. Writes go through send so rooms never
// block on a slow socket; a full buffer drops the connection.
type client struct {
	id    string
	conn  *websocket.Conn
	codec protocol.Codec
	send  chan []byte
	moves *rate.Limiter
	log   *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, codec protocol.Codec, log *slog.Logger, moves *rate.Limiter) *client {
	id := uuid.NewString()
	return &client{
		id:    id,
		conn:  conn,
		codec: codec,
		send:  make(chan []byte, sendBuffer),
		moves: moves,
		log:   log.With(slog.String("conn", id)),
		done:  make(chan struct{}),
	}
}

func (c *client) ID() string { return c.id }

func (c *client) Send(msgType string, payload any) error {
	b, err := protocol.EncodeWith(c.codec, msgType, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		c.log.Warn("send buffer full, dropping connection", slog.String("type", msgType))
		_ = c.Close()
		return errSlowConsumer
	}
}

// Close stops the write pump, which closes the socket.
func (c *client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *client) frameType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frame := c.frameType()
	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(frame, b); err != nil {
				c.log.Debug("write failed", slog.String("error", err.Error()))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump blocks until the socket fails or closes, handing every frame to
// handle on the caller's goroutine.
func (c *client) readPump(handle func(*client, []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(c, msg)
	}
}
