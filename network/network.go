package network

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"snakepit/protocol"
	"snakepit/room"
)

type Options struct {
	// AllowedOrigin restricts browser origins; empty or "*" allows any.
	AllowedOrigin string
	MoveRate      float64 // moves per second per connection
	MoveBurst     int
	Log           *slog.Logger
}

// Handler upgrades /ws requests and routes their messages to the manager.
type Handler struct {
	mgr      *room.Manager
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(mgr *room.Manager, opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.MoveRate <= 0 {
		opts.MoveRate = protocol.ClientMoveHz
	}
	if opts.MoveBurst <= 0 {
		opts.MoveBurst = protocol.ClientMoveBurst
	}
	h := &Handler{mgr: mgr, opts: opts, log: opts.Log}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.opts.AllowedOrigin == "" || h.opts.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	// non-browser clients send no Origin
	return origin == "" || origin == h.opts.AllowedOrigin
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	codec, ok := protocol.CodecByName(r.URL.Query().Get("codec"))
	if !ok {
		http.Error(w, "unknown codec", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	limiter := rate.NewLimiter(rate.Limit(h.opts.MoveRate), h.opts.MoveBurst)
	c := newClient(conn, codec, h.log, limiter)
	c.log.Info("connected", slog.String("remote", r.RemoteAddr), slog.String("codec", codec.Name()))

	go c.writePump()
	defer func() {
		h.mgr.Disconnect(c.id)
		_ = c.Close()
		c.log.Info("disconnected")
	}()

	_ = c.Send(protocol.MsgWelcome, protocol.Welcome{
		ConnID:  c.id,
		Version: protocol.Version,
		Codec:   codec.Name(),
	})
	h.mgr.Subscribe(c)
	_ = c.Send(protocol.MsgPublicRooms, protocol.PublicRooms{Rooms: h.mgr.ListPublicRooms()})

	c.readPump(h.handle)
}
