package network

import (
	"errors"
	"log/slog"

	"snakepit/protocol"
	"snakepit/room"
)

// handle decodes one frame and routes it. Failures are reported to the
// sender only.
func (h *Handler) handle(c *client, raw []byte) {
	env, err := protocol.DecodeEnvelopeWith(c.codec, raw)
	if err != nil {
		h.reply(c, "", errors.Join(protocol.ErrInvalidRequest, err))
		return
	}
	req, err := protocol.DecodeRequest(c.codec, env)
	if err != nil {
		h.reply(c, env.T, err)
		return
	}
	if err := h.route(c, req); err != nil {
		h.reply(c, env.T, err)
	}
}

func (h *Handler) route(c *client, req protocol.Request) error {
	switch m := req.(type) {
	case protocol.CreateRoom:
		_, err := h.mgr.CreateRoom(c, room.CreateOptions{
			BetAmount: m.BetAmount,
			IsPrivate: m.IsPrivate,
			Creator:   m.CreatorID,
			Wallet:    normalizeWallet(m.WalletAddress),
		})
		return err

	case protocol.JoinRoom:
		return h.mgr.JoinRoom(m.RoomID, c, normalizeWallet(m.WalletAddress), m.BetAmount)

	case protocol.ConfirmBet:
		return h.mgr.ConfirmBet(c.id, m.RoomID)

	case protocol.Move:
		if !c.moves.Allow() {
			c.log.Debug("move dropped by rate limit")
			return nil
		}
		return h.mgr.Move(c.id, m.RoomID, m.Direction)

	case protocol.ListPublicRooms:
		return c.Send(protocol.MsgPublicRooms, protocol.PublicRooms{Rooms: h.mgr.ListPublicRooms()})

	case protocol.LeaveRoom:
		if current, ok := h.mgr.RoomOf(c.id); !ok || current != m.RoomID {
			return room.ErrNotInRoom
		}
		h.mgr.Leave(c.id)
		return c.Send(protocol.MsgPublicRooms, protocol.PublicRooms{Rooms: h.mgr.ListPublicRooms()})

	case protocol.PracticeStart:
		st := h.mgr.StartPractice(c, room.PracticeOptions{
			GridSize: m.GridSize,
			Wallet:   normalizeWallet(m.WalletAddress),
		})
		return c.Send(protocol.MsgPracticeState, st)

	case protocol.PracticeMove:
		if !c.moves.Allow() {
			return nil
		}
		st, err := h.mgr.PracticeMove(c.id, m.Direction)
		if err != nil {
			return err
		}
		return c.Send(protocol.MsgPracticeState, st)
	}
	return protocol.ErrInvalidRequest
}

func (h *Handler) reply(c *client, msgType string, err error) {
	code := errorCode(err)
	msg := err.Error()
	if code == protocol.CodeInternal {
		c.log.Error("request failed", slog.String("type", msgType), slog.String("error", msg))
		msg = "internal error"
	} else {
		c.log.Debug("request rejected", slog.String("type", msgType), slog.String("code", code))
	}
	_ = c.Send(protocol.MsgError, protocol.Error{Message: msg, Code: code})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, protocol.ErrInvalidRequest), errors.Is(err, room.ErrNoPractice):
		return protocol.CodeInvalid
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrRoomClosed):
		return protocol.CodeNotFound
	case errors.Is(err, room.ErrWrongPhase):
		return protocol.CodeWrongPhase
	case errors.Is(err, room.ErrRoomFull):
		return protocol.CodeFull
	case errors.Is(err, room.ErrBetMismatch):
		return protocol.CodeBetMismatch
	case errors.Is(err, room.ErrNotInRoom):
		return protocol.CodeNotInRoom
	case errors.Is(err, room.ErrAlreadyInRoom):
		return protocol.CodeAlreadyInRoom
	case errors.Is(err, room.ErrAlreadyReady):
		return protocol.CodeAlreadyReady
	}
	return protocol.CodeInternal
}

// normalizeWallet returns the EIP-55 form of an already validated address.
func normalizeWallet(addr string) string {
	if addr == "" {
		return ""
	}
	return protocol.ChecksumWallet(addr)
}
