package protocol

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"snakepit/game"
)

//input structs coming in from the client.

var ErrInvalidRequest = errors.New("invalid request")

// Request is one of the client message variants below.
type Request interface {
	Type() string
	Validate() error
}

type CreateRoom struct {
	BetAmount     float64 `json:"betAmount"`
	IsPrivate     bool    `json:"isPrivate,omitempty"`
	CreatorID     string  `json:"creatorId,omitempty"`
	WalletAddress string  `json:"walletAddress,omitempty"`
}

type JoinRoom struct {
	RoomID        string  `json:"roomId"`
	WalletAddress string  `json:"walletAddress,omitempty"`
	BetAmount     float64 `json:"betAmount,omitempty"` // stake the client agreed to, 0 = any
}

type ConfirmBet struct {
	RoomID string `json:"roomId"`
}

type Move struct {
	RoomID    string         `json:"roomId"`
	Direction game.Direction `json:"direction"`
}

type ListPublicRooms struct{}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

type PracticeStart struct {
	GridSize      int    `json:"gridSize,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"` // reward destination
}

type PracticeMove struct {
	Direction game.Direction `json:"direction"`
}

func (CreateRoom) Type() string      { return MsgCreateRoom }
func (JoinRoom) Type() string        { return MsgJoinRoom }
func (ConfirmBet) Type() string      { return MsgConfirmBet }
func (Move) Type() string            { return MsgMove }
func (ListPublicRooms) Type() string { return MsgListPublicRooms }
func (LeaveRoom) Type() string       { return MsgLeaveRoom }
func (PracticeStart) Type() string   { return MsgPracticeStart }
func (PracticeMove) Type() string    { return MsgPracticeMove }

const (
	maxRoomIDLen    = 16
	maxCreatorLen   = 64
	maxPracticeGrid = 100
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validRoomID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("missing roomId")
	}
	if len(id) > maxRoomIDLen {
		return invalid("roomId too long")
	}
	return nil
}

func validOptionalWallet(addr string) error {
	if addr == "" {
		return nil
	}
	if err := ValidWallet(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (m CreateRoom) Validate() error {
	if !validAmount(m.BetAmount) {
		return invalid("betAmount must be a non-negative number")
	}
	if len(m.CreatorID) > maxCreatorLen {
		return invalid("creatorId too long")
	}
	return validOptionalWallet(m.WalletAddress)
}

func (m JoinRoom) Validate() error {
	if err := validRoomID(m.RoomID); err != nil {
		return err
	}
	if !validAmount(m.BetAmount) {
		return invalid("betAmount must be a non-negative number")
	}
	return validOptionalWallet(m.WalletAddress)
}

func (m ConfirmBet) Validate() error { return validRoomID(m.RoomID) }
func (m LeaveRoom) Validate() error  { return validRoomID(m.RoomID) }

func (m Move) Validate() error {
	if err := validRoomID(m.RoomID); err != nil {
		return err
	}
	if !m.Direction.Valid() {
		return invalid("unknown direction %q", m.Direction)
	}
	return nil
}

func (ListPublicRooms) Validate() error { return nil }

func (m PracticeStart) Validate() error {
	if m.GridSize < 0 || m.GridSize > maxPracticeGrid {
		return invalid("gridSize out of range")
	}
	return validOptionalWallet(m.WalletAddress)
}

func (m PracticeMove) Validate() error {
	if !m.Direction.Valid() {
		return invalid("unknown direction %q", m.Direction)
	}
	return nil
}

// DecodeRequest turns an envelope into its typed, validated request.
func DecodeRequest(c Codec, env Envelope) (Request, error) {
	var (
		req Request
		err error
	)
	switch env.T {
	case MsgCreateRoom:
		req, err = decodeAs[CreateRoom](c, env)
	case MsgJoinRoom:
		req, err = decodeAs[JoinRoom](c, env)
	case MsgConfirmBet:
		req, err = decodeAs[ConfirmBet](c, env)
	case MsgMove:
		req, err = decodeAs[Move](c, env)
	case MsgListPublicRooms:
		req, err = decodeAs[ListPublicRooms](c, env)
	case MsgLeaveRoom:
		req, err = decodeAs[LeaveRoom](c, env)
	case MsgPracticeStart:
		req, err = decodeAs[PracticeStart](c, env)
	case MsgPracticeMove:
		req, err = decodeAs[PracticeMove](c, env)
	default:
		return nil, invalid("unknown message type %q", env.T)
	}
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// decodeAs tolerates a missing payload; the zero value then goes through
// Validate like any other.
func decodeAs[T Request](c Codec, env Envelope) (Request, error) {
	var zero T
	if len(env.P) == 0 || string(env.P) == "null" {
		return zero, nil
	}
	v, err := DecodePayloadWith[T](c, env)
	if err != nil {
		return nil, invalid("malformed %s payload: %v", env.T, err)
	}
	return v, nil
}
