package room

import (
	"snakepit/game"
	"snakepit/settlement"
)

// Conn is the room's view of a subscriber. Send encodes and queues; it must
// not block the room loop.
type Conn interface {
	ID() string
	Send(msgType string, payload any) error
	Close() error
}

// Join: issued by the manager for create (Host) and join requests
type Join struct {
	Conn      Conn
	Wallet    string
	BetAmount float64 // 0 = accept the room's stake
	Host      bool
	Reply     chan<- error
}

// ConfirmBet: stake confirmed, player becomes ready
type ConfirmBet struct {
	ConnID string
	Reply  chan<- error
}

// Move: one tick of simulation for a player
type Move struct {
	ConnID    string
	Direction game.Direction
}

// Leave: issued on disconnect or explicit leave
type Leave struct {
	ConnID string
	Done   chan<- struct{}
}

// Inspect: read a copy of the room state
type Inspect struct {
	Reply chan<- Snapshot
}

type timerFired struct {
	task string
	want Status
}

type settlementUpdate struct {
	update settlement.Update
}

type settlementDone struct {
	result settlement.Result
}
