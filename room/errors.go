package room

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrWrongPhase    = errors.New("game already in progress")
	ErrRoomFull      = errors.New("room is full")
	ErrBetMismatch   = errors.New("bet amount does not match room")
	ErrNotInRoom     = errors.New("player not found in room")
	ErrAlreadyInRoom = errors.New("connection already in a room")
	ErrAlreadyReady  = errors.New("bet already confirmed")
	ErrRoomClosed    = errors.New("room closed")
	ErrIDSpace       = errors.New("could not generate a unique room id")
	ErrNoPractice    = errors.New("no practice game running")
)
