package protocol

import (
	"encoding/json"
)

// client -> server
const (
	MsgCreateRoom      = "createRoom"
	MsgJoinRoom        = "joinRoom"
	MsgConfirmBet      = "confirmBet"
	MsgMove            = "move"
	MsgListPublicRooms = "listPublicRooms"
	MsgLeaveRoom       = "leaveRoom"
	MsgPracticeStart   = "practiceStart"
	MsgPracticeMove    = "practiceMove"
)

// server -> client
const (
	MsgWelcome          = "welcome"
	MsgRoomCreated      = "roomCreated"
	MsgRoomJoined       = "roomJoined"
	MsgRoomLeft         = "roomLeft"
	MsgError            = "error"
	MsgGameState        = "gameState"
	MsgGameStarting     = "gameStarting"
	MsgGameStarted      = "gameStarted"
	MsgPublicRooms      = "publicRooms"
	MsgGameEnded        = "gameEnded"
	MsgSettlementStatus = "settlementStatus"
	MsgSettlementResult = "settlementResult"
	MsgPracticeState    = "practiceState"
	MsgPracticeReward   = "practiceReward"
	MsgRefundStatus     = "refundStatus"
)

const (
	Version         = 1
	ClientMoveHz    = 20
	ClientMoveBurst = 5
)

type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"` // raw payload bytes
}
