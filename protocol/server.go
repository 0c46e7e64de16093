package protocol

import "snakepit/game"

type Welcome struct {
	ConnID  string `json:"connId"`
	Version int    `json:"v"`
	Codec   string `json:"codec"`
}

type RoomCreated struct {
	RoomID    string  `json:"roomId"`
	BetAmount float64 `json:"betAmount"`
}

type RoomJoined struct {
	RoomID    string  `json:"roomId"`
	BetAmount float64 `json:"betAmount"`
}

type RoomLeft struct {
	RoomID string `json:"roomId"`
}

// Error codes sent with MsgError.
const (
	CodeInvalid       = "invalid_request"
	CodeNotFound      = "room_not_found"
	CodeWrongPhase    = "wrong_phase"
	CodeFull          = "room_full"
	CodeBetMismatch   = "bet_mismatch"
	CodeNotInRoom     = "not_in_room"
	CodeAlreadyInRoom = "already_in_room"
	CodeAlreadyReady  = "already_ready"
	CodeInternal      = "internal"
)

type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type PlayerSnapshot struct {
	ID            string          `json:"id"`
	Position      game.Position   `json:"position"`
	Snake         []game.Position `json:"snake"`
	Direction     game.Direction  `json:"direction"`
	Score         int             `json:"score"`
	BetAmount     float64         `json:"betAmount"`
	Ready         bool            `json:"ready"`
	IsHost        bool            `json:"isHost"`
	WalletAddress string          `json:"walletAddress,omitempty"`
}

// GameState is the full room snapshot; every change is broadcast as a whole.
type GameState struct {
	RoomID     string           `json:"roomId"`
	Tick       int              `json:"tick"`
	Players    []PlayerSnapshot `json:"players"`
	Food       game.Position    `json:"food"`
	GridSize   int              `json:"gridSize"`
	GameStatus string           `json:"gameStatus"`
	StartTime  *int64           `json:"startTime"`
	EndTime    *int64           `json:"endTime"`
	PotAmount  float64          `json:"potAmount"`
}

type GameStarting struct {
	StartsAt int64 `json:"startsAt"`
}

type GameStarted struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
}

type RoomSummary struct {
	ID          string  `json:"id"`
	Creator     string  `json:"creator"`
	BetAmount   float64 `json:"betAmount"`
	PlayerCount int     `json:"playerCount"`
	MaxPlayers  int     `json:"maxPlayers"`
	CreatedAt   int64   `json:"createdAt"`
}

type PublicRooms struct {
	Rooms []RoomSummary `json:"rooms"`
}

type WinnerSnapshot struct {
	ID    string  `json:"id"`
	Score int     `json:"score"`
	Prize float64 `json:"prize"`
}

type GameEnded struct {
	Winners []WinnerSnapshot `json:"winners"`
	Reason  string           `json:"reason,omitempty"`
}

type SettlementStatus struct {
	PlayerID string `json:"playerId"`
	Status   string `json:"status"`
}

type SettlementResult struct {
	GameID          string           `json:"gameId,omitempty"`
	Winners         []WinnerSnapshot `json:"winners"`
	PartialFailure  bool             `json:"partialFailure"`
	BlockchainError string           `json:"blockchainError,omitempty"`
	Skipped         []string         `json:"skipped,omitempty"`
}

type PracticeState struct {
	Tick       int             `json:"tick"`
	Snake      []game.Position `json:"snake"`
	Food       game.Position   `json:"food"`
	GridSize   int             `json:"gridSize"`
	Score      int             `json:"score"`
	GameStatus string          `json:"gameStatus"`
	StartTime  int64           `json:"startTime"`
	EndTime    int64           `json:"endTime"`
	Earned     float64         `json:"earned"`
}

// PracticeReward is sent once a timed practice game has paid out. TxID is
// empty when the credit failed.
type PracticeReward struct {
	Amount float64 `json:"amount"`
	TxID   string  `json:"txId,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// RefundStatus reports the stake returned to a player who left before the
// game started.
type RefundStatus struct {
	RoomID string  `json:"roomId"`
	Amount float64 `json:"amount"`
	TxID   string  `json:"txId,omitempty"`
	Status string  `json:"status"`
}
