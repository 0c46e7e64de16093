package game

import "time"

const (
	GridSize          = 30
	MinPlayers        = 2
	MaxPlayers        = 8
	FoodReward        = 1
	CollisionPenalty  = 2
	PlacementAttempts = 64

	StartDelay   = 3 * time.Second
	GameDuration = 30 * time.Second
	FinishGrace  = 10 * time.Second

	// solo practice
	PracticeDuration = 3 * time.Minute
	PracticeReward   = 0.001 // per food eaten
)
