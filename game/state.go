package game

import "math/rand"

// Internal truth authoritative board state for one arena

type Board struct {
	Tick     int
	GridSize int
	Food     Position
	Players  map[string]*Player
}

type Player struct {
	ID            string
	Position      Position
	Snake         []Position
	Direction     Direction
	Score         int
	BetAmount     float64
	Ready         bool
	IsHost        bool
	WalletAddress string
}

func NewBoard(gridSize int, rng *rand.Rand) *Board {
	if gridSize <= 0 {
		gridSize = GridSize
	}
	b := &Board{
		GridSize: gridSize,
		Players:  make(map[string]*Player),
	}
	b.Food = FreeCell(rng, gridSize, b.Players)
	return b
}

// Spawn places a new single-segment snake for id at a free cell.
func (b *Board) Spawn(rng *rand.Rand, id string) *Player {
	head := FreeCell(rng, b.GridSize, b.Players)
	p := &Player{
		ID:        id,
		Position:  head,
		Snake:     []Position{head},
		Direction: Right,
	}
	b.Players[id] = p
	return p
}

func (b *Board) Remove(id string) *Player {
	p, ok := b.Players[id]
	if !ok {
		return nil
	}
	delete(b.Players, id)
	return p
}

func (p *Player) Head() Position {
	if len(p.Snake) == 0 {
		return p.Position
	}
	return p.Snake[0]
}
