package game

import "math/rand"

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Equal reports whether two cells are the same.
func (p Position) Equal(o Position) bool {
	return p.X == o.X && p.Y == o.Y
}

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Wrap maps any integer coordinate onto [0, size).
func Wrap(v, size int) int {
	if size <= 0 {
		return 0
	}
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// Shift moves p one cell in d on a toroidal grid of the given size.
func Shift(p Position, d Direction, size int) Position {
	switch d {
	case Up:
		p.Y--
	case Down:
		p.Y++
	case Left:
		p.X--
	case Right:
		p.X++
	}
	return Position{X: Wrap(p.X, size), Y: Wrap(p.Y, size)}
}

func RandomCell(rng *rand.Rand, size int) Position {
	return Position{X: rng.Intn(size), Y: rng.Intn(size)}
}

// FreeCell picks a random cell not covered by any snake. It gives up after
// PlacementAttempts tries and returns the last candidate.
func FreeCell(rng *rand.Rand, size int, players map[string]*Player) Position {
	occupied := make(map[Position]struct{})
	for _, p := range players {
		for _, seg := range p.Snake {
			occupied[seg] = struct{}{}
		}
	}
	var c Position
	for i := 0; i < PlacementAttempts; i++ {
		c = RandomCell(rng, size)
		if _, taken := occupied[c]; !taken {
			return c
		}
	}
	return c
}

// Occupies reports whether cell is any segment of snake.
func Occupies(snake []Position, cell Position) bool {
	for _, seg := range snake {
		if seg.Equal(cell) {
			return true
		}
	}
	return false
}
