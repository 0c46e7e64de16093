package game

import "math/rand"

type MoveResult struct {
	Ate      bool
	Collided bool
	Head     Position
}

// ApplyMove advances one player's snake a single cell. Unknown players and
// invalid directions leave the board untouched.
func ApplyMove(b *Board, id string, d Direction, rng *rand.Rand) MoveResult {
	p, ok := b.Players[id]
	if !ok || !d.Valid() {
		return MoveResult{}
	}
	b.Tick++
	p.Direction = d

	head := Shift(p.Head(), d, b.GridSize)
	res := MoveResult{Head: head}

	if head.Equal(b.Food) {
		p.Score += FoodReward
		res.Ate = true
	} else if len(p.Snake) > 0 {
		p.Snake = p.Snake[:len(p.Snake)-1]
	}

	// own body is not checked
	for oid, other := range b.Players {
		if oid == id {
			continue
		}
		if Occupies(other.Snake, head) {
			res.Collided = true
			break
		}
	}

	if res.Collided {
		p.Snake = nil
		fresh := FreeCell(rng, b.GridSize, b.Players)
		p.Snake = []Position{fresh}
		p.Score -= CollisionPenalty
		if p.Score < 0 {
			p.Score = 0
		}
		res.Head = fresh
	} else {
		p.Snake = append([]Position{head}, p.Snake...)
	}
	p.Position = p.Snake[0]

	// food is replaced once the mover's new body is on the board
	if res.Ate {
		b.Food = FreeCell(rng, b.GridSize, b.Players)
	}
	return res
}
