package game

import "sort"

type Winner struct {
	PlayerID      string
	WalletAddress string
	Score         int
	Prize         float64
}

// Winners returns every player holding the top score, each with an equal
// share of pot. Ordered by player id so results are stable.
func Winners(players map[string]*Player, pot float64) []Winner {
	if len(players) == 0 {
		return nil
	}
	best := -1
	for _, p := range players {
		if p.Score > best {
			best = p.Score
		}
	}
	var out []Winner
	for _, p := range players {
		if p.Score == best {
			out = append(out, Winner{
				PlayerID:      p.ID,
				WalletAddress: p.WalletAddress,
				Score:         p.Score,
			})
		}
	}
	prize := pot / float64(len(out))
	for i := range out {
		out[i].Prize = prize
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}
