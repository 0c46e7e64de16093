package room

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"snakepit/game"
	"snakepit/protocol"
)

// Practice is a timed solo game owned by one connection. There is no stake;
// food eaten earns a reward that is paid when the clock runs out.
type Practice struct {
	mu     sync.Mutex
	board  *game.Board
	rng    *rand.Rand
	id     string
	conn   Conn
	wallet string
	status Status
	start  int64
	end    int64
	reward float64 // per food
	earned float64
}

type PracticeOptions struct {
	GridSize int
	Wallet   string
}

const taskPracticeEnd = "practiceEnd"

// practiceKey keeps practice timers apart from room timers in the scheduler.
func practiceKey(connID string) string {
	return "practice:" + connID
}

func (p *Practice) state() protocol.PracticeState {
	pl := p.board.Players[p.id]
	return protocol.PracticeState{
		Tick:       p.board.Tick,
		Snake:      append([]game.Position(nil), pl.Snake...),
		Food:       p.board.Food,
		GridSize:   p.board.GridSize,
		Score:      pl.Score,
		GameStatus: string(p.status),
		StartTime:  p.start,
		EndTime:    p.end,
		Earned:     p.earned,
	}
}

func (p *Practice) snapshot() protocol.PracticeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state()
}

// StartPractice creates or resets the practice game for conn and starts its
// clock.
func (m *Manager) StartPractice(conn Conn, opts PracticeOptions) protocol.PracticeState {
	gridSize := opts.GridSize
	if gridSize <= 0 {
		gridSize = m.cfg.GridSize
	}
	d := m.cfg.PracticeDuration
	if d <= 0 {
		d = game.PracticeDuration
	}
	rng := m.roomDeps().rng
	now := m.now()
	p := &Practice{
		board:  game.NewBoard(gridSize, rng),
		rng:    rng,
		id:     conn.ID(),
		conn:   conn,
		wallet: opts.Wallet,
		status: InProgress,
		start:  now.UnixMilli(),
		end:    now.Add(d).UnixMilli(),
		reward: m.cfg.PracticeReward,
	}
	p.board.Spawn(rng, p.id)

	m.mu.Lock()
	m.practice[p.id] = p
	m.mu.Unlock()
	m.sched.After(practiceKey(p.id), taskPracticeEnd, d, func() { m.finishPractice(p) })

	m.log.Info("practice started",
		slog.String("conn", p.id),
		slog.Duration("duration", d),
		slog.Bool("wallet", opts.Wallet != ""),
	)
	return p.snapshot()
}

// PracticeMove advances the practice game. Once the clock has run out it
// returns the final state unchanged.
func (m *Manager) PracticeMove(connID string, d game.Direction) (protocol.PracticeState, error) {
	m.mu.RLock()
	p, ok := m.practice[connID]
	m.mu.RUnlock()
	if !ok {
		return protocol.PracticeState{}, ErrNoPractice
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != InProgress {
		return p.state(), nil
	}
	if res := game.ApplyMove(p.board, p.id, d, p.rng); res.Ate {
		p.earned += p.reward
	}
	return p.state(), nil
}

// finishPractice runs on the timer goroutine. It sends the final state and
// pays out whatever was earned.
func (m *Manager) finishPractice(p *Practice) {
	m.mu.RLock()
	current := m.practice[p.id] == p
	m.mu.RUnlock()
	if !current {
		return
	}

	p.mu.Lock()
	if p.status != InProgress {
		p.mu.Unlock()
		return
	}
	p.status = Finished
	st := p.state()
	amount, wallet := p.earned, p.wallet
	p.mu.Unlock()

	m.log.Info("practice finished",
		slog.String("conn", p.id),
		slog.Int("score", st.Score),
		slog.Float64("earned", amount),
	)
	_ = p.conn.Send(protocol.MsgPracticeState, st)

	if m.settler == nil || wallet == "" || amount <= 0 {
		return
	}
	out := protocol.PracticeReward{Amount: amount}
	tx, err := m.settler.Reward(context.Background(), p.id, wallet, amount)
	if err != nil {
		out.Error = "Failed to process reward on blockchain"
	} else {
		out.TxID = tx
	}
	_ = p.conn.Send(protocol.MsgPracticeReward, out)
}

// EndPractice drops the practice game and its pending clock.
func (m *Manager) EndPractice(connID string) {
	m.mu.Lock()
	delete(m.practice, connID)
	m.mu.Unlock()
	m.sched.Cancel(practiceKey(connID), taskPracticeEnd)
}

func (m *Manager) HasPractice(connID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.practice[connID]
	return ok
}
