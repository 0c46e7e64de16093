package room

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"snakepit/game"
	"snakepit/protocol"
	"snakepit/schedule"
	"snakepit/settlement"
)

type Settings struct {
	GridSize     int
	MinPlayers   int
	MaxPlayers   int
	StartDelay   time.Duration
	GameDuration time.Duration
	FinishGrace  time.Duration

	PracticeDuration time.Duration
	PracticeReward   float64 // credited per food eaten in practice
}

func DefaultSettings() Settings {
	return Settings{
		GridSize:         game.GridSize,
		MinPlayers:       game.MinPlayers,
		MaxPlayers:       game.MaxPlayers,
		StartDelay:       game.StartDelay,
		GameDuration:     game.GameDuration,
		FinishGrace:      game.FinishGrace,
		PracticeDuration: game.PracticeDuration,
		PracticeReward:   game.PracticeReward,
	}
}

// Info is the lock-free view of a room used for listings.
type Info struct {
	Summary   protocol.RoomSummary
	Status    Status
	IsPrivate bool
}

type Snapshot struct {
	ID        string
	Status    Status
	Pot       float64
	BetAmount float64
	Food      game.Position
	GridSize  int
	Players   map[string]game.Player
	StartTime *int64
	EndTime   *int64
	Settling  bool
}

type Room struct {
	ID    string
	Inbox chan any

	cfg       Settings
	board     *game.Board
	status    Status
	startTime *int64
	endTime   *int64
	pot       float64
	betAmount float64
	isPrivate bool
	creator   string
	createdAt time.Time
	settling  bool

	clients map[string]Conn
	rng     *rand.Rand
	sched   *schedule.Scheduler
	settler *settlement.Settler
	log     *slog.Logger
	now     func() time.Time

	info     atomic.Pointer[Info]
	quit     chan struct{}
	stopOnce sync.Once

	OnEmpty  func(id string) // called when the room should be torn down
	OnChange func(id string) // called when the listing view changed
}

type deps struct {
	sched   *schedule.Scheduler
	settler *settlement.Settler
	log     *slog.Logger
	now     func() time.Time
	rng     *rand.Rand
}

func newRoom(id string, cfg Settings, betAmount float64, isPrivate bool, creator string, d deps) *Room {
	r := &Room{
		ID:        id,
		Inbox:     make(chan any, 256),
		cfg:       cfg,
		board:     game.NewBoard(cfg.GridSize, d.rng),
		status:    Waiting,
		betAmount: betAmount,
		isPrivate: isPrivate,
		creator:   creator,
		createdAt: d.now(),
		clients:   make(map[string]Conn),
		rng:       d.rng,
		sched:     d.sched,
		settler:   d.settler,
		log:       d.log.With(slog.String("room", id)),
		now:       d.now,
		quit:      make(chan struct{}),
	}
	r.publish()
	return r
}

func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once the room has been stopped.
func (r *Room) Done() <-chan struct{} {
	return r.quit
}

func (r *Room) Info() Info {
	return *r.info.Load()
}

// NumPlayers returns the current number of players.
func (r *Room) NumPlayers() int {
	return r.Info().Summary.PlayerCount
}

// post delivers cmd unless the room has stopped.
func (r *Room) post(cmd any) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.Inbox <- cmd:
		return true
	case <-r.quit:
		return false
	}
}

func (r *Room) Run() {
	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.Inbox:
			r.handleCommand(cmd)
			r.publish()
		}
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Join:
		c.Reply <- r.handleJoin(c)
	case ConfirmBet:
		c.Reply <- r.handleConfirm(c.ConnID)
	case Move:
		r.handleMove(c)
	case Leave:
		r.handleLeave(c.ConnID)
		if c.Done != nil {
			close(c.Done)
		}
	case Inspect:
		c.Reply <- r.snapshot()
	case timerFired:
		r.handleTimer(c)
	case settlementUpdate:
		r.broadcast(protocol.MsgSettlementStatus, protocol.SettlementStatus{
			PlayerID: c.update.PlayerID,
			Status:   string(c.update.Status),
		})
	case settlementDone:
		r.handleSettled(c.result)
	default:
		r.log.Warn("unknown room command", slog.Any("cmd", cmd))
	}
}

func (r *Room) handleJoin(c Join) error {
	id := c.Conn.ID()
	if _, ok := r.board.Players[id]; ok {
		return ErrAlreadyInRoom
	}
	if r.status != Waiting {
		return ErrWrongPhase
	}
	if len(r.board.Players) >= r.cfg.MaxPlayers {
		return ErrRoomFull
	}
	if c.BetAmount != 0 && c.BetAmount != r.betAmount {
		return ErrBetMismatch
	}

	p := r.board.Spawn(r.rng, id)
	p.WalletAddress = c.Wallet
	p.IsHost = c.Host
	r.clients[id] = c.Conn

	if c.Host {
		_ = c.Conn.Send(protocol.MsgRoomCreated, protocol.RoomCreated{RoomID: r.ID, BetAmount: r.betAmount})
	} else {
		_ = c.Conn.Send(protocol.MsgRoomJoined, protocol.RoomJoined{RoomID: r.ID, BetAmount: r.betAmount})
	}
	r.log.Info("player joined", slog.String("conn", id), slog.Bool("host", c.Host))
	r.broadcastState()
	return nil
}

func (r *Room) handleConfirm(id string) error {
	p, ok := r.board.Players[id]
	if !ok {
		return ErrNotInRoom
	}
	if r.status != Waiting {
		return ErrWrongPhase
	}
	if p.Ready {
		return ErrAlreadyReady
	}
	p.BetAmount = r.betAmount
	p.Ready = true
	r.pot += r.betAmount
	r.log.Info("bet confirmed", slog.String("conn", id), slog.Float64("pot", r.pot))

	r.maybeStart()
	r.broadcastState()
	return nil
}

// maybeStart moves waiting -> starting once everyone present is ready and
// there are enough of them.
func (r *Room) maybeStart() {
	if r.status != Waiting {
		return
	}
	ready := 0
	for _, p := range r.board.Players {
		if !p.Ready {
			return
		}
		ready++
	}
	if ready < r.cfg.MinPlayers {
		return
	}
	if !r.transition(Starting) {
		return
	}
	r.schedule(taskStart, Starting, r.cfg.StartDelay)
	r.broadcast(protocol.MsgGameStarting, protocol.GameStarting{
		StartsAt: r.now().Add(r.cfg.StartDelay).UnixMilli(),
	})
}

func (r *Room) handleMove(c Move) {
	if r.status != InProgress {
		return
	}
	if _, ok := r.board.Players[c.ConnID]; !ok {
		return
	}
	game.ApplyMove(r.board, c.ConnID, c.Direction, r.rng)
	r.broadcastState()
}

func (r *Room) handleLeave(id string) {
	p := r.board.Remove(id)
	if p == nil {
		return
	}
	r.pot -= p.BetAmount
	c, ok := r.clients[id]
	if ok {
		_ = c.Send(protocol.MsgRoomLeft, protocol.RoomLeft{RoomID: r.ID})
		delete(r.clients, id)
	}
	r.log.Info("player left",
		slog.String("conn", id),
		slog.String("status", string(r.status)),
		slog.Float64("pot", r.pot),
	)

	if (r.status == Waiting || r.status == Starting) && p.Ready {
		r.refund(p, c)
	}

	if len(r.board.Players) == 0 {
		r.teardown("empty")
		return
	}
	if p.IsHost {
		r.transferHost()
	}

	switch r.status {
	case InProgress:
		if len(r.board.Players) < r.cfg.MinPlayers {
			r.finish("not enough players")
		}
	case Waiting:
		r.maybeStart()
	}
	r.broadcastState()
}

func (r *Room) transferHost() {
	ids := make([]string, 0, len(r.board.Players))
	for id := range r.board.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r.board.Players[ids[0]].IsHost = true
	r.log.Info("host transferred", slog.String("conn", ids[0]))
}

func (r *Room) handleTimer(t timerFired) {
	if r.status != t.want {
		r.log.Debug("stale timer ignored",
			slog.String("task", t.task),
			slog.String("status", string(r.status)),
		)
		return
	}
	switch t.task {
	case taskStart:
		r.start()
	case taskEnd:
		r.finish("time")
	case taskReap:
		r.teardown("finished")
	}
}

func (r *Room) start() {
	if !r.transition(InProgress) {
		return
	}
	now := r.now()
	start := now.UnixMilli()
	end := now.Add(r.cfg.GameDuration).UnixMilli()
	r.startTime, r.endTime = &start, &end
	r.schedule(taskEnd, InProgress, r.cfg.GameDuration)

	r.broadcast(protocol.MsgGameStarted, protocol.GameStarted{StartTime: start, EndTime: end})
	r.broadcastState()

	// someone left while the countdown ran
	if len(r.board.Players) < r.cfg.MinPlayers {
		r.finish("not enough players")
	}
}

func (r *Room) finish(reason string) {
	if !r.transition(Finished) {
		return
	}
	r.sched.Cancel(r.ID, taskEnd)
	r.schedule(taskReap, Finished, r.cfg.FinishGrace)

	winners := game.Winners(r.board.Players, r.pot)
	gameID := uuid.NewString()
	r.log.Info("game finished",
		slog.String("game", gameID),
		slog.String("reason", reason),
		slog.Int("winners", len(winners)),
		slog.Float64("pot", r.pot),
	)
	r.broadcastState()
	r.broadcast(protocol.MsgGameEnded, protocol.GameEnded{
		Winners: winnerSnapshots(winners),
		Reason:  reason,
	})

	if len(winners) == 0 || r.settler == nil {
		return
	}
	r.settling = true
	go r.settle(gameID, winners)
}

// settle runs off the room loop against the winners computed at finish.
// The room may be gone by the time it returns; posts are then dropped.
func (r *Room) settle(gameID string, winners []game.Winner) {
	res := r.settler.Settle(context.Background(), r.ID, gameID, winners, func(u settlement.Update) {
		r.post(settlementUpdate{update: u})
	})
	if !r.post(settlementDone{result: res}) {
		r.log.Warn("room closed before settlement completed",
			slog.Bool("partialFailure", res.PartialFailure),
		)
	}
}

func (r *Room) handleSettled(res settlement.Result) {
	r.settling = false
	out := protocol.SettlementResult{
		GameID:         res.GameID,
		Skipped:        res.Skipped,
		PartialFailure: res.PartialFailure,
	}
	for _, o := range res.Outcomes {
		out.Winners = append(out.Winners, protocol.WinnerSnapshot{
			ID:    o.PlayerID,
			Score: o.Score,
			Prize: o.Prize,
		})
	}
	if res.PartialFailure {
		out.BlockchainError = "Failed to process winnings on blockchain"
		r.log.Error("settlement partially failed", slog.String("error", errString(res.Err())))
	}
	r.broadcast(protocol.MsgSettlementResult, out)
}

// refund credits the stake back off the room loop and tells the leaver how
// it went. conn may already be closed on a disconnect; the send then fails.
func (r *Room) refund(p *game.Player, conn Conn) {
	if r.settler == nil || p.WalletAddress == "" || p.BetAmount <= 0 {
		return
	}
	roomID, id, addr, amount := r.ID, p.ID, p.WalletAddress, p.BetAmount
	go func() {
		tx, err := r.settler.Refund(context.Background(), roomID, id, addr, amount)
		if conn == nil {
			return
		}
		status := protocol.RefundStatus{RoomID: roomID, Amount: amount, TxID: tx, Status: string(settlement.Confirmed)}
		if err != nil {
			status.Status = string(settlement.Failed)
		}
		_ = conn.Send(protocol.MsgRefundStatus, status)
	}()
}

func (r *Room) teardown(reason string) {
	r.sched.CancelAll(r.ID)
	r.log.Info("room closing", slog.String("reason", reason))
	if r.OnEmpty != nil {
		r.OnEmpty(r.ID)
	}
}

func (r *Room) transition(to Status) bool {
	if !canTransition(r.status, to) {
		r.log.Warn("refused status change",
			slog.String("from", string(r.status)),
			slog.String("to", string(to)),
		)
		return false
	}
	r.log.Debug("status change", slog.String("from", string(r.status)), slog.String("to", string(to)))
	r.status = to
	return true
}

func (r *Room) schedule(task string, want Status, d time.Duration) {
	r.sched.After(r.ID, task, d, func() {
		r.post(timerFired{task: task, want: want})
	})
}

func (r *Room) broadcast(msgType string, payload any) {
	for id, c := range r.clients {
		if err := c.Send(msgType, payload); err != nil {
			r.log.Debug("send failed", slog.String("conn", id), slog.String("error", err.Error()))
		}
	}
}

func (r *Room) broadcastState() {
	r.broadcast(protocol.MsgGameState, r.buildState())
}

func (r *Room) buildState() protocol.GameState {
	st := protocol.GameState{
		RoomID:     r.ID,
		Tick:       r.board.Tick,
		Players:    make([]protocol.PlayerSnapshot, 0, len(r.board.Players)),
		Food:       r.board.Food,
		GridSize:   r.board.GridSize,
		GameStatus: string(r.status),
		StartTime:  r.startTime,
		EndTime:    r.endTime,
		PotAmount:  r.pot,
	}
	for _, p := range r.board.Players {
		st.Players = append(st.Players, protocol.PlayerSnapshot{
			ID:            p.ID,
			Position:      p.Position,
			Snake:         append([]game.Position(nil), p.Snake...),
			Direction:     p.Direction,
			Score:         p.Score,
			BetAmount:     p.BetAmount,
			Ready:         p.Ready,
			IsHost:        p.IsHost,
			WalletAddress: p.WalletAddress,
		})
	}
	sort.Slice(st.Players, func(i, j int) bool { return st.Players[i].ID < st.Players[j].ID })
	return st
}

func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		ID:        r.ID,
		Status:    r.status,
		Pot:       r.pot,
		BetAmount: r.betAmount,
		Food:      r.board.Food,
		GridSize:  r.board.GridSize,
		Players:   make(map[string]game.Player, len(r.board.Players)),
		StartTime: r.startTime,
		EndTime:   r.endTime,
		Settling:  r.settling,
	}
	for id, p := range r.board.Players {
		cp := *p
		cp.Snake = append([]game.Position(nil), p.Snake...)
		s.Players[id] = cp
	}
	return s
}

// publish refreshes the listing view, notifying OnChange when it differs.
func (r *Room) publish() {
	next := &Info{
		Summary: protocol.RoomSummary{
			ID:          r.ID,
			Creator:     r.creator,
			BetAmount:   r.betAmount,
			PlayerCount: len(r.board.Players),
			MaxPlayers:  r.cfg.MaxPlayers,
			CreatedAt:   r.createdAt.UnixMilli(),
		},
		Status:    r.status,
		IsPrivate: r.isPrivate,
	}
	prev := r.info.Swap(next)
	if prev != nil && *prev != *next && r.OnChange != nil {
		r.OnChange(r.ID)
	}
}

func winnerSnapshots(ws []game.Winner) []protocol.WinnerSnapshot {
	out := make([]protocol.WinnerSnapshot, 0, len(ws))
	for _, w := range ws {
		out = append(out, protocol.WinnerSnapshot{ID: w.PlayerID, Score: w.Score, Prize: w.Prize})
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
