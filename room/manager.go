package room

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	mrand "math/rand"
	"sort"
	"sync"
	"time"

	"snakepit/game"
	"snakepit/protocol"
	"snakepit/schedule"
	"snakepit/settlement"
)

// Manager owns every live room, which room each connection belongs to,
// solo practice games, and the lobby subscribers that receive room listings.
// Its lock only guards those maps; room state belongs to each room's loop.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	members  map[string]string // conn id -> room id
	practice map[string]*Practice
	lobby    map[string]Conn

	cfg     Settings
	sched   *schedule.Scheduler
	settler *settlement.Settler
	log     *slog.Logger
	now     func() time.Time
	newID   func() string

	seedMu sync.Mutex
	seeds  *mrand.Rand
}

type Option func(*Manager)

// WithIDGenerator replaces the random room code source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSeed makes food and spawn placement reproducible.
func WithSeed(seed int64) Option {
	return func(m *Manager) { m.seeds = mrand.New(mrand.NewSource(seed)) }
}

func NewManager(cfg Settings, settler *settlement.Settler, log *slog.Logger, opts ...Option) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		rooms:    make(map[string]*Room),
		members:  make(map[string]string),
		practice: make(map[string]*Practice),
		lobby:    make(map[string]Conn),
		cfg:      cfg,
		sched:    schedule.New(),
		settler:  settler,
		log:      log,
		now:      time.Now,
		newID:    func() string { return generateCode(codeLen) },
		seeds:    mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type CreateOptions struct {
	BetAmount float64
	IsPrivate bool
	Creator   string
	Wallet    string
}

// CreateRoom generates a unique code, starts the room and seats conn as host.
func (m *Manager) CreateRoom(conn Conn, opts CreateOptions) (*Room, error) {
	creator := opts.Creator
	if creator == "" {
		creator = conn.ID()
	}

	m.mu.Lock()
	if _, busy := m.members[conn.ID()]; busy {
		m.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	id, err := m.uniqueIDLocked()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	r := newRoom(id, m.cfg, opts.BetAmount, opts.IsPrivate, creator, m.roomDeps())
	r.OnEmpty = m.RemoveRoom
	r.OnChange = m.roomChanged
	m.rooms[id] = r
	m.mu.Unlock()

	go r.Run()
	m.log.Info("room created",
		slog.String("room", id),
		slog.String("creator", creator),
		slog.Float64("bet", opts.BetAmount),
		slog.Bool("private", opts.IsPrivate),
	)

	if err := m.seat(r, Join{Conn: conn, Wallet: opts.Wallet, Host: true}); err != nil {
		m.RemoveRoom(id)
		return nil, err
	}
	return r, nil
}

const maxIDAttempts = 64

// uniqueIDLocked retries the generator until it yields an unused code.
func (m *Manager) uniqueIDLocked() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := m.newID()
		if _, exists := m.rooms[id]; exists {
			m.log.Debug("room id collision, retrying", slog.String("room", id))
			continue
		}
		return id, nil
	}
	return "", ErrIDSpace
}

func (m *Manager) roomDeps() deps {
	m.seedMu.Lock()
	seed := m.seeds.Int63()
	m.seedMu.Unlock()
	return deps{
		sched:   m.sched,
		settler: m.settler,
		log:     m.log,
		now:     m.now,
		rng:     mrand.New(mrand.NewSource(seed)),
	}
}

// JoinRoom seats conn in an existing waiting room.
func (m *Manager) JoinRoom(roomID string, conn Conn, wallet string, betAmount float64) error {
	m.mu.RLock()
	_, busy := m.members[conn.ID()]
	r, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if busy {
		return ErrAlreadyInRoom
	}
	if !ok {
		return ErrRoomNotFound
	}
	return m.seat(r, Join{Conn: conn, Wallet: wallet, BetAmount: betAmount})
}

func (m *Manager) seat(r *Room, j Join) error {
	reply := make(chan error, 1)
	j.Reply = reply
	if err := m.request(r, j, reply); err != nil {
		return err
	}
	m.mu.Lock()
	m.members[j.Conn.ID()] = r.ID
	m.mu.Unlock()
	return nil
}

// request posts cmd to r and waits for the reply, failing if the room stops.
func (m *Manager) request(r *Room, cmd any, reply <-chan error) error {
	if !r.post(cmd) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.Done():
		return ErrRoomClosed
	}
}

// memberRoom resolves the room a connection sits in, checking it matches
// the id the client named.
func (m *Manager) memberRoom(connID, roomID string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if m.members[connID] != roomID {
		return nil, ErrNotInRoom
	}
	return r, nil
}

func (m *Manager) ConfirmBet(connID, roomID string) error {
	r, err := m.memberRoom(connID, roomID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return m.request(r, ConfirmBet{ConnID: connID, Reply: reply}, reply)
}

// Move forwards a move; outside inProgress the room ignores it.
func (m *Manager) Move(connID, roomID string, d game.Direction) error {
	r, err := m.memberRoom(connID, roomID)
	if err != nil {
		return err
	}
	if !r.post(Move{ConnID: connID, Direction: d}) {
		return ErrRoomClosed
	}
	return nil
}

// Leave removes conn from whatever room it is in and waits for the room to
// process it. It reports the room id, if any.
func (m *Manager) Leave(connID string) (string, bool) {
	m.mu.Lock()
	roomID, ok := m.members[connID]
	delete(m.members, connID)
	r := m.rooms[roomID]
	m.mu.Unlock()
	if !ok || r == nil {
		return "", false
	}
	done := make(chan struct{})
	if r.post(Leave{ConnID: connID, Done: done}) {
		select {
		case <-done:
		case <-r.Done():
		}
	}
	return roomID, true
}

// Disconnect tears down everything scoped to a connection.
func (m *Manager) Disconnect(connID string) {
	m.Unsubscribe(connID)
	m.EndPractice(connID)
	if roomID, ok := m.Leave(connID); ok {
		m.log.Info("player disconnected", slog.String("conn", connID), slog.String("room", roomID))
	}
}

// RemoveRoom stops a room and drops its timers and memberships. Safe to call
// more than once.
func (m *Manager) RemoveRoom(id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
		for conn, rid := range m.members {
			if rid == id {
				delete(m.members, conn)
			}
		}
	}
	m.mu.Unlock()
	m.sched.CancelAll(id)
	if !ok {
		return
	}
	r.Stop()
	m.log.Info("room removed", slog.String("room", id))
	m.roomChanged(id)
}

func (m *Manager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RoomOf returns the id of the room conn is in.
func (m *Manager) RoomOf(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.members[connID]
	return id, ok
}

// Inspect returns a copy of a room's state.
func (m *Manager) Inspect(id string) (Snapshot, error) {
	r, ok := m.Room(id)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	reply := make(chan Snapshot, 1)
	if !r.post(Inspect{Reply: reply}) {
		return Snapshot{}, ErrRoomClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.Done():
		return Snapshot{}, ErrRoomClosed
	}
}

// ListPublicRooms returns public rooms still accepting players, oldest first.
func (m *Manager) ListPublicRooms() []protocol.RoomSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publicRoomsLocked()
}

func (m *Manager) publicRoomsLocked() []protocol.RoomSummary {
	out := make([]protocol.RoomSummary, 0, len(m.rooms))
	for _, r := range m.rooms {
		info := r.Info()
		if info.IsPrivate || info.Status != Waiting {
			continue
		}
		out = append(out, info.Summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Subscribe adds conn to the lobby; it receives publicRooms updates while it
// is not seated in a room.
func (m *Manager) Subscribe(conn Conn) {
	m.mu.Lock()
	m.lobby[conn.ID()] = conn
	m.mu.Unlock()
}

func (m *Manager) Unsubscribe(connID string) {
	m.mu.Lock()
	delete(m.lobby, connID)
	m.mu.Unlock()
}

func (m *Manager) roomChanged(string) {
	m.mu.RLock()
	list := protocol.PublicRooms{Rooms: m.publicRoomsLocked()}
	targets := make([]Conn, 0, len(m.lobby))
	for id, c := range m.lobby {
		if _, seated := m.members[id]; seated {
			continue
		}
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	for _, c := range targets {
		_ = c.Send(protocol.MsgPublicRooms, list)
	}
}

// Close stops every room and pending timer.
func (m *Manager) Close() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for id, r := range m.rooms {
		rooms = append(rooms, r)
		delete(m.rooms, id)
	}
	m.members = make(map[string]string)
	m.practice = make(map[string]*Practice)
	m.mu.Unlock()

	m.sched.Stop()
	for _, r := range rooms {
		r.Stop()
	}
}

const (
	codeLen   = 6
	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand: %v", err))
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
