// Package settlement is the boundary to the external ledger that pays out a
// finished room. The ledger itself (escrow, signing, gas) lives behind
// Gateway; this package only fans the calls out and collects their outcome.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"snakepit/game"
)

type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Failed    Status = "failed"
)

// Gateway is implemented by the ledger client.
type Gateway interface {
	// SubmitSettlement pays roomID's pot share to winnerAddress. payoutID
	// identifies this one payout (game and winner) so a retried call can be
	// recognised; room ids are reused once a room is gone. The returned
	// channel yields status changes and is closed once the call has
	// resolved; the last value is the final status.
	SubmitSettlement(ctx context.Context, payoutID, roomID, winnerAddress string) (<-chan Status, error)
	// CreditPlayer moves amount to address and returns the transaction id.
	CreditPlayer(ctx context.Context, address string, amount float64, isReward bool) (string, error)
}

type Update struct {
	RoomID   string
	PlayerID string
	Status   Status
	Err      error
}

type Outcome struct {
	game.Winner
	Status Status
	Err    error
}

type Result struct {
	RoomID         string
	GameID         string
	Outcomes       []Outcome
	Skipped        []string // winners without a wallet
	PartialFailure bool
}

// Err joins every failed winner's error, nil if all succeeded.
func (r Result) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.PlayerID, o.Err))
		}
	}
	return errors.Join(errs...)
}

var ErrNoFinalStatus = errors.New("status stream closed without a final status")

type Settler struct {
	gw      Gateway
	log     *slog.Logger
	timeout time.Duration
}

func NewSettler(gw Gateway, log *slog.Logger, timeout time.Duration) *Settler {
	if log == nil {
		log = slog.Default()
	}
	return &Settler{gw: gw, log: log, timeout: timeout}
}

// PayoutID names one winner's payout within one game.
func PayoutID(gameID, playerID string) string {
	return gameID + "/" + playerID
}

// Settle submits one settlement per winner that has a wallet. gameID is
// unique per finished game. Calls run concurrently and independently; a
// failed winner never cancels the others. onUpdate may be nil and is called
// from the worker goroutines.
func (s *Settler) Settle(ctx context.Context, roomID, gameID string, winners []game.Winner, onUpdate func(Update)) Result {
	res := Result{RoomID: roomID, GameID: gameID}
	notify := func(u Update) {
		if onUpdate != nil {
			onUpdate(u)
		}
	}

	var payable []game.Winner
	for _, w := range winners {
		if w.WalletAddress == "" {
			s.log.Warn("winner has no wallet address, skipping settlement",
				slog.String("room", roomID),
				slog.String("player", w.PlayerID),
			)
			res.Skipped = append(res.Skipped, w.PlayerID)
			continue
		}
		payable = append(payable, w)
	}

	res.Outcomes = make([]Outcome, len(payable))
	var wg sync.WaitGroup
	for i, w := range payable {
		i, w := i, w
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := s.settleOne(ctx, roomID, PayoutID(gameID, w.PlayerID), w, notify)
			res.Outcomes[i] = Outcome{Winner: w, Status: st, Err: err}
		}()
	}
	wg.Wait()

	for _, o := range res.Outcomes {
		if o.Status != Confirmed {
			res.PartialFailure = true
		}
	}
	return res
}

func (s *Settler) settleOne(ctx context.Context, roomID, payoutID string, w game.Winner, notify func(Update)) (Status, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	log := s.log.With(slog.String("room", roomID), slog.String("player", w.PlayerID))

	fail := func(err error) (Status, error) {
		log.Error("settlement failed", slog.String("error", err.Error()))
		notify(Update{RoomID: roomID, PlayerID: w.PlayerID, Status: Failed, Err: err})
		return Failed, err
	}

	statuses, err := s.gw.SubmitSettlement(ctx, payoutID, roomID, w.WalletAddress)
	if err != nil {
		return fail(err)
	}

	last := Status("")
	for {
		select {
		case st, ok := <-statuses:
			if !ok {
				switch last {
				case Confirmed:
					log.Info("settlement confirmed", slog.Float64("prize", w.Prize))
					return Confirmed, nil
				case Failed:
					return Failed, fmt.Errorf("ledger reported failure for %s", w.WalletAddress)
				}
				return fail(ErrNoFinalStatus)
			}
			last = st
			log.Debug("settlement status", slog.String("status", string(st)))
			notify(Update{RoomID: roomID, PlayerID: w.PlayerID, Status: st})
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}
}

// Refund returns a stake to a player who left before the game ran.
func (s *Settler) Refund(ctx context.Context, roomID, playerID, address string, amount float64) (string, error) {
	return s.credit(ctx, "refund", slog.String("room", roomID), playerID, address, amount, false)
}

// Reward pays a practice reward to address.
func (s *Settler) Reward(ctx context.Context, playerID, address string, amount float64) (string, error) {
	return s.credit(ctx, "reward", slog.String("mode", "practice"), playerID, address, amount, true)
}

func (s *Settler) credit(ctx context.Context, kind string, scope slog.Attr, playerID, address string, amount float64, isReward bool) (string, error) {
	if address == "" || amount <= 0 {
		return "", nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	log := s.log.With(scope, slog.String("player", playerID), slog.Float64("amount", amount))
	tx, err := s.gw.CreditPlayer(ctx, address, amount, isReward)
	if err != nil {
		log.Error(kind+" failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%s %s: %w", kind, playerID, err)
	}
	log.Info(kind+" credited", slog.String("tx", tx))
	return tx, nil
}
