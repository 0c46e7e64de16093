package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"snakepit/game"
)

type fakeGateway struct {
	mu       sync.Mutex
	calls    []string
	payouts  []string
	fail     map[string]error  // submit error by address
	final    map[string]Status // final status by address, default Confirmed
	hang     map[string]bool
	credited []string
	rewards  []bool
}

func (f *fakeGateway) SubmitSettlement(ctx context.Context, payoutID, roomID, addr string) (<-chan Status, error) {
	f.mu.Lock()
	f.calls = append(f.calls, addr)
	f.payouts = append(f.payouts, payoutID)
	err := f.fail[addr]
	final, ok := f.final[addr]
	hang := f.hang[addr]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		final = Confirmed
	}
	ch := make(chan Status, 2)
	if hang {
		ch <- Pending
		return ch, nil
	}
	ch <- Pending
	ch <- final
	close(ch)
	return ch, nil
}

func (f *fakeGateway) CreditPlayer(ctx context.Context, addr string, amount float64, isReward bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credited = append(f.credited, addr)
	f.rewards = append(f.rewards, isReward)
	return "tx-" + addr, nil
}

func TestSettleAllConfirmed(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSettler(gw, nil, time.Second)
	winners := []game.Winner{
		{PlayerID: "a", WalletAddress: "0xa", Prize: 10},
		{PlayerID: "b", WalletAddress: "0xb", Prize: 10},
	}
	var mu sync.Mutex
	seen := map[string][]Status{}
	res := s.Settle(context.Background(), "R1", "G1", winners, func(u Update) {
		mu.Lock()
		seen[u.PlayerID] = append(seen[u.PlayerID], u.Status)
		mu.Unlock()
	})
	if res.PartialFailure {
		t.Fatalf("unexpected partial failure: %v", res.Err())
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(res.Outcomes))
	}
	for _, id := range []string{"a", "b"} {
		st := seen[id]
		if len(st) != 2 || st[0] != Pending || st[1] != Confirmed {
			t.Fatalf("updates for %s = %v, want [pending confirmed]", id, st)
		}
	}
}

func TestSettleSkipsWinnersWithoutWallet(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSettler(gw, nil, time.Second)
	res := s.Settle(context.Background(), "R1", "G1", []game.Winner{
		{PlayerID: "a", WalletAddress: "0xa"},
		{PlayerID: "b"},
	}, nil)
	if len(res.Skipped) != 1 || res.Skipped[0] != "b" {
		t.Fatalf("skipped = %v, want [b]", res.Skipped)
	}
	if len(gw.calls) != 1 || gw.calls[0] != "0xa" {
		t.Fatalf("gateway calls = %v, want [0xa]", gw.calls)
	}
	if res.PartialFailure {
		t.Fatalf("skipping is not a failure")
	}
}

func TestSettleOneFailureDoesNotStopOthers(t *testing.T) {
	gw := &fakeGateway{
		fail:  map[string]error{"0xa": errors.New("rpc down")},
		final: map[string]Status{"0xc": Failed},
	}
	s := NewSettler(gw, nil, time.Second)
	res := s.Settle(context.Background(), "R1", "G1", []game.Winner{
		{PlayerID: "a", WalletAddress: "0xa"},
		{PlayerID: "b", WalletAddress: "0xb"},
		{PlayerID: "c", WalletAddress: "0xc"},
	}, nil)
	if !res.PartialFailure {
		t.Fatalf("expected partial failure")
	}
	byID := map[string]Status{}
	for _, o := range res.Outcomes {
		byID[o.PlayerID] = o.Status
	}
	if byID["a"] != Failed || byID["b"] != Confirmed || byID["c"] != Failed {
		t.Fatalf("statuses = %v", byID)
	}
	if res.Err() == nil {
		t.Fatalf("expected joined error")
	}
}

func TestSettleTimesOutHungGateway(t *testing.T) {
	gw := &fakeGateway{hang: map[string]bool{"0xa": true}}
	s := NewSettler(gw, nil, 30*time.Millisecond)
	done := make(chan Result, 1)
	go func() {
		done <- s.Settle(context.Background(), "R1", "G1", []game.Winner{{PlayerID: "a", WalletAddress: "0xa"}}, nil)
	}()
	select {
	case res := <-done:
		if !res.PartialFailure || !errors.Is(res.Outcomes[0].Err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline failure, got %+v", res.Outcomes)
		}
	case <-time.After(time.Second):
		t.Fatalf("settle did not honor timeout")
	}
}

func TestRefund(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSettler(gw, nil, time.Second)
	tx, err := s.Refund(context.Background(), "R1", "a", "0xa", 10)
	if err != nil || tx != "tx-0xa" {
		t.Fatalf("refund = %q, %v", tx, err)
	}
	if tx, err := s.Refund(context.Background(), "R1", "b", "", 10); tx != "" || err != nil {
		t.Fatalf("refund without wallet should be a no-op, got %q, %v", tx, err)
	}
	if len(gw.credited) != 1 {
		t.Fatalf("credited = %v", gw.credited)
	}
}

func TestSettlePayoutIDsAreUniquePerWinner(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSettler(gw, nil, time.Second)
	// tied winners sharing one wallet still get separate payouts
	res := s.Settle(context.Background(), "R1", "G7", []game.Winner{
		{PlayerID: "a", WalletAddress: "0xa"},
		{PlayerID: "b", WalletAddress: "0xa"},
	}, nil)
	if res.PartialFailure || res.GameID != "G7" {
		t.Fatalf("unexpected result %+v", res)
	}
	seen := map[string]bool{}
	for _, id := range gw.payouts {
		seen[id] = true
	}
	if len(seen) != 2 || !seen["G7/a"] || !seen["G7/b"] {
		t.Fatalf("payout ids = %v", gw.payouts)
	}
}

func TestRewardCreditsAsReward(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSettler(gw, nil, time.Second)
	tx, err := s.Reward(context.Background(), "p1", "0xa", 0.5)
	if err != nil || tx != "tx-0xa" {
		t.Fatalf("reward = %q, %v", tx, err)
	}
	if _, err := s.Refund(context.Background(), "R1", "p1", "0xa", 1); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if len(gw.rewards) != 2 || !gw.rewards[0] || gw.rewards[1] {
		t.Fatalf("isReward flags = %v, want [true false]", gw.rewards)
	}
	if tx, err := s.Reward(context.Background(), "p1", "0xa", 0); tx != "" || err != nil {
		t.Fatalf("zero reward should be a no-op, got %q, %v", tx, err)
	}
}
