package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"snakepit/game"
	"snakepit/settlement"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func drain(t *testing.T, ch <-chan settlement.Status) []settlement.Status {
	t.Helper()
	var out []settlement.Status
	timeout := time.After(time.Second)
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, st)
		case <-timeout:
			t.Fatalf("status stream never closed")
		}
	}
}

func TestSubmitSettlementConfirms(t *testing.T) {
	l := openTest(t)
	ch, err := l.SubmitSettlement(context.Background(), "g1/a", "ROOM01", "0xABC")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := drain(t, ch)
	if len(got) != 2 || got[0] != settlement.Pending || got[1] != settlement.Confirmed {
		t.Fatalf("statuses = %v", got)
	}
	rows, err := l.Settlements(context.Background(), "ROOM01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Winner != "0xabc" || rows[0].PayoutID != "g1/a" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestSubmitSamePayoutTwiceFails(t *testing.T) {
	l := openTest(t)
	drain(t, mustSubmit(t, l, "g1/a", "ROOM01", "0xabc"))
	got := drain(t, mustSubmit(t, l, "g1/a", "ROOM01", "0xABC"))
	if got[len(got)-1] != settlement.Failed {
		t.Fatalf("duplicate settlement final status = %v", got)
	}
}

func TestReusedRoomCodeSettlesAgain(t *testing.T) {
	l := openTest(t)
	// same code and wallet: a later game, then a tied winner sharing the wallet
	for _, payout := range []string{"g1/a", "g2/a", "g2/b"} {
		got := drain(t, mustSubmit(t, l, payout, "ROOM01", "0xabc"))
		if got[len(got)-1] != settlement.Confirmed {
			t.Fatalf("payout %s final status = %v", payout, got)
		}
	}
	rows, err := l.Settlements(context.Background(), "ROOM01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
}

func TestOpenMigratesOldSchema(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE settlements (tx_id TEXT PRIMARY KEY, room_id TEXT NOT NULL, winner TEXT NOT NULL, status TEXT NOT NULL, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP);`,
		`CREATE UNIQUE INDEX idx_settlements_room_winner ON settlements(room_id, winner);`,
		`INSERT INTO settlements (tx_id, room_id, winner, status) VALUES ('old', 'ROOM01', '0xabc', 'confirmed');`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	db.Close()

	l, err := Open(dsn, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()
	got := drain(t, mustSubmit(t, l, "g2/a", "ROOM01", "0xabc"))
	if got[len(got)-1] != settlement.Confirmed {
		t.Fatalf("final status after migration = %v", got)
	}
}

func mustSubmit(t *testing.T, l *Ledger, payout, room, addr string) <-chan settlement.Status {
	t.Helper()
	ch, err := l.SubmitSettlement(context.Background(), payout, room, addr)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return ch
}

func TestCreditAndBalance(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	if _, err := l.CreditPlayer(ctx, "0xabc", 2.5, false); err != nil {
		t.Fatalf("credit: %v", err)
	}
	tx, err := l.CreditPlayer(ctx, "0xABC", 7.5, true)
	if err != nil || tx == "" {
		t.Fatalf("credit: %q %v", tx, err)
	}
	bal, err := l.Balance(ctx, "0xAbc")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 10 {
		t.Fatalf("balance = %v, want 10", bal)
	}
	if _, err := l.CreditPlayer(ctx, "0xabc", 0, false); err == nil {
		t.Fatalf("zero credit should fail")
	}
}

func TestLedgerBacksSettler(t *testing.T) {
	l := openTest(t)
	s := settlement.NewSettler(l, nil, time.Second)
	res := s.Settle(context.Background(), "ROOM02", "g1", []game.Winner{
		{PlayerID: "a", WalletAddress: "0xaaa", Prize: 5},
		{PlayerID: "b", WalletAddress: "0xbbb", Prize: 5},
	}, nil)
	if res.PartialFailure {
		t.Fatalf("unexpected failure: %v", res.Err())
	}
	rows, _ := l.Settlements(context.Background(), "ROOM02")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestHandler(t *testing.T) {
	l := openTest(t)
	drain(t, mustSubmit(t, l, "g1/a", "ROOM03", "0xabc"))

	rec := httptest.NewRecorder()
	l.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?room=ROOM03", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []Settlement
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].RoomID != "ROOM03" {
		t.Fatalf("rows = %+v", rows)
	}

	rec = httptest.NewRecorder()
	l.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
