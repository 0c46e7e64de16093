// Package ledger is a local stand-in for the on-chain settlement contract.
// It records settlements and credits in SQLite so a development server has a
// working settlement.Gateway without a chain.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"snakepit/settlement"
)

type Ledger struct {
	db  *sql.DB
	log *slog.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settlements (
		tx_id TEXT PRIMARY KEY,
		payout_id TEXT,
		room_id TEXT NOT NULL,
		winner TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS credits (
		tx_id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		amount REAL NOT NULL,
		is_reward INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_room ON settlements(room_id);`,
}

// migrations bring databases created before payout ids up to date. Room
// codes are reused, so (room_id, winner) is not a payout key.
var migrations = []string{
	`ALTER TABLE settlements ADD COLUMN payout_id TEXT;`,
	`DROP INDEX IF EXISTS idx_settlements_room_winner;`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_payout ON settlements(payout_id);`,
}

// Open opens (creating if needed) the ledger database at dsn. ":memory:" is
// accepted for tests.
func Open(dsn string, log *slog.Logger) (*Ledger, error) {
	if log == nil {
		log = slog.Default()
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Warn("couldn't enable WAL mode", slog.String("error", err.Error()))
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		log.Warn("couldn't set busy timeout", slog.String("error", err.Error()))
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			db.Close()
			return nil, fmt.Errorf("migrate ledger schema: %w", err)
		}
	}
	log.Info("ledger initialized", slog.String("dsn", dsn))
	return &Ledger{db: db, log: log}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

var _ settlement.Gateway = (*Ledger)(nil)

// SubmitSettlement records a confirmed payout. Submitting the same payoutID
// again fails.
func (l *Ledger) SubmitSettlement(ctx context.Context, payoutID, roomID, winnerAddress string) (<-chan settlement.Status, error) {
	out := make(chan settlement.Status, 2)
	out <- settlement.Pending

	go func() {
		defer close(out)
		txID := uuid.NewString()
		_, err := l.db.ExecContext(ctx,
			`INSERT INTO settlements (tx_id, payout_id, room_id, winner, status) VALUES (?, ?, ?, ?, ?)`,
			txID, payoutID, roomID, strings.ToLower(winnerAddress), string(settlement.Confirmed))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				err = fmt.Errorf("payout %s already settled", payoutID)
			}
			l.log.Error("settlement insert failed",
				slog.String("room", roomID),
				slog.String("payout", payoutID),
				slog.String("error", err.Error()),
			)
			out <- settlement.Failed
			return
		}
		out <- settlement.Confirmed
	}()
	return out, nil
}

func (l *Ledger) CreditPlayer(ctx context.Context, address string, amount float64, isReward bool) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("credit amount must be positive, got %v", amount)
	}
	txID := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO credits (tx_id, address, amount, is_reward) VALUES (?, ?, ?, ?)`,
		txID, strings.ToLower(address), amount, isReward)
	if err != nil {
		return "", fmt.Errorf("credit %s: %w", address, err)
	}
	return txID, nil
}

type Settlement struct {
	TxID     string            `json:"txId"`
	PayoutID string            `json:"payoutId"`
	RoomID   string            `json:"roomId"`
	Winner   string            `json:"winner"`
	Status   settlement.Status `json:"status"`
}

// Settlements lists recorded payouts for a room code, across every game
// played under it, oldest first.
func (l *Ledger) Settlements(ctx context.Context, roomID string) ([]Settlement, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT tx_id, COALESCE(payout_id, ''), room_id, winner, status FROM settlements WHERE room_id = ? ORDER BY rowid`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Settlement
	for rows.Next() {
		var s Settlement
		var status string
		if err := rows.Scan(&s.TxID, &s.PayoutID, &s.RoomID, &s.Winner, &status); err != nil {
			return nil, err
		}
		s.Status = settlement.Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Balance sums every credit made to address.
func (l *Ledger) Balance(ctx context.Context, address string) (float64, error) {
	var total sql.NullFloat64
	err := l.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM credits WHERE address = ?`, strings.ToLower(address)).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// Handler exposes read-only ledger queries for local development:
// GET ?room=ID lists settlements, GET ?address=0x.. returns a balance.
func (l *Ledger) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		switch {
		case q.Get("room") != "":
			rows, err := l.Settlements(r.Context(), q.Get("room"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if rows == nil {
				rows = []Settlement{}
			}
			_ = json.NewEncoder(w).Encode(rows)
		case q.Get("address") != "":
			bal, err := l.Balance(r.Context(), q.Get("address"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]float64{"balance": bal})
		default:
			http.Error(w, "room or address required", http.StatusBadRequest)
		}
	})
}
