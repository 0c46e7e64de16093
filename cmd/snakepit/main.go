package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snakepit/config"
	"snakepit/ledger"
	"snakepit/network"
	"snakepit/room"
	"snakepit/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("error loading config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	var settler *settlement.Settler
	if cfg.LedgerDSN != "" {
		l, err := ledger.Open(cfg.LedgerDSN, log)
		if err != nil {
			log.Error("error opening ledger", slog.String("dsn", cfg.LedgerDSN), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer l.Close()
		settler = settlement.NewSettler(l, log, cfg.SettlementTimeout)
		mux.Handle("/ledger", l.Handler())
	} else {
		log.Warn("no ledger configured, games will not be settled")
	}

	mgr := room.NewManager(cfg.RoomSettings(), settler, log)
	defer mgr.Close()

	mux.Handle("/ws", network.NewHandler(mgr, network.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		MoveRate:      cfg.MoveRate,
		MoveBurst:     cfg.MoveBurst,
		Log:           log,
	}))
	mux.Handle("/rooms", withCORS(cfg.AllowedOrigin, network.RoomsHandler(mgr)))
	mux.HandleFunc("/healthz", network.Healthz)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", slog.String("error", err.Error()))
		}
	}()

	log.Info("server listening", slog.String("addr", cfg.Addr), slog.String("ws", "/ws"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", slog.String("error", err.Error()))
		return
	}
	log.Info("server stopped")
}

func withCORS(origin string, next http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
