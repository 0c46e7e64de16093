package network

import (
	"encoding/json"
	"net/http"

	"snakepit/protocol"
	"snakepit/room"
)

// RoomsHandler serves the public room listing over plain HTTP.
func RoomsHandler(mgr *room.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, protocol.PublicRooms{Rooms: mgr.ListPublicRooms()})
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
