package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/subculture-collective/masquerade/db"
)

// Datastore is the persistence surface the HTTP handlers need; *db.Store satisfies it.
type Datastore interface {
	Ping(ctx context.Context) error
	RelayOwner(ctx context.Context, messageID uint64) (uint64, bool)
	CountStats(ctx context.Context) (db.Stats, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store   Datastore
	started time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(store Datastore) *Handlers {
	return &Handlers{store: store, started: time.Now()}
}

// HandleStatus reports uptime and table sizes.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.CountStats(r.Context())
	if err != nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"counts":         stats,
	})
}

// HandleProvenance resolves the real author of a relayed message by message_id.
// Responds 404 when no provenance record exists.
func (h *Handlers) HandleProvenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := r.URL.Query().Get("message_id")
	messageID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid message_id", http.StatusBadRequest)
		return
	}
	userID, ok := h.store.RelayOwner(r.Context(), messageID)
	if !ok {
		http.Error(w, "no provenance record", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]uint64{
		"message_id": messageID,
		"user_id":    userID,
	})
}
