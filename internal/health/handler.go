package health

import (
	"context"
	"net/http"
	"time"

	"tradejournal/internal/httputil"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	pool      *pgxpool.Pool
	startedAt time.Time
}

func NewHandler(pool *pgxpool.Pool, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{pool: pool, startedAt: start}
}

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	UptimeSec int64          `json:"uptime_sec"`
	Database  databaseStatus `json:"database"`
}

type databaseStatus struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

// Health checks the primary dependency (database) and returns 503 when
// it is not reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		uptime = 0
	}

	db := databaseStatus{}
	pingStart := time.Now()
	pingCtx, cancel := context.WithTimeout(r.Context(), time.Second)
	err := h.pool.Ping(pingCtx)
	cancel()
	db.PingMs = time.Since(pingStart).Milliseconds()
	if err != nil {
		db.Error = err.Error()
	} else {
		db.Reachable = true
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !db.Reachable {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, healthResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Database:  db,
	})
}
