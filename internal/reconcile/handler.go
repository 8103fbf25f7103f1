package reconcile

import (
	"net/http"

	"tradejournal/internal/httputil"
)

type Handler struct {
	engine    *Engine
	scheduler *Scheduler
}

// NewHandler wires the sync endpoints. scheduler may be nil when the
// background job is disabled; manual triggers still work.
func NewHandler(engine *Engine, scheduler *Scheduler) *Handler {
	return &Handler{engine: engine, scheduler: scheduler}
}

func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request, userID string) {
	stats, err := h.engine.SyncOnce(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

type statusResponse struct {
	SchedulerRunning bool   `json:"scheduler_running"`
	Syncing          bool   `json:"syncing"`
	LastRun          *Stats `json:"last_run"`
	LastError        string `json:"last_error,omitempty"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request, userID string) {
	lastRun, lastErr := h.engine.LastRun()
	resp := statusResponse{
		Syncing:   h.engine.IsSyncing(),
		LastRun:   lastRun,
		LastError: lastErr,
	}
	if h.scheduler != nil {
		resp.SchedulerRunning = h.scheduler.IsRunning()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
