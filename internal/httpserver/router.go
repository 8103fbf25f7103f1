package httpserver

import (
	"net/http"

	"tradejournal/internal/auth"
	"tradejournal/internal/health"
	"tradejournal/internal/httputil"
	"tradejournal/internal/positions"
	"tradejournal/internal/reconcile"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	AuthHandler      *auth.Handler
	PositionsHandler *positions.Handler
	SyncHandler      *reconcile.Handler
	HealthHandler    *health.Handler
	AuthService      *auth.Service
	Log              zerolog.Logger
}

// userHandler adapts a handler that needs the authenticated user id.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// positionHandler additionally takes the position id from the route.
type positionHandler func(w http.ResponseWriter, r *http.Request, userID, positionID string)

func withUser(fn userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		fn(w, r, userID)
	}
}

func withPosition(fn positionHandler) http.HandlerFunc {
	return withUser(func(w http.ResponseWriter, r *http.Request, userID string) {
		fn(w, r, userID, chi.URLParam(r, "id"))
	})
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(d.Log))
	r.Use(CORS)
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", withUser(d.AuthHandler.Me))

			r.Route("/positions", func(r chi.Router) {
				r.Post("/", withUser(d.PositionsHandler.Open))
				r.Get("/", withUser(d.PositionsHandler.List))
				r.Post("/closed", withUser(d.PositionsHandler.OpenClosed))
				r.Get("/summary", withUser(d.PositionsHandler.Summary))
				r.Get("/{id}", withPosition(d.PositionsHandler.Get))
				r.Post("/{id}/entries", withPosition(d.PositionsHandler.AddSize))
				r.Post("/{id}/sell", withPosition(d.PositionsHandler.Sell))
				r.Patch("/{id}", withPosition(d.PositionsHandler.Edit))
				r.Delete("/{id}", withPosition(d.PositionsHandler.Delete))
			})

			r.Post("/sync", withUser(d.SyncHandler.Trigger))
			r.Get("/sync/status", withUser(d.SyncHandler.Status))
		})
	})
	return r
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
