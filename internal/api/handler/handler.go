package handler

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/internal/gateway"
	adminstore "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/postgres/admin"
)

// Handler holds the dependencies for API handlers
type Handler struct {
	Gateway    *gateway.Service
	AdminDB    *adminstore.DB
	Logger     *zap.Logger
	AdminToken string
}

// NewHandler creates a new Handler instance
func NewHandler(svc *gateway.Service, adminDB *adminstore.DB, logger *zap.Logger, adminToken string) *Handler {
	return &Handler{
		Gateway:    svc,
		AdminDB:    adminDB,
		Logger:     logger,
		AdminToken: adminToken,
	}
}

// NewRouter creates and configures the HTTP router with all API routes
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()

	// Public health check endpoint
	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)

	// Block decoding endpoints
	r.HandleFunc("/blocks/head", h.HandleBlockHead).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{height:[0-9]+}", h.HandleBlockByHeight).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{height:[0-9]+}/events", h.HandleBlockEvents).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{height:[0-9]+}/extrinsics/{index:[0-9]+}", h.HandleExtrinsic).Methods(http.MethodGet)
	r.HandleFunc("/runtime/version", h.HandleRuntimeVersion).Methods(http.MethodGet)

	// Protected chain management endpoints
	r.HandleFunc("/api/chains", h.RequireAuth(h.HandleChainsList)).Methods(http.MethodGet)
	r.HandleFunc("/api/chains", h.RequireAuth(h.HandleChainsUpsert)).Methods(http.MethodPost)
	r.HandleFunc("/api/chains/{id}", h.RequireAuth(h.HandleChainDetail)).Methods(http.MethodGet)
	r.HandleFunc("/api/chains/{id}", h.RequireAuth(h.HandleChainPatch)).Methods(http.MethodPatch)
	r.HandleFunc("/api/chains/{id}", h.RequireAuth(h.HandleChainDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/api/chains/{id}/redecode", h.RequireAuth(h.HandleRedecodeCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/chains/{id}/redecode", h.RequireAuth(h.HandleRedecodeList)).Methods(http.MethodGet)

	return r
}

// RequireAuth is a middleware that validates the bearer token
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + h.AdminToken

		if auth != expected {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		next(w, r)
	}
}

// HandleHealth returns a simple health check response
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
