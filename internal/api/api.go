package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/kastent/kastentd/internal/config"
	"github.com/kastent/kastentd/internal/hub"
	"github.com/kastent/kastentd/internal/kaspad"
	"github.com/kastent/kastentd/internal/tent"
	"github.com/kastent/kastentd/internal/verify"
)

// Ledger is what the health endpoint needs from the kaspad client.
type Ledger interface {
	GetBlockDAGInfo(ctx context.Context) (*kaspad.BlockDAGInfo, error)
	RestDAGInfo(ctx context.Context) (*kaspad.BlockDAGInfo, error)
}

type API struct {
	router   *mux.Router
	config   *config.Config
	tents    *tent.Service
	verifier *verify.Service
	ledger   Ledger
	hub      *hub.Hub
}

func New(cfg *config.Config, tents *tent.Service, verifier *verify.Service, ledger Ledger, h *hub.Hub) *API {
	api := &API{
		router:   mux.NewRouter(),
		config:   cfg,
		tents:    tents,
		verifier: verifier,
		ledger:   ledger,
		hub:      h,
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Tent lifecycle
	a.router.HandleFunc("/api/tents", a.handleCreateTent).Methods("POST")
	a.router.HandleFunc("/api/tents", a.handleListTents).Methods("GET")
	a.router.HandleFunc("/api/tents/{id}", a.handleGetTent).Methods("GET")
	a.router.HandleFunc("/api/tents/{id}", a.handleUpdateTent).Methods("PATCH")
	a.router.HandleFunc("/api/tents/{id}/join", a.handleJoinTent).Methods("POST")

	// Verification + health
	a.router.HandleFunc("/api/verify", a.handleVerify).Methods("POST")
	a.router.HandleFunc("/api/health", a.handleHealth).Methods("GET")

	// Real-time channel + metrics
	a.router.HandleFunc("/ws", a.handleWS).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
