package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlindstad/spa-bridge/internal/config"
	"github.com/mlindstad/spa-bridge/internal/engine"
	"github.com/mlindstad/spa-bridge/internal/gizwits"
	"github.com/mlindstad/spa-bridge/internal/log"
	"github.com/mlindstad/spa-bridge/internal/storage"
)

// ServiceInterface defines the interface for the main service
type ServiceInterface interface {
	GetDB() *storage.DB
	GetEncryptionKey() *storage.EncryptionKey
	GetManager() *engine.Manager
	GetGizwitsClient() *gizwits.Client
	GetConfig() *config.Config
}

// Server is the HTTP server
type Server struct {
	port    int
	service ServiceInterface
	router  *mux.Router
	hub     *Hub
	started time.Time
}

// NewServer creates a new HTTP server
func NewServer(port int, service ServiceInterface) *Server {
	s := &Server{
		port:    port,
		service: service,
		router:  mux.NewRouter(),
		hub:     NewHub(),
		started: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/devices", s.handleListDevices).Methods("GET")
	api.HandleFunc("/devices", s.handleProvisionDevice).Methods("POST")
	api.HandleFunc("/devices/{did}", s.handleGetDevice).Methods("GET")
	api.HandleFunc("/devices/{did}", s.handleRemoveDevice).Methods("DELETE")
	api.HandleFunc("/devices/{did}/command", s.handleCommand).Methods("POST")
	api.HandleFunc("/devices/{did}/credentials", s.handleSaveCredentials).Methods("POST")
	api.HandleFunc("/devices/{did}/credentials/test", s.handleTestCredentials).Methods("POST")
	api.HandleFunc("/devices/{did}/reconcile", s.handleReconcile).Methods("POST")
	api.HandleFunc("/logs", s.handleGetLogs).Methods("GET")
	api.HandleFunc("/version", s.handleVersion).Methods("GET")
	api.HandleFunc("/ws", s.handleWebSocket)

	// Serve static files for frontend
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/dist")))
}

// Run starts the HTTP server
func (s *Server) Run(ctx context.Context) error {
	// Start WebSocket hub
	go s.hub.Run(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown handler
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("Web server listening on port %d", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *Hub {
	return s.hub
}

// Router exposes the mux for tests
func (s *Server) Router() http.Handler {
	return s.router
}
