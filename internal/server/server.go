package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tsheringpenjor/concierge/internal/agent"
	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/database"
	"github.com/tsheringpenjor/concierge/internal/whatsapp"
)

// Server exposes the WhatsApp webhook and the staff dashboard API.
type Server struct {
	db          *database.DB
	manager     *booking.Manager
	index       *agent.RoomIndex
	sender      *whatsapp.Sender
	msgChan     chan<- whatsapp.InboundMessage
	verifyToken string
	authToken   string
	httpSrv     *http.Server
	port        int
}

// Config holds everything the server needs.
type Config struct {
	DB          *database.DB
	Manager     *booking.Manager
	Index       *agent.RoomIndex
	Sender      *whatsapp.Sender
	MsgChan     chan<- whatsapp.InboundMessage
	VerifyToken string
	AuthToken   string
	Port        int
}

func New(cfg Config) *Server {
	s := &Server{
		db:          cfg.DB,
		manager:     cfg.Manager,
		index:       cfg.Index,
		sender:      cfg.Sender,
		msgChan:     cfg.MsgChan,
		verifyToken: cfg.VerifyToken,
		authToken:   cfg.AuthToken,
		port:        cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.corsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	// Meta webhook
	mux.HandleFunc("GET /webhook", s.handleWebhookVerify)
	mux.HandleFunc("POST /webhook", s.handleWebhookReceive)

	// Staff dashboard API
	mux.HandleFunc("GET /api/bookings/pending", s.requireAuth(s.handlePendingBookings))
	mux.HandleFunc("POST /api/bookings/{id}/approve", s.requireAuth(s.handleApproveBooking))
	mux.HandleFunc("POST /api/bookings/{id}/reject", s.requireAuth(s.handleRejectBooking))
	mux.HandleFunc("GET /api/notifications", s.requireAuth(s.handleListNotifications))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.requireAuth(s.handleMarkNotificationRead))
	mux.HandleFunc("POST /api/reindex", s.requireAuth(s.handleReindex))
	mux.HandleFunc("POST /api/send-test", s.requireAuth(s.handleSendTest))
}

func (s *Server) Start() error {
	fmt.Printf("Starting HTTP server on http://localhost:%d\n", s.port)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// requireAuth guards dashboard endpoints with the staff bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.authToken {
			respondError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r)
	}
}

// corsMiddleware adds CORS headers so the dashboard frontend can call the API
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
