// Package main provides a local test server for exercising the booking
// assistant without WhatsApp or Google Sheets credentials. It runs with
// in-memory SQLite and an in-memory spreadsheet seeded with demo rooms;
// the language model is real when OPENAI_API_KEY is set.
//
// Usage:
//
//	go run cmd/testserver/main.go
//
// The server exposes additional test control endpoints:
//   - POST /api/test/send-message - Run a guest message through the agent and return the reply
//   - POST /api/test/reset - Reseed the demo rooms
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tsheringpenjor/concierge/internal/agent"
	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/config"
	"github.com/tsheringpenjor/concierge/internal/database"
	"github.com/tsheringpenjor/concierge/internal/server"
	"github.com/tsheringpenjor/concierge/internal/session"
	"github.com/tsheringpenjor/concierge/internal/sheets"
)

func demoRooms() [][]string {
	return [][]string{
		{"Room ID", "Room Name", "Room Type", "Price", "Current Available", "Booked Dates"},
		{"R1", "Garden Twin", "Twin Room", "2500", "Yes", ""},
		{"R2", "Hillside Twin", "Twin Room", "2500", "Yes", ""},
		{"R3", "Valley Double", "Double Room", "3500", "Yes", ""},
		{"R4", "River Villa", "Two Bed Room Villa", "8000", "2", ""},
	}
}

func main() {
	fmt.Println("Starting Concierge Test Server...")
	fmt.Println("This server uses in-memory SQLite and an in-memory spreadsheet with demo rooms.")

	cfg := config.LoadFromEnv()

	db, err := database.New(":memory:")
	if err != nil {
		fmt.Printf("Failed to create database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("In-memory database initialized")

	store, fake := sheets.NewTestStore()
	fake.Seed("Hotel Rooms", demoRooms())
	fmt.Println("Demo room inventory seeded")

	checker := booking.NewChecker(store)
	manager := booking.NewManager(store, checker)
	index := agent.NewRoomIndex(store)

	sessions := session.NewManager(filepath.Join(os.TempDir(), "concierge-test-sessions.json"), time.Duration(cfg.SessionTTLHours)*time.Hour)

	var llm *agent.LLM
	if cfg.OpenAIAPIKey != "" {
		llm = agent.NewLLM(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		fmt.Println("Language model configured for free-form replies")
	} else {
		fmt.Println("Warning: OPENAI_API_KEY not set. Free-form replies will use the canned fallback.")
	}

	bookingAgent := agent.New(sessions, checker, manager, index, llm)

	srv := server.New(server.Config{
		DB:          db,
		Manager:     manager,
		Index:       index,
		VerifyToken: "test-verify-token",
		AuthToken:   cfg.DashboardAuthToken,
		Port:        cfg.HTTPPort,
	})
	mainHandler := srv.Handler()

	testMux := http.NewServeMux()

	testMux.HandleFunc("/api/test/send-message", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Phone string `json:"phone"`
			Name  string `json:"name"`
			Text  string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Phone == "" {
			req.Phone = "97517000000"
		}

		fmt.Printf("Injecting message from %s: %s\n", req.Phone, req.Text)
		result, err := bookingAgent.ProcessMessage(r.Context(), req.Phone, req.Name, req.Text)
		if err != nil {
			http.Error(w, fmt.Sprintf("Agent failed: %v", err), http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{"reply": result.Reply}
		if result.Created != nil {
			resp["booking"] = result.Created
		}
		respondJSON(w, http.StatusOK, resp)
	})

	testMux.HandleFunc("/api/test/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		fmt.Println("Resetting demo room inventory...")
		fake.Seed("Hotel Rooms", demoRooms())
		store.InvalidateAll()
		if err := index.Rebuild(r.Context()); err != nil {
			http.Error(w, fmt.Sprintf("Failed to rebuild room index: %v", err), http.StatusInternalServerError)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	// Fallback to main handler
	testMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mainHandler.ServeHTTP(w, r)
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      testMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		fmt.Printf("\nTest Server running on http://localhost:%d\n", cfg.HTTPPort)
		fmt.Println("\nTest endpoints:")
		fmt.Println("  POST /api/test/send-message - Run a guest message through the agent")
		fmt.Println("  POST /api/test/reset        - Reseed the demo rooms")
		fmt.Println("\nPress Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down test server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}

	fmt.Println("Test server stopped")
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
