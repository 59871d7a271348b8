package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsheringpenjor/concierge/internal/agent"
	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/config"
	"github.com/tsheringpenjor/concierge/internal/database"
	"github.com/tsheringpenjor/concierge/internal/notify"
	"github.com/tsheringpenjor/concierge/internal/processor"
	"github.com/tsheringpenjor/concierge/internal/server"
	"github.com/tsheringpenjor/concierge/internal/session"
	"github.com/tsheringpenjor/concierge/internal/sheets"
	"github.com/tsheringpenjor/concierge/internal/tasks"
	"github.com/tsheringpenjor/concierge/internal/whatsapp"
)

func main() {
	cfg := config.LoadFromEnv()
	ctx := context.Background()

	// Phase 1: Core infrastructure
	db, err := database.New(cfg.DBPath)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	store, err := initSheetStore(ctx, cfg)
	if err != nil {
		fatal("connecting to spreadsheet", err)
	}

	// Phase 2: Domain services
	checker := booking.NewChecker(store)
	manager := booking.NewManager(store, checker)
	index := agent.NewRoomIndex(store)

	sessions := session.NewManager(cfg.SessionFile, time.Duration(cfg.SessionTTLHours)*time.Hour)
	sessions.Start(ctx)

	llm := initLLM(cfg)
	bookingAgent := agent.New(sessions, checker, manager, index, llm)

	sender := whatsapp.NewSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID)
	if !sender.IsConfigured() {
		fmt.Println("Warning: WHATSAPP_ACCESS_TOKEN not set, outbound messages disabled")
	}

	notifier := initNotifier(cfg)

	// Phase 3: Message pipeline
	msgChan := make(chan whatsapp.InboundMessage, cfg.MessageQueueSize)

	proc := processor.New(db, bookingAgent, sender, notifier, msgChan)
	if err := proc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: message processor failed to start: %v\n", err)
	}

	worker := tasks.NewWorker(store, manager, index, db, cfg.CheckoutHour)
	worker.Start(ctx)

	srv := server.New(server.Config{
		DB:          db,
		Manager:     manager,
		Index:       index,
		Sender:      sender,
		MsgChan:     msgChan,
		VerifyToken: cfg.WhatsAppVerifyToken,
		AuthToken:   cfg.DashboardAuthToken,
		Port:        cfg.HTTPPort,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "HTTP server error: %v\n", err)
		}
	}()

	if err := index.Rebuild(ctx); err != nil {
		fmt.Printf("Warning: initial room index build failed: %v\n", err)
	}

	waitForShutdown(proc, srv, worker, sessions)
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "Fatal: %s: %v\n", action, err)
	os.Exit(1)
}

func initSheetStore(ctx context.Context, cfg *config.Config) (*sheets.Store, error) {
	svc, err := sheets.NewGoogleService(ctx, cfg.SheetID, cfg.SheetsCredentialsJSON, cfg.SheetsCredentialsFile)
	if err != nil {
		return nil, err
	}
	return sheets.NewStore(svc, time.Duration(cfg.SheetCacheTTLSecs)*time.Second), nil
}

func initLLM(cfg *config.Config) *agent.LLM {
	if cfg.OpenAIAPIKey == "" {
		fmt.Println("Warning: OPENAI_API_KEY not set, free-form replies disabled")
		return nil
	}
	fmt.Printf("Language model configured (%s)\n", cfg.OpenAIModel)
	return agent.NewLLM(cfg.OpenAIAPIKey, cfg.OpenAIModel)
}

func initNotifier(cfg *config.Config) *notify.ResendNotifier {
	notifier := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.StaffEmail)
	if notifier.IsConfigured() {
		fmt.Println("Staff email notifications enabled (resend)")
	} else {
		fmt.Println("Warning: RESEND_API_KEY not set, staff email notifications disabled")
	}
	return notifier
}

func waitForShutdown(proc *processor.Processor, srv *server.Server, worker *tasks.Worker, sessions *session.Manager) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	fmt.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	proc.Stop()
	worker.Stop()
	srv.Shutdown(ctx)
	sessions.Stop()
}
