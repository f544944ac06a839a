package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/givepay-gobackend/internal/config"
	"github.com/markjakearzadon/givepay-gobackend/internal/handlers"
	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
	"github.com/markjakearzadon/givepay-gobackend/internal/realtime"
	"github.com/markjakearzadon/givepay-gobackend/internal/reference"
	"github.com/markjakearzadon/givepay-gobackend/internal/services"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	donationService := services.NewDonationService(
		st,
		reference.NewGenerator(cfg.ReferencePrefix),
		cfg.PaystackPublicKey,
		cfg.Currency,
		cfg.StoreTimeout,
	)

	hub := realtime.NewHub(cfg.CORSOrigins, donationService.Total)
	go hub.Run(ctx)

	reconciler := services.NewReconciler(st, hub, cfg.StoreTimeout)
	client := paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL)
	verification := services.NewVerificationService(st, client, reconciler, cfg.StoreTimeout)

	if cfg.SweepInterval > 0 {
		go services.NewSweeper(st, verification, cfg.SweepInterval, cfg.SweepAfter).Run(ctx)
	}
	if !cfg.AdminEnabled() {
		log.Println("Warning: ADMIN_USERNAME/ADMIN_PASSWORD_HASH/JWT_SECRET not set, admin routes will reject every request")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Donations: handlers.NewDonationHandler(
			donationService,
			services.NewWebhookService(cfg.PaystackSecretKey, reconciler),
			verification,
		),
		Auth:        handlers.NewAuthHandler(services.NewAuthService(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.TokenTTL)),
		Live:        hub,
		CORSOrigins: cfg.CORSOrigins,
		Verify:      true,
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server running on port %s (store: %s)", cfg.Port, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
