package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitwiser/internal/auth"
	"github.com/mmynk/splitwiser/internal/events"
	"github.com/mmynk/splitwiser/internal/events/kafka"
	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/reconcile"
	"github.com/mmynk/splitwiser/internal/service"
	"github.com/mmynk/splitwiser/internal/settlement"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Connect API server",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 8080, "port to listen on")
	cmd.Flags().Duration("reconcile-interval", 10*time.Minute, "time between cache reconciliation passes (0 disables)")
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("reconcile.interval", cmd.Flags().Lookup("reconcile-interval"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set (SPLITWISER_AUTH_JWT_SECRET)")
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.Storage.Driver)

	publisher, closePublisher := newPublisher()
	defer closePublisher()

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	applier := settlement.NewApplier(store, publisher, logger)

	logRPC := middleware.LoggingInterceptor(logger)
	public := connect.WithInterceptors(logRPC, middleware.OptionalAuth(jwtManager))
	private := connect.WithInterceptors(logRPC, middleware.RequireAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(service.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager, store, logger), public))
	mux.Handle(service.NewGroupServiceHandler(service.NewGroupService(store, logger), private))
	mux.Handle(service.NewLedgerServiceHandler(service.NewLedgerService(store, applier, publisher, logger), private))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.DB().PingContext(r.Context()); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Reconcile.Interval > 0 {
		go reconcile.New(store, logger).Run(ctx, cfg.Reconcile.Interval)
	}

	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocol needs
	handler := h2c.NewHandler(loggingMiddleware(logger, corsMiddleware(cfg.Server.CORSOrigin, mux)), &http2.Server{})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// logging one otherwise.
func newPublisher() (events.Publisher, func()) {
	if len(cfg.Events.Brokers) == 0 {
		logger.Info("No event brokers configured, events will only be logged")
		return events.NewLogPublisher(logger), func() {}
	}
	p := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.TopicPrefix)
	logger.Info("Publishing events to Kafka", "brokers", cfg.Events.Brokers, "topic_prefix", cfg.Events.TopicPrefix)
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
