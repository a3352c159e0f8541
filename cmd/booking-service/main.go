package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agendaly/agendaly/internal/handlers"
	"github.com/agendaly/agendaly/internal/identity"
	"github.com/agendaly/agendaly/internal/outbox"
	"github.com/agendaly/agendaly/internal/storage"
	"github.com/agendaly/agendaly/libs/config"
	"github.com/agendaly/agendaly/libs/db"
	"github.com/agendaly/agendaly/libs/httpx"
	"github.com/agendaly/agendaly/libs/kafkax"
	otelx "github.com/agendaly/agendaly/libs/otel"
	"github.com/agendaly/agendaly/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema bootstrap failed", "err", err)
		panic(err)
	}

	bookingRepo := storage.NewBookingRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	authSecret, err := config.RequiredString("AUTH_HS256_SECRET")
	if err != nil {
		panic(err)
	}
	provider, err := identity.NewProvider(config.String("IDENTITY_GRPC_ADDR", ""), authSecret)
	if err != nil {
		logger.Error("identity provider init failed", "err", err)
		panic(err)
	}
	requireAuth := identity.Require(provider)

	bookingHandler := handlers.NewBookingHandler(bookingRepo, scheduleRepo, outboxRepo, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMux(readyChecks...)

	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.Handle("/api/v1/appointments", requireAuth(http.HandlerFunc(bookingHandler.List)))
	mux.Handle("/api/v1/appointments/status", requireAuth(http.HandlerFunc(bookingHandler.UpdateStatus)))
	mux.Handle("/api/v1/appointments/cancel", requireAuth(http.HandlerFunc(bookingHandler.Cancel)))
	mux.Handle("/api/v1/business/profile", requireAuth(http.HandlerFunc(scheduleHandler.Profile)))
	mux.Handle("/api/v1/business/services", requireAuth(http.HandlerFunc(scheduleHandler.Services)))
	mux.Handle("/api/v1/business/professionals", requireAuth(http.HandlerFunc(scheduleHandler.Professionals)))
	mux.Handle("/api/v1/business/professionals/status", requireAuth(http.HandlerFunc(scheduleHandler.ProfessionalStatus)))
	mux.Handle("/api/v1/business/professionals/services", requireAuth(http.HandlerFunc(scheduleHandler.AssignServices)))
	mux.Handle("/api/v1/business/working-hours", requireAuth(http.HandlerFunc(scheduleHandler.WorkingHours)))
	mux.Handle("/api/v1/business/time-off", requireAuth(http.HandlerFunc(scheduleHandler.TimeOff)))

	rateLimit := rateLimitMiddleware(logger)

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", "*"), ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key"},
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
		rateLimit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
