package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/fareone/bookings/internal/admin"
	"github.com/fareone/bookings/internal/booking"
	"github.com/fareone/bookings/internal/geo"
	"github.com/fareone/bookings/internal/http/handlers"
	appmw "github.com/fareone/bookings/internal/http/middleware"
	"github.com/fareone/bookings/internal/identity"
	"github.com/fareone/bookings/internal/mailer"
	"github.com/fareone/bookings/internal/payments"
	"github.com/fareone/bookings/internal/repo/postgres"
	"github.com/fareone/bookings/pkg/config"
	"github.com/fareone/bookings/pkg/database"
	"github.com/fareone/bookings/pkg/events"
	"github.com/fareone/bookings/pkg/logger"
	mw "github.com/fareone/bookings/pkg/middleware"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Geocoding with a Redis cache in front
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	mapbox := geo.NewMapboxClient(cfg.Mapbox)
	suggester := geo.NewCachedSuggester(mapbox, rdb, cfg.Redis.SuggestTTL)

	// Repositories
	orderRepo := postgres.NewOrderRepo(pool)
	idempotencyRepo := postgres.NewIdempotencyRepo(pool)
	userRepo := postgres.NewUsersRepo(pool)
	verifyRepo := postgres.NewVerifyRepo(pool)

	// Hourly cleanup of expired idempotency keys and login codes.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := idempotencyRepo.CleanupExpired(ctx); err != nil {
				logger.Error("Idempotency cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("Cleaned up idempotency keys", "count", n)
			}
			if n, err := verifyRepo.DeleteExpiredCodes(ctx); err != nil {
				logger.Error("Login code cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("Cleaned up login codes", "count", n)
			}
		}
	}()

	// Outbound email
	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.FromEmail, "", "", false)
	} else {
		mail = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	// Orders left pending after a failed payment-session creation need a
	// human to chase them; alert the booking mailbox.
	err = eventBus.QueueSubscribe(events.OrderPaymentFailed, "api-alerts", func(msg *events.Message) {
		var ev events.OrderPaymentFailedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Malformed payment-failed event", "error", err)
			return
		}
		body := fmt.Sprintf("Order %s for %s (%s) is pending without a payment session: %s",
			ev.OrderID, ev.RiderEmail, ev.Price, ev.Reason)
		if _, err := mail.Send(cfg.Email.FromEmail, cfg.Email.FromName,
			"Payment setup failed for order "+ev.OrderID, body, ""); err != nil {
			logger.Error("Failed to send payment-failed alert", "error", err)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe to payment-failed events", "error", err)
		os.Exit(1)
	}

	// Services
	stripeClient := payments.NewClient(cfg.Stripe)
	bookingSvc := booking.NewService(orderRepo, stripeClient, eventBus, mail)
	adminSvc := admin.NewService(userRepo, verifyRepo, mail, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.AdminOTPTTL)
	ident := identity.NewJWTProvider(cfg.Auth.JWTSecret)

	// Handlers
	quoteHandler := handlers.NewQuoteHandler(suggester, mapbox)
	bookingHandler := handlers.NewBookingHandler(bookingSvc, bookingSvc, orderRepo, idempotencyRepo, ident)
	adminHandler := handlers.NewAdminHandler(adminSvc, orderRepo, eventBus, cfg.Auth.JWTSecret)
	paymentsHandler := handlers.NewPaymentsHandler(orderRepo, eventBus, cfg.Stripe.WebhookSecret)

	// Throttle the unauthenticated surfaces by client IP.
	limiter := appmw.NewRateLimiter(pool, appmw.RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
		KeyFunc:  appmw.IPKeyFunc,
	})

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", mw.Metrics())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware())
			r.Mount("/", quoteHandler.Routes())
			r.Mount("/bookings", bookingHandler.Routes())
		})
		r.Mount("/admin", adminHandler.Routes())
		// Stripe retries aggressively; keep webhooks off the IP limiter.
		r.Mount("/payments", paymentsHandler.Routes())
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down api service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Api service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting api service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Api service error", "error", err)
		os.Exit(1)
	}
}
