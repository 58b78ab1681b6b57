package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"travyy/internal/agency"
	agencyapi "travyy/internal/agency/api"
	agencydb "travyy/internal/agency/db"
	"travyy/internal/analytics"
	analyticsapi "travyy/internal/analytics/api"
	"travyy/internal/auth"
	authapi "travyy/internal/auth/api"
	"travyy/internal/booking"
	bookingapi "travyy/internal/booking/api"
	bookingdb "travyy/internal/booking/db"
	"travyy/internal/config"
	"travyy/internal/database"
	"travyy/internal/kafka"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/notification"
	notificationapi "travyy/internal/notification/api"
	notificationdb "travyy/internal/notification/db"
	"travyy/internal/promotion"
	promotionapi "travyy/internal/promotion/api"
	promotiondb "travyy/internal/promotion/db"
	"travyy/internal/refund"
	refundapi "travyy/internal/refund/api"
	refunddb "travyy/internal/refund/db"
	refundlock "travyy/internal/refund/lock"
	"travyy/internal/refund/gateway"
	"travyy/internal/refund/scheduler"
	"travyy/internal/sse"
	"travyy/internal/user"
	userapi "travyy/internal/user/api"
	userdb "travyy/internal/user/db"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v\n\n%s", err, config.Description())
	}

	level := logger.ParseLevel(cfg.LogLevel)
	logger := logger.NewLogger()
	defer logger.Close()
	logger.SetLevel(level)
	logger.Info("APP", fmt.Sprintf("Starting Travyy API (%s)", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Connect(ctx, cfg.Database.DSN, database.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()
	logger.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))

	// --- Events ---
	var publisher kafka.Publisher
	var producer *kafka.Producer
	local := kafka.NewLocalPublisher(logger)
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, kafka.RequiredTopics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		publisher = producer
	} else {
		logger.Warn("KAFKA", "Kafka disabled, events are delivered in-process")
		publisher = local
	}

	// --- Stores ---
	users := &userdb.DB{Bun: bunDB}
	bookings := &bookingdb.DB{Bun: bunDB}

	// --- Auth ---
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTAccessSecret, cfg.Auth.JWTRefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	sessions := auth.NewAdminSessions(cfg.Auth.SessionKey, cfg.Auth.SessionMaxAge, cfg.Env == "production")
	authn := auth.NewAuthenticator(tokens, sessions, logger)

	var google auth.IDTokenVerifier
	if cfg.Auth.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
		if err != nil {
			logger.Warn("AUTH", fmt.Sprintf("Google sign-in disabled: %v", err))
		} else {
			google = verifier
		}
	}

	authService := auth.NewService(auth.Deps{
		Users:     users,
		Tokens:    tokens,
		Revoked:   auth.NewRevocationList(redisClient),
		OTP:       auth.NewOTPStore(redisClient, cfg.Auth.OTPTTL, cfg.Auth.OTPCooldown, cfg.Auth.OTPMaxAttempts),
		Google:    google,
		Publisher: publisher,
		Logger:    logger,
	})

	// --- Domain services ---
	promotionService := promotion.NewService(&promotiondb.DB{Bun: bunDB}, publisher, logger)

	vouchers, err := booking.NewVoucherGenerator(cfg.QR.Secret, cfg.QR.Size)
	if err != nil {
		logger.Fatal("BOOKING", fmt.Sprintf("Voucher generator: %v", err))
	}
	bookingService := booking.NewService(bookings, vouchers)

	registry := gateway.NewRegistry(
		gateway.NewManual(logger),
		gateway.NewMoMo(cfg.MoMo, logger),
		gateway.NewPayPal(cfg.PayPal, cfg.Refund.FXVNDUSD, logger),
	)
	if cfg.Stripe.SecretKey != "" {
		stripeAdapter, err := gateway.NewStripe(cfg.Stripe.SecretKey, logger)
		if err != nil {
			logger.Warn("STRIPE", fmt.Sprintf("Stripe refunds disabled: %v", err))
		} else {
			registry.Register(stripeAdapter)
		}
	}
	orchestrator := refund.NewOrchestrator(registry, cfg.RefundTestMode(), logger)
	refundService := refund.NewService(&refunddb.DB{Bun: bunDB}, bookings, orchestrator, publisher, logger).
		WithLocker(refundlock.NewRedis(redisClient, cfg.Refund.LockTTL, logger))
	logger.Info("REFUND", fmt.Sprintf("Gateways: %v (test mode: %t)", registry.Providers(), orchestrator.TestMode()))

	hub := sse.NewHub()
	notificationService := notification.NewService(&notificationdb.DB{Bun: bunDB}, hub, logger)
	local.Handle(kafka.TopicNotifications, notificationService.HandleMessage)

	userService := user.NewService(users, logger)
	agencyService := agency.NewService(&agencydb.DB{Bun: bunDB}, logger)
	analyticsService := analytics.NewService(analytics.NewDB(bunDB), redisClient, cfg.Dashboard.CacheTTL, logger)

	// --- Background work ---
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, kafka.TopicNotifications, cfg.Kafka.GroupID, logger)
		defer consumer.Close()
		go consumer.Start(ctx, notificationService.HandleMessage)
	}

	sched := scheduler.New(cfg.Scheduler.Interval, cfg.Scheduler.RunTimeout, logger)
	scheduler.RegisterDefaultJobs(sched, refundService, promotionService, cfg.Refund.ExpireAfter)
	sched.Start()
	defer sched.Stop()

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(bunDB, redisClient))

	authapi.NewHandler(authService, sessions, authn, logger).RegisterRoutes(r)
	promotionapi.NewHandler(promotionService, authn, logger).RegisterRoutes(r)

	refundHandler := refundapi.NewHandler(refundService, logger)

	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware)
		refundHandler.RegisterUserRoutes(r)
		bookingapi.NewHandler(bookingService, logger).RegisterRoutes(r)
		notificationapi.NewHandler(notificationService, hub, logger).RegisterRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware, auth.RequireRole(models.RoleAdmin))
		userapi.NewHandler(userService, logger).RegisterRoutes(r)
		agencyapi.NewHandler(agencyService, logger).RegisterRoutes(r)
		refundHandler.RegisterAdminRoutes(r)
		analyticsapi.NewHandler(analyticsService, logger).RegisterRoutes(r)
	})
	logger.Info("ROUTER", "Routes registered")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Travyy API running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	<-ctx.Done()
	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		logger.Info("HTTP", "Travyy API shutdown complete")
	}
}

func requestLogger(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}

func healthHandler(db *bun.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "redis": "ok"}
		healthy := true
		if err := db.PingContext(ctx); err != nil {
			status["database"] = err.Error()
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}

		if !healthy {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Unhealthy", fmt.Sprint(status)))
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "OK", status)
	}
}
