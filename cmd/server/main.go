package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // used before the structured logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-seat-booking/internal/config"     // Internal config loader
	"github.com/iliyamo/cinema-seat-booking/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/cinema-seat-booking/internal/handler"    // HTTP handlers
	"github.com/iliyamo/cinema-seat-booking/internal/middleware" // request id, logging, rate limit, cache
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/router" // Internal router setup
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

// stores groups the backend-specific implementations chosen at startup.
type stores struct {
	db     *sql.DB
	movies handler.MovieStore
	shows  interface {
		handler.ShowStore
		service.ShowCatalog
	}
	users  handler.UserStore
	tokens handler.TokenStore
	ledger service.Ledger
}

func main() {
	cfg := config.Load() // Load environment config

	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatal("storage init failed", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	if st.db != nil {
		defer st.db.Close()
	}
	seedAdmin(cfg, st.users, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithLedgerTimeout(cfg.Ledger.Timeout),
	}
	if cfg.Broker.Enabled {
		pub := queue.NewPublisher(cfg.Broker.URL, logger)
		defer pub.Close()
		opts = append(opts, service.WithEvents(pub))

		if cfg.Broker.StartConsumer {
			consumer := &queue.Consumer{URL: cfg.Broker.URL, LogDir: cfg.Broker.LogDir, Log: logger}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("booking consumer stopped", zap.Error(err))
				}
			}()
		}
	}
	svc := service.NewBookingService(st.ledger, st.shows, st.users, opts...)

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))

	var pinger handler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	catalog := &handler.CatalogHandler{Movies: st.movies, Shows: st.shows, Seats: svc, Log: logger}
	router.RegisterRoutes(e, pinger) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens, logger), cfg.JWTSecret)
	router.RegisterPublic(e, catalog, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterAdmin(e, catalog, cfg.JWTSecret)
	router.RegisterCustomer(e, &handler.BookingHandler{Svc: svc, Log: logger}, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("storage", cfg.StorageBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.StorageBackend == config.BackendMemory {
		movies := repository.NewMemoryMovieRepo()
		shows := repository.NewMemoryShowRepo(movies)
		logger.Warn("using in-memory storage; data is lost on restart")
		return stores{
			movies: movies,
			shows:  shows,
			users:  repository.NewMemoryUserRepo(),
			tokens: repository.NewMemoryTokenRepo(),
			ledger: repository.NewMemoryLedger(shows),
		}, nil
	}

	db, err := database.Open(database.Options{
		User:               cfg.DB.User,
		Pass:               cfg.DB.Pass,
		Host:               cfg.DB.Host,
		Port:               cfg.DB.Port,
		Name:               cfg.DB.Name,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		LockWaitTimeoutSec: cfg.DB.LockWaitTimeoutSec,
	})
	if err != nil {
		return stores{}, err
	}
	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
	}
	return stores{
		db:     db,
		movies: repository.NewMovieRepo(db),
		shows:  repository.NewShowRepo(db),
		users:  repository.NewUserRepo(db),
		tokens: repository.NewTokenRepo(db),
		ledger: repository.NewBookingRepo(db, cfg.Ledger.MaxRetries),
	}, nil
}

func seedAdmin(cfg config.Config, users handler.UserStore, logger *zap.Logger) {
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := users.Create(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password, model.RoleAdmin, cfg.BcryptCost)
	switch {
	case err == nil:
		logger.Info("admin account created", zap.String("username", cfg.Admin.Username))
	case errors.Is(err, repository.ErrUsernameExists), errors.Is(err, repository.ErrEmailExists):
	default:
		logger.Error("admin seed failed", zap.Error(err))
	}
}
