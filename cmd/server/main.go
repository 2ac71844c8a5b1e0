package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/logger"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	config.LoadEnvFile(".env")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	zap.L().Info("Configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("storeDriver", cfg.Store.Driver),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		zap.L().Fatal("Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zap.L().Error("Error closing store", zap.Error(err))
		}
	}()
	zap.L().Info("Store ready", zap.String("driver", cfg.Store.Driver))

	router := buildRouter(cfg, store, log)

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// openStore connects the configured persistence engine and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		client, err := database.NewRedisClient(ctx, &database.RedisConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, err
		}
		return repositories.NewRedisStore(client, cfg.Redis.KeyPrefix), nil

	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		poolConfig := &database.PoolConfig{
			Driver:          database.DriverPostgres,
			DSN:             cfg.GetDatabaseDSN(),
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			LogLevel:        gormlogger.Warn,
		}
		if cfg.Store.Driver == config.StoreDriverSQLite {
			poolConfig.Driver = database.DriverSQLite
			poolConfig.DSN = cfg.Store.SQLitePath
		}

		pool, err := database.NewDatabasePool(poolConfig)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := repositories.Migrate(pool.DB); err != nil {
			_ = pool.Close()
			return nil, err
		}

		store := repositories.NewGormStore(pool.DB)
		store.Ping = pool.Ping
		store.Close = pool.Close
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func buildRouter(cfg *config.Config, store *repositories.Store, log *zap.Logger) *gin.Engine {
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := security.NewBCryptHasher(cfg.Auth.BCryptCost)

	checker := monitoring.NewHealthChecker()
	checker.Register(cfg.Store.Driver, store.Ping)

	return handlers.NewRouter(handlers.RouterConfig{
		AuthService:    services.NewAuthService(store.Users, hasher, tokens, log),
		TaskService:    services.NewTaskService(store.Tasks, log),
		TokenVerifier:  tokens,
		HealthChecker:  checker,
		Logger:         log,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})
}
