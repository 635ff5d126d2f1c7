package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/smart-pantry/internal/adapter/handler"
	"github.com/rl1809/smart-pantry/internal/adapter/storage"
	"github.com/rl1809/smart-pantry/internal/config"
	"github.com/rl1809/smart-pantry/internal/core/interpreter"
	"github.com/rl1809/smart-pantry/internal/core/service"
	"github.com/rl1809/smart-pantry/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, err := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLog.Sync()
	appLog = appLog.WithFields(map[string]interface{}{"app": cfg.App.Name, "env": cfg.App.Environment})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		fatal(appLog, "invalid database driver", err)
	}
	db, err := storage.Open(ctx, dialect, cfg.Database.GetDSN(), storage.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		fatal(appLog, "failed to connect database", err)
	}
	sqlAdapter := storage.NewSQLAdapter(db, dialect)
	if err := sqlAdapter.EnsureSchema(ctx); err != nil {
		fatal(appLog, "failed to ensure schema", err)
	}
	appLog.Info("connected to database", map[string]interface{}{"driver": dialect})

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal(appLog, "failed to connect redis", err)
	}
	appLog.Info("connected to redis", map[string]interface{}{"address": cfg.Redis.Address})

	redisAdapter := storage.NewRedisAdapter(rdb, storage.RedisOptions{
		SnapshotTTL:    cfg.Redis.SnapshotTTL,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
	})

	// Initialize service
	interp := interpreter.New(interpreter.Options{
		ShelfLifeDays: cfg.Interpreter.ShelfLifeDays,
		DefaultName:   cfg.Interpreter.DefaultItemName,
	})
	pantryService := service.NewPantryService(sqlAdapter, redisAdapter, interp, appLog, service.Options{
		QueueSize:     cfg.Workers.QueueSize,
		SnapshotLimit: cfg.Interpreter.SnapshotLimit,
	})

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers.Count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, pantryService.Events(), sqlAdapter, appLog, 200*time.Millisecond)
		}(i)
	}
	appLog.Info("started event workers", map[string]interface{}{"count": cfg.Workers.Count})

	// Initialize gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = grpc.NewServer()
		handler.RegisterPantryServiceServer(grpcServer, handler.NewGRPCHandler(pantryService, appLog))

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			fatal(appLog, "failed to listen", err)
		}

		go func() {
			appLog.Info("gRPC server listening", map[string]interface{}{"addr": cfg.GRPC.Addr})
			if err := grpcServer.Serve(lis); err != nil {
				appLog.Error("gRPC server error", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	// Initialize HTTP server
	router := handler.NewRouter(
		handler.NewHTTPHandler(pantryService, appLog),
		handler.NewAssistantHandler(pantryService, appLog),
	)
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		appLog.Info("HTTP server listening", map[string]interface{}{"addr": cfg.HTTP.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("HTTP shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}
	appLog.Info("HTTP server stopped", nil)

	if grpcServer != nil {
		grpcServer.GracefulStop()
		appLog.Info("gRPC server stopped", nil)
	}

	// Close event queue and wait for workers
	pantryService.Close()
	wg.Wait()
	appLog.Info("workers stopped", nil)

	rdb.Close()
	db.Close()
	appLog.Info("connections closed", nil)
}

func fatal(l logger.Logger, msg string, err error) {
	l.Error(msg, map[string]interface{}{"error": err.Error()})
	l.Sync()
	os.Exit(1)
}
