package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/config"
	"github.com/versesong/api/internal/logger"
	"github.com/versesong/api/internal/middleware"
	"github.com/versesong/api/internal/server"
	"github.com/versesong/api/internal/service"
	"github.com/versesong/api/internal/store"
	"github.com/versesong/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := logger.Init(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		log.Warn().Err(err).Msg("invalid log level, using info")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		backends    server.Backends
		redisClient *redis.Client
		archiveSrv  *asynq.Server
		archiveMux  *asynq.ServeMux
	)

	switch cfg.Store.Backend {
	case config.BackendRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		// Test Redis connection
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not available")
		}

		// Long polls and streams park in BLPOP on their own pool
		waitClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.WaitPoolSize,
		})
		defer waitClient.Close()

		backends = server.Backends{
			Notifications: store.NewRedisNotificationStore(redisClient, cfg.Store.NotificationTTL).WithBlockingClient(waitClient),
			Jobs:          store.NewRedisJobStore(redisClient),
			Counter:       middleware.NewRedisCounter(redisClient),
		}
	default:
		notifications := store.NewMemoryNotificationStore(cfg.Store.NotificationTTL)
		go notifications.RunSweeper(ctx, cfg.Store.SweepInterval)

		backends = server.Backends{
			Notifications: notifications,
			Jobs:          store.NewMemoryJobStore(),
			Counter:       middleware.NewMemoryCounter(),
		}
	}

	// Song archiving needs both a queue and a bucket
	var storage client.StorageClient
	if redisClient != nil && cfg.R2.Configured() {
		r2, err := client.NewR2Client(ctx, &cfg.R2)
		if err != nil {
			log.Warn().Err(err).Msg("song archive disabled")
		} else {
			storage = r2
			redisOpt := asynq.RedisClientOpt{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}
			asynqClient := asynq.NewClient(redisOpt)
			defer asynqClient.Close()
			backends.Archive = worker.NewArchiveQueue(asynqClient)

			archiveSrv = asynq.NewServer(redisOpt, asynq.Config{
				Concurrency: 4,
				Queues: map[string]int{
					worker.QueueArchive: 1,
				},
			})
		}
	}

	deps, err := server.NewDeps(ctx, cfg, backends)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise services")
	}
	app := server.New(deps)

	// Start Asynq worker server
	if archiveSrv != nil {
		archiveMux = asynq.NewServeMux()
		archiveMux.HandleFunc(worker.TaskTypeArchive, worker.NewArchiveWorker(storage, deps.Music).ProcessTask)
		if err := archiveSrv.Start(archiveMux); err != nil {
			log.Error().Err(err).Msg("asynq worker error")
		} else {
			defer archiveSrv.Shutdown()
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info().
		Str("addr", addr).
		Str("backend", cfg.Store.Backend).
		Str("callbackUrl", cfg.Server.PublicURL+service.CallbackPath).
		Bool("archive", archiveSrv != nil).
		Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
