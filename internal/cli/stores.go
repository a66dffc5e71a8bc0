package cli

import (
	"context"
	"fmt"
	"time"

	"flags-challenge/internal/app"
	"flags-challenge/internal/catalog"
	"flags-challenge/internal/config"
	"flags-challenge/internal/infra/file"
	"flags-challenge/internal/infra/memory"
	pgstore "flags-challenge/internal/infra/postgres"
	redisstore "flags-challenge/internal/infra/redis"
	"flags-challenge/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backends holds the storage chosen from config and how to release it.
type backends struct {
	questions app.QuestionRepository
	snapshots app.SnapshotStore
	catalog   app.Catalog
	closers   []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return cfg, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}

// openBackends picks question and snapshot storage: Postgres, then Redis, then
// memory for questions; Redis, then a YAML file, then memory for snapshots.
func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.closers = append(b.closers, func() { redisClient.Close() })
	}

	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.questions = pgstore.NewQuestionRepository(pool)
		log.Info("questions stored in postgres")
	case redisClient != nil:
		b.questions = redisstore.NewQuestionRepository(redisClient, cfg.Quiz.Namespace)
		log.Info("questions stored in redis", zap.String("namespace", cfg.Quiz.Namespace))
	default:
		b.questions = memory.NewQuestionRepository()
		log.Info("questions stored in memory")
	}

	switch {
	case redisClient != nil:
		ttl := config.Duration(cfg.Redis.TTL, 0)
		b.snapshots = redisstore.NewSnapshotStore(redisClient, cfg.Quiz.Namespace, ttl)
		log.Info("snapshots stored in redis", zap.String("namespace", cfg.Quiz.Namespace))
	case cfg.Quiz.SnapshotFile != "":
		b.snapshots = file.NewSnapshotStore(cfg.Quiz.SnapshotFile, cfg.Quiz.Namespace)
		log.Info("snapshots stored on disk", zap.String("path", cfg.Quiz.SnapshotFile))
	default:
		b.snapshots = memory.NewSnapshotStore()
		log.Warn("snapshots kept in memory; state will not survive a restart")
	}

	b.catalog = catalog.Bundled()
	if cfg.Quiz.CatalogPath != "" {
		c, err := catalog.FromFile(cfg.Quiz.CatalogPath)
		if err != nil {
			// Fall back to the bundled catalog rather than refusing to start.
			log.Error("read catalog file, using bundled catalog", zap.Error(err))
		} else {
			b.catalog = c
		}
	}
	return b, nil
}
