package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/db/mongo"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/db/redis"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/http/handlers"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/memory"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
	"github.com/Bhumit267/CodeXi/internal/pkg/config"
	"github.com/Bhumit267/CodeXi/pkg/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
	auditBufferSize = 1024
)

type deps struct {
	users   ports.UserRepository
	events  ports.AuthEventRepository
	limiter ports.RateLimiter
	guard   ports.RotationGuard
	checks  map[string]handlers.Check

	mongoClient *mongodriver.Client
	redisClient *goredis.Client
}

// buildDeps connects the configured backends. Network backends are dialled
// with exponential backoff so the API can start alongside its databases.
func buildDeps(ctx context.Context, cfg *config.Config, clk clock.Clock) (*deps, error) {
	d := &deps{checks: map[string]handlers.Check{}}
	log := logger.Component("bootstrap")

	switch cfg.Store {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory credential store, accounts are lost on restart")
		d.users = memory.NewUserRepository()
		d.events = memory.NewAuthEventRepository(auditBufferSize)
	default:
		var db *mongodriver.Database
		err := withBackoff(ctx, func(ctx context.Context) error {
			client, database, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
			if err != nil {
				log.Warn().Err(err).Msg("mongo not ready, retrying")
				return retry.RetryableError(err)
			}
			d.mongoClient, db = client, database
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			d.Close(log)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		d.users = mongo.NewUserRepository(db)
		d.events = mongo.NewAuthEventRepository(db)
		d.checks["mongo"] = func(ctx context.Context) error {
			return d.mongoClient.Ping(ctx, nil)
		}
	}

	policy := domain.RateLimitPolicy{Window: cfg.RateLimit.Window, Max: cfg.RateLimit.Max}
	needRedis := cfg.RateLimit.Backend == config.RateLimitRedis
	if needRedis {
		err := withBackoff(ctx, func(ctx context.Context) error {
			client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			if err != nil {
				log.Warn().Err(err).Msg("redis not ready, retrying")
				return retry.RetryableError(err)
			}
			d.redisClient = client
			return nil
		})
		if err != nil {
			d.Close(log)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		d.limiter = redis.NewRateLimiter(d.redisClient, policy)
		d.checks["redis"] = func(ctx context.Context) error {
			return d.redisClient.Ping(ctx).Err()
		}
	} else {
		d.limiter = memory.NewRateLimiter(policy, clk)
	}

	if cfg.Token.RotationGuard {
		if d.redisClient != nil {
			d.guard = redis.NewRotationGuard(d.redisClient, clk)
		} else {
			d.guard = memory.NewRotationGuard(clk)
		}
	}

	return d, nil
}

func withBackoff(ctx context.Context, fn retry.RetryFunc) error {
	b := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))
	return retry.Do(ctx, b, fn)
}

// Close releases the backend connections.
func (d *deps) Close(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.mongoClient != nil {
		if err := d.mongoClient.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}
}
