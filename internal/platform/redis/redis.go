package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"

	"docintake/internal/logger"
)

type Options struct {
	Addr     string
	Password string
}

// Service is the process-wide redis handle. It is created once in main and
// passed explicitly to everything that needs it; nothing recreates it mid-run.
type Service struct {
	client *redisv8.Client
	log    *logger.Logger
}

func New(opts Options) (*Service, error) {
	c := redisv8.NewClient(&redisv8.Options{Addr: opts.Addr, Password: opts.Password})
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Service{client: c, log: logger.New("Redis")}, nil
}

func (s *Service) Close() error            { return s.client.Close() }
func (s *Service) Client() *redisv8.Client { return s.client }

// HealthCheck pings redis and verifies a write/read round trip.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.LogErrorf("redis health check failed: %v", err)
		return fmt.Errorf("redis ping failed: %v", err)
	}

	probeKey := "health:probe:" + time.Now().Format("20060102150405")
	if err := s.client.Set(ctx, probeKey, "ok", 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis write probe failed: %v", err)
	}
	val, err := s.client.Get(ctx, probeKey).Result()
	if err != nil {
		return fmt.Errorf("redis read probe failed: %v", err)
	}
	if val != "ok" {
		return fmt.Errorf("redis probe mismatch: got %s", val)
	}
	_ = s.client.Del(ctx, probeKey).Err()
	return nil
}

// AsynqRedisOpt exposes connection options for the asynq client and server so
// the queue rides the same redis instance as the job records.
func (s *Service) AsynqRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: s.client.Options().Addr, Password: s.client.Options().Password}
}

// IsNotFound reports whether err means the key did not exist.
func IsNotFound(err error) bool { return err == redisv8.Nil }

// Cache helpers: JSON blobs keyed by string.
func (s *Service) CacheGet(ctx context.Context, key string, dest interface{}) error {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (s *Service) CacheSet(ctx context.Context, key string, val interface{}, ttlSeconds int) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, time.Duration(ttlSeconds)*time.Second).Err()
}
