// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "vidmark:session:"
	redisMaxAttempts = 8
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string        // Redis server address (host:port)
	Password string        // Redis password (optional)
	DB       int           // Redis database number
	TTL      time.Duration // expiry refreshed on every write; 0 keeps sessions forever
}

// RedisStore keeps sessions as JSON documents in Redis.
// Updates are optimistic (WATCH/MULTI) and retried on contention.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return decodeRedis(s.client.Get(ctx, s.key(userID)), userID)
}

func (s *RedisStore) Put(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.UserID == "" {
		return ErrEmptyUserID
	}
	clone := sess.Clone()
	clone.UpdatedAt = time.Now()
	buf, err := json.Marshal(clone)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(sess.UserID), buf, s.ttl).Err()
}

func (s *RedisStore) Update(ctx context.Context, userID string, fn func(*model.Session) error) (*model.Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	key := s.key(userID)

	var out *model.Session
	txf := func(tx *redis.Tx) error {
		sess, err := decodeRedis(tx.Get(ctx, key), userID)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.UserID = userID
		sess.UpdatedAt = time.Now()
		buf, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, s.ttl)
			return nil
		})
		if err == nil {
			out = sess
		}
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out.Clone(), nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (s *RedisStore) Reset(ctx context.Context, userID string) error {
	_, err := s.Update(ctx, userID, resetFn)
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRedis(cmd *redis.StringCmd, userID string) (*model.Session, error) {
	buf, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return model.NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal(buf, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}
