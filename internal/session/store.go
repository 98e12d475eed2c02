package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Contextualist/submit-patch/internal/domain"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

const keyPrefix = "session:"

// Store holds server-side sessions: an opaque cookie value maps to the
// authenticated identity. Get returns nil for unknown or expired ids.
type Store interface {
	Create(ctx context.Context, user domain.User) (string, error)
	Get(ctx context.Context, sid string) (*domain.User, error)
	Delete(ctx context.Context, sid string) error
}

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisStore(log *logger.Logger, addr string, ttl time.Duration) (Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStore{
		log: log.With("service", "SessionStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *redisStore) Create(ctx context.Context, user domain.User) (string, error) {
	sid := uuid.NewString()
	raw, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, keyPrefix+sid, raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: session create: %v", errs.ErrUpstream, err)
	}
	return sid, nil
}

func (s *redisStore) Get(ctx context.Context, sid string) (*domain.User, error) {
	if sid == "" {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, keyPrefix+sid).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: session read: %v", errs.ErrUpstream, err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		s.log.Warn("dropping undecodable session", "error", err)
		_ = s.rdb.Del(ctx, keyPrefix+sid).Err()
		return nil, nil
	}
	return &user, nil
}

func (s *redisStore) Delete(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, keyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("%w: session delete: %v", errs.ErrUpstream, err)
	}
	return nil
}
