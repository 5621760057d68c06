package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Each session is one JSON document; updates use WATCH/MULTI so a write
// only lands if the stored version has not moved.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	stored := session.Clone()
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, sessionKey(session.Key), data, s.cfg.SessionTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrSessionExists
	}
	session.Version = 1
	return nil
}

func (s *Storage) GetSession(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	return getSession(ctx, s.client, key)
}

func (s *Storage) SessionExists(ctx context.Context, key model.SessionKey) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error {
	key := sessionKey(session.Key)

	stored := session.Clone()
	stored.Version = expectedVersion + 1
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getSession(ctx, tx, session.Key)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return model.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.SessionTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	session.Version = expectedVersion + 1
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, key model.SessionKey) error {
	return s.client.Del(ctx, sessionKey(key)).Err()
}

func getSession(ctx context.Context, c redis.Cmdable, key model.SessionKey) (*model.Session, error) {
	data, err := c.Get(ctx, sessionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	if !session.Phase.IsValid() {
		return nil, fmt.Errorf("decode session %s: unknown phase %q", key, session.Phase)
	}
	return &session, nil
}
