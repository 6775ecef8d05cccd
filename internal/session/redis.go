package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/musicclub/apiserver/config"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "session:"
	userIndexKeyPrefix = "user_sessions:"
)

// RedisStore keeps sessions as JSON strings with a native TTL, plus a per-user
// set of session ids used for identity invalidation. Ids of expired sessions
// are pruned from that set lazily by ClearIdentities and Delete.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	key := sessionKey(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get failed: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupt entries are dropped and treated as absent.
		s.client.Del(ctx, key)
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), data, ttl)
		if sess.UserID > 0 {
			pipe.SAdd(ctx, userIndexKey(sess.UserID), sess.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	if sess.UserID > 0 {
		s.client.SRem(ctx, userIndexKey(sess.UserID), id)
	}
	return nil
}

// CacheIdentity writes the snapshot under WATCH, so a ClearIdentities that
// lands between the read and the write aborts it.
func (s *RedisStore) CacheIdentity(ctx context.Context, sess Session) error {
	key := sessionKey(sess.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrStale
		}
		if err != nil {
			return fmt.Errorf("redis get failed: %w", err)
		}
		var stored Session
		if err := json.Unmarshal(data, &stored); err != nil {
			return ErrStale
		}
		if stored.UserID != sess.UserID || stored.Generation != sess.Generation {
			return ErrStale
		}

		stored.Identity = sess.Identity
		if data, err = json.Marshal(stored); err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, data, redis.SetArgs{KeepTTL: true, Mode: "XX"})
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) || errors.Is(err, redis.Nil) {
		return ErrStale
	}
	if err != nil && !errors.Is(err, ErrStale) {
		return fmt.Errorf("redis cache identity failed: %w", err)
	}
	return err
}

func (s *RedisStore) ClearIdentities(ctx context.Context, userIDs []int) error {
	for _, userID := range userIDs {
		index := userIndexKey(userID)
		ids, err := s.client.SMembers(ctx, index).Result()
		if err != nil {
			return fmt.Errorf("redis smembers failed: %w", err)
		}
		for _, id := range ids {
			sess, err := s.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				s.client.SRem(ctx, index, id)
				continue
			}
			if err != nil {
				return err
			}
			// Bump even when nothing is cached: a resolver may be about to
			// write back a snapshot read before the change.
			sess.Identity = nil
			sess.Generation++
			data, err := json.Marshal(sess)
			if err != nil {
				return fmt.Errorf("failed to marshal session: %w", err)
			}
			if err := s.client.SetArgs(ctx, sessionKey(id), data, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("redis set failed: %w", err)
			}
		}
	}
	return nil
}

// DeleteExpired is a no-op: redis expires session keys on its own.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userIndexKey(userID int) string {
	return userIndexKeyPrefix + strconv.Itoa(userID)
}
