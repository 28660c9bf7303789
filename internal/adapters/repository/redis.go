package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON document per challenge plus a set of ids used
// for counting. Champion updates run inside WATCH/MULTI on the challenge key.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions(opts)}
}

// OpenRedis connects to the server described by url and pings it.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(id string) string { return s.opts.keyPrefix + "challenge:" + id }

func (s *RedisStore) indexKey() string { return s.opts.keyPrefix + "challenges" }

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, ch Challenge) (Challenge, error) {
	ch, err := prepare(ch, s.opts.now())
	if err != nil {
		return Challenge{}, err
	}
	data, err := encode(ch)
	if err != nil {
		return Challenge{}, err
	}
	ok, err := s.client.SetNX(ctx, s.key(ch.ID), data, s.opts.ttl).Result()
	if err != nil {
		return Challenge{}, fmt.Errorf("create challenge %s: %w", ch.ID, err)
	}
	if !ok {
		return Challenge{}, ErrAlreadyExists
	}
	if err := s.client.SAdd(ctx, s.indexKey(), ch.ID).Err(); err != nil {
		return Challenge{}, fmt.Errorf("index challenge %s: %w", ch.ID, err)
	}
	return ch, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (Challenge, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("get challenge %s: %w", id, err)
	}
	return decode(data)
}

// ReplaceChampion implements Store. A concurrent write to the key aborts the
// transaction and is reported as ErrVersionConflict.
func (s *RedisStore) ReplaceChampion(ctx context.Context, id string, expectedVersion int64, next ChampionUpdate) (Challenge, error) {
	if err := checkUpdate(next); err != nil {
		return Challenge{}, err
	}
	key := s.key(id)
	var updated Challenge

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decode(data)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return ErrVersionConflict
		}

		updated = apply(cur, next, s.opts.now())
		out, err := encode(updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, out, s.opts.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, redis.TxFailedErr):
		return Challenge{}, ErrVersionConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVersionConflict):
		return Challenge{}, err
	default:
		return Challenge{}, fmt.Errorf("replace champion of %s: %w", id, err)
	}
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete challenge %s: %w", id, err)
	}
	if err := s.client.SRem(ctx, s.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("unindex challenge %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count implements Store. Ids whose key has expired are pruned first.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("list challenges: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	live, err := s.client.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("count challenges: %w", err)
	}
	if int(live) < len(ids) {
		var stale []interface{}
		for _, id := range ids {
			if s.client.Exists(ctx, s.key(id)).Val() == 0 {
				stale = append(stale, id)
			}
		}
		if len(stale) > 0 {
			_ = s.client.SRem(ctx, s.indexKey(), stale...).Err()
		}
	}
	return int(live), nil
}
