// Package redis keeps idempotency records in redis so that every instance of the
// HTTP API replays the same response for a key.
package redis

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/stores/idempotency"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Redis struct {
	url *url.URL
	rdb redis.Cmdable
}

// New connects to the redis server in u, for example redis://:secret@localhost:6379/2.
// The path selects the database number.
func New(u *url.URL, password ...string) (*Redis, error) {
	ro := &redis.Options{
		Addr: u.Host,
	}

	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		db, err := strconv.Atoi(path)
		if err != nil {
			return nil, errors.NewConfigurationError("redis path must be an integer: %s", u.Path, err)
		}

		ro.DB = db
	}

	if u.User != nil {
		if u.User.Username() != "" {
			ro.Username = u.User.Username()
		}

		if p, ok := u.User.Password(); ok {
			ro.Password = p
		}
	}

	// If optional password is set, override...
	if len(password) > 0 && password[0] != "" {
		ro.Password = password[0]
	}

	return &Redis{
		url: u,
		rdb: redis.NewClient(ro),
	}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*idempotency.Response, error) {
	b, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, errors.NewStorageError("[Idempotency][redis] failed to get %s", key, err)
	}

	resp := &idempotency.Response{}
	if err = json.Unmarshal(b, resp); err != nil {
		return nil, errors.NewProcessingError("[Idempotency][redis] invalid record for %s", key, err)
	}

	return resp, nil
}

func (r *Redis) Reserve(ctx context.Context, key string, ttl time.Duration) (*idempotency.Response, error) {
	b, err := json.Marshal(idempotency.PendingResponse())
	if err != nil {
		return nil, errors.NewProcessingError("[Idempotency][redis] failed to encode record for %s", key, err)
	}

	stored, err := r.rdb.SetNX(ctx, keyPrefix+key, b, ttl).Result()
	if err != nil {
		return nil, errors.NewStorageError("[Idempotency][redis] failed to reserve %s", key, err)
	}

	if stored {
		return nil, nil
	}

	resp, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		// released or expired after SETNX, the other request still counts as in flight
		return idempotency.PendingResponse(), nil
	}

	return resp, nil
}

func (r *Redis) Complete(ctx context.Context, key string, resp *idempotency.Response, ttl time.Duration) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return errors.NewProcessingError("[Idempotency][redis] failed to encode record for %s", key, err)
	}

	if err = r.rdb.Set(ctx, keyPrefix+key, b, ttl).Err(); err != nil {
		return errors.NewStorageError("[Idempotency][redis] failed to set %s", key, err)
	}

	return nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.NewStorageError("[Idempotency][redis] failed to release %s", key, err)
	}

	return nil
}

func (r *Redis) Health(ctx context.Context, _ bool) (int, string, error) {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return http.StatusServiceUnavailable, "redis idempotency store unreachable at " + r.url.Host, err
	}

	return http.StatusOK, "redis idempotency store", nil
}

func (r *Redis) Close() error {
	if c, ok := r.rdb.(*redis.Client); ok {
		return c.Close()
	}

	return nil
}
