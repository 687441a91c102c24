package rdx

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the production Store. Update runs as an optimistic
// WATCH/MULTI transaction and retries when another writer wins.
type Redis struct {
	Conn       *redis.Client
	MaxRetries int
}

func Connect(ctx context.Context, addr, password string, db int) (*Redis, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Redis{Conn: conn, MaxRetries: 10}, nil
}

func (r *Redis) Close() error { return r.Conn.Close() }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.Conn.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.Conn.Set(ctx, key, val, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, key string) error {
	return r.Conn.Del(ctx, key).Err()
}

func (r *Redis) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			old = nil
		} else if err != nil {
			return err
		}
		nv, err := fn(old)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if nv == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, nv, ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < r.MaxRetries; i++ {
		err := r.Conn.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	log.Printf("rdx: giving up on %s after %d conflicting writes", key, r.MaxRetries)
	return ErrConflict
}

func (r *Redis) Publish(ctx context.Context, channel string, msg []byte) error {
	return r.Conn.Publish(ctx, channel, msg).Err()
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ps := r.Conn.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	out := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- []byte(m.Payload):
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}
	return out, stop, nil
}
