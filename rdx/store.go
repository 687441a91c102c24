// Package rdx is the storefront's key/value layer: Redis in production and
// an in-process map for tests and single-node development.
package rdx

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("too many concurrent updates")
)

// UpdateFunc receives the current value (nil when absent) and returns the
// new one. Returning nil deletes the key.
type UpdateFunc func(old []byte) ([]byte, error)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Update is an atomic read-modify-write of one key.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error
	Publish(ctx context.Context, channel string, msg []byte) error
	// Subscribe delivers messages published on channel until stop is called.
	Subscribe(ctx context.Context, channel string) (msgs <-chan []byte, stop func(), err error)
}

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is a Store backed by a map. Pub/sub is in-process only.
type Memory struct {
	mu   sync.Mutex
	data map[string]entry
	subs map[string]map[chan []byte]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]entry),
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

func (m *Memory) get(key string) ([]byte, bool) {
	e, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(m.data, key)
		return nil, false
	}
	return e.val, true
}

func (m *Memory) set(key string, val []byte, ttl time.Duration) {
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.data[key] = e
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, val, ttl)
	return nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Update(_ context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, _ := m.get(key)
	if old != nil {
		old = append([]byte(nil), old...)
	}
	nv, err := fn(old)
	if err != nil {
		return err
	}
	if nv == nil {
		delete(m.data, key)
		return nil
	}
	m.set(key, nv, ttl)
	return nil
}

func (m *Memory) Publish(_ context.Context, channel string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[channel] {
		select {
		case ch <- append([]byte(nil), msg...):
		default:
			// subscriber is behind; drop rather than block publishers
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)
	m.mu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[chan []byte]struct{})
	}
	m.subs[channel][ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[channel], ch)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}
