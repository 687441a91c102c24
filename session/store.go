package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"musa/models"
	"musa/rdx"
)

func key(id string) string { return "session:" + id }

// Store keeps sessions in the key/value store, one JSON record per id.
type Store struct {
	kv  rdx.Store
	ttl time.Duration
}

func NewStore(kv rdx.Store, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

// Load returns the session for id. A missing or unreadable record yields
// an empty anonymous session rather than an error.
func (s *Store) Load(ctx context.Context, id string) (models.Session, error) {
	raw, err := s.kv.Get(ctx, key(id))
	if errors.Is(err, rdx.ErrNotFound) {
		return models.Session{ID: id}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	return decode(id, raw), nil
}

func decode(id string, raw []byte) models.Session {
	var sess models.Session
	if len(raw) == 0 {
		return models.Session{ID: id}
	}
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Printf("session %s: discarding corrupt record: %v", id, err)
		return models.Session{ID: id}
	}
	sess.ID = id
	return sess
}

// Update applies fn to the stored session atomically and returns the
// result.
func (s *Store) Update(ctx context.Context, id string, fn func(*models.Session) error) (models.Session, error) {
	var out models.Session
	err := s.kv.Update(ctx, key(id), s.ttl, func(old []byte) ([]byte, error) {
		sess := decode(id, old)
		if err := fn(&sess); err != nil {
			return nil, err
		}
		sess.UpdatedAt = time.Now().UTC()
		out = sess
		return json.Marshal(sess)
	})
	if err != nil {
		return models.Session{}, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Del(ctx, key(id))
}
