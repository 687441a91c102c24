package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrExists   = errors.New("idempotency key already used")
	ErrNotFound = errors.New("idempotency record not found")
)

// Record is one Idempotency-Key use. Response fields are filled once the
// first request finishes.
type Record struct {
	Key         string    `bson:"key"`
	Method      string    `bson:"method"`
	Path        string    `bson:"path"`
	SessionID   string    `bson:"session_id"`
	RequestHash string    `bson:"request_hash"`
	Done        bool      `bson:"done"`
	Status      int       `bson:"status,omitempty"`
	Body        []byte    `bson:"body,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

type Store interface {
	// Reserve inserts rec, or returns ErrExists if its key is taken.
	Reserve(ctx context.Context, rec Record) error
	Find(ctx context.Context, key string) (Record, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
	// Release forgets a key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// MongoStore relies on the unique key and TTL indexes db.Connect creates.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Reserve(ctx context.Context, rec Record) error {
	_, err := s.coll.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("reserve %s: %w", rec.Key, err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("find %s: %w", key, err)
	}
	return rec, nil
}

func (s *MongoStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"done": true, "status": status, "body": body}},
	)
	if err != nil {
		return fmt.Errorf("complete %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Release(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// MemoryStore is used in tests. Expiry is checked on access.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (m *MemoryStore) live(key string) (Record, bool) {
	rec, ok := m.records[key]
	if ok && !rec.ExpiresAt.IsZero() && !m.now().Before(rec.ExpiresAt) {
		delete(m.records, key)
		return Record{}, false
	}
	return rec, ok
}

func (m *MemoryStore) Reserve(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(rec.Key); ok {
		return ErrExists
	}
	m.records[rec.Key] = rec
	return nil
}

func (m *MemoryStore) Find(_ context.Context, key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live(key)
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Complete(_ context.Context, key string, status int, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live(key)
	if !ok {
		return ErrNotFound
	}
	rec.Done, rec.Status, rec.Body = true, status, append([]byte(nil), body...)
	m.records[key] = rec
	return nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
