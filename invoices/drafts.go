package invoices

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"musa/models"
)

var ErrDraftNotFound = errors.New("invoice draft not found")

// DraftStore keeps invoice drafts between edits, one per order.
type DraftStore interface {
	Get(ctx context.Context, orderID int) (models.InvoiceDraft, error)
	Save(ctx context.Context, d models.InvoiceDraft) error
	Delete(ctx context.Context, orderID int) error
}

type MongoDrafts struct {
	coll *mongo.Collection
}

// NewMongoDrafts expects a collection whose client uses db.Registry so
// decimals are stored exactly.
func NewMongoDrafts(coll *mongo.Collection) *MongoDrafts {
	return &MongoDrafts{coll: coll}
}

func (s *MongoDrafts) Get(ctx context.Context, orderID int) (models.InvoiceDraft, error) {
	var d models.InvoiceDraft
	err := s.coll.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return d, ErrDraftNotFound
	}
	if err != nil {
		return d, fmt.Errorf("find draft %d: %w", orderID, err)
	}
	return d, nil
}

func (s *MongoDrafts) Save(ctx context.Context, d models.InvoiceDraft) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"order_id": d.OrderID}, d, opts); err != nil {
		return fmt.Errorf("save draft %d: %w", d.OrderID, err)
	}
	return nil
}

func (s *MongoDrafts) Delete(ctx context.Context, orderID int) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"order_id": orderID}); err != nil {
		return fmt.Errorf("delete draft %d: %w", orderID, err)
	}
	return nil
}

type MemoryDrafts struct {
	mu     sync.Mutex
	drafts map[int]models.InvoiceDraft
}

func NewMemoryDrafts() *MemoryDrafts {
	return &MemoryDrafts{drafts: make(map[int]models.InvoiceDraft)}
}

func (s *MemoryDrafts) Get(_ context.Context, orderID int) (models.InvoiceDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[orderID]
	if !ok {
		return d, ErrDraftNotFound
	}
	items := make([]models.InvoiceItem, len(d.Items))
	copy(items, d.Items)
	d.Items = items
	return d, nil
}

func (s *MemoryDrafts) Save(_ context.Context, d models.InvoiceDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.InvoiceItem, len(d.Items))
	copy(items, d.Items)
	d.Items = items
	s.drafts[d.OrderID] = d
	return nil
}

func (s *MemoryDrafts) Delete(_ context.Context, orderID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, orderID)
	return nil
}
