package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Client                  *mongo.Client
	InvoiceDraftsCollection *mongo.Collection
	IdempotencyCollection   *mongo.Collection
)

// Connect opens the MongoDB client and sets up the collections the
// storefront owns. Only in-progress invoice drafts and idempotency
// records live here; everything else belongs to the backend.
func Connect(ctx context.Context, uri, database string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(Registry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongodb: %w", err)
	}

	Client = client
	InvoiceDraftsCollection = client.Database(database).Collection("invoice_drafts")
	IdempotencyCollection = client.Database(database).Collection("idempotency")

	if err := createIndexes(ctx); err != nil {
		log.Printf("mongodb indexes: %v", err)
	}
	return nil
}

func createIndexes(ctx context.Context) error {
	_, err := InvoiceDraftsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("invoice_drafts: %w", err)
	}
	// unique key + TTL
	_, err = IdempotencyCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("idempotency: %w", err)
	}
	return nil
}

func Disconnect(ctx context.Context) {
	if Client == nil {
		return
	}
	if err := Client.Disconnect(ctx); err != nil {
		log.Printf("mongodb disconnect: %v", err)
	}
}
