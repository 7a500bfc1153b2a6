package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collections lists every collection owned by the repositories, in creation order.
var Collections = []string{usersCollection, conversationsCollection}

// InitSchema creates the indexes each repository relies on.
// Index creation is idempotent, so this runs on every start.
func InitSchema(ctx context.Context, db *mongo.Database) error {
	if err := NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	if err := NewConversationRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}
	return nil
}

// CollectionCounts returns the document count per collection.
func CollectionCounts(ctx context.Context, db *mongo.Database) (map[string]int64, error) {
	counts := make(map[string]int64, len(Collections))
	for _, name := range Collections {
		n, err := db.Collection(name).CountDocuments(ctx, bson.D{})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// DropCollections removes every collection including its indexes.
func DropCollections(ctx context.Context, db *mongo.Database) error {
	for _, name := range Collections {
		if err := db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop %s: %w", name, err)
		}
	}
	return nil
}
