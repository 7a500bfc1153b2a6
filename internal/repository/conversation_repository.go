package repository

import (
	"context"
	"sync/atomic"
	"time"

	"chatbridge/internal/domain/conversation"
	chatbridge_errors "chatbridge/pkg/errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const conversationsCollection = "conversations"

type MongoConversationRepository struct {
	collection *mongo.Collection
	seq        atomic.Int64
}

func NewConversationRepository(db *mongo.Database) *MongoConversationRepository {
	r := &MongoConversationRepository{collection: db.Collection(conversationsCollection)}
	// seeded from the clock so sequences keep increasing across restarts
	r.seq.Store(time.Now().UnixNano())
	return r
}

func (r *MongoConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetName("user_history"),
	})
	return err
}

func (r *MongoConversationRepository) AppendTurn(ctx context.Context, t *conversation.Turn) error {
	if t.UserID == "" || !t.Role.Valid() {
		return chatbridge_errors.ErrInvalidInput
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Seq = r.seq.Add(1)

	_, err := r.collection.InsertOne(ctx, t)
	return err
}

// GetTurnsByUser returns the whole history for userID, oldest first.
func (r *MongoConversationRepository) GetTurnsByUser(ctx context.Context, userID string) ([]conversation.Turn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}})
	cur, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	turns := make([]conversation.Turn, 0)
	if err := cur.All(ctx, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}
