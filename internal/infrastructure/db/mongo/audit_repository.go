package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

const authEventsCollection = "auth_events"

// AuthEventRepository implements ports.AuthEventRepository using MongoDB.
type AuthEventRepository struct {
	db *mongo.Database
}

// NewAuthEventRepository creates a new AuthEventRepository.
func NewAuthEventRepository(db *mongo.Database) ports.AuthEventRepository {
	return &AuthEventRepository{db: db}
}

// InsertEvent appends an event to the auth_events collection.
func (r *AuthEventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	doc := bson.M{
		"kind":        string(event.Kind),
		"at":          event.At.UTC(),
		"ip":          event.IP,
		"recorded_at": time.Now().UTC(),
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
	}
	if event.Username != "" {
		doc["username"] = event.Username
	}
	if event.UserAgent != "" {
		doc["user_agent"] = event.UserAgent
	}

	if _, err := r.db.Collection(authEventsCollection).InsertOne(ctx, doc); err != nil {
		return upstream("insert auth event", err)
	}
	return nil
}
