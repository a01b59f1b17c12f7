package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

const usersCollection = "users"

// UserRepository implements ports.UserRepository on a MongoDB collection.
// Uniqueness of username and email comes from the indexes in EnsureIndexes.
type UserRepository struct {
	coll *mongo.Collection
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Username       string             `bson:"username"`
	Email          string             `bson:"email"`
	FullName       string             `bson:"fullname"`
	PasswordHash   string             `bson:"password_hash,omitempty"`
	Provider       string             `bson:"provider,omitempty"`
	Role           string             `bson:"role"`
	ProfileImage   string             `bson:"profile_image,omitempty"`
	SolvedProblems []string           `bson:"solved_problems"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := mongoUser{
		Username:       user.Username,
		Email:          user.Email,
		FullName:       user.FullName,
		PasswordHash:   user.PasswordHash,
		Provider:       user.Provider,
		Role:           user.Role,
		ProfileImage:   user.ProfileImage,
		SolvedProblems: user.SolvedProblems,
		CreatedAt:      user.CreatedAt.UTC(),
		UpdatedAt:      user.UpdatedAt.UTC(),
	}
	if doc.SolvedProblems == nil {
		doc.SolvedProblems = []string{}
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, upstream("insert user", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.FullName != nil {
		set["fullname"] = *patch.FullName
	}
	if patch.ProfileImage != nil {
		set["profile_image"] = *patch.ProfileImage
	}
	if patch.SolvedProblems != nil {
		set["solved_problems"] = patch.SolvedProblems
	}

	var mu mongoUser
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	switch {
	case err == nil:
		return mu.toDomain(), nil
	case mongo.IsDuplicateKeyError(err):
		return nil, domain.ErrUserExists
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrUserNotFound
	default:
		return nil, upstream("update user", err)
	}
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return upstream("set password", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ToggleSolved flips slug's membership with single-document atomic updates:
// the add only matches when the slug is absent, the pull only when present.
func (r *UserRepository) ToggleSolved(ctx context.Context, id, slug string) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	now := time.Now().UTC()
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mu mongoUser
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "solved_problems": bson.M{"$ne": slug}},
		bson.M{"$addToSet": bson.M{"solved_problems": slug}, "$set": bson.M{"updated_at": now}},
		after,
	).Decode(&mu)
	if err == nil {
		return mu.solved(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, upstream("toggle solved", err)
	}

	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "solved_problems": slug},
		bson.M{"$pull": bson.M{"solved_problems": slug}, "$set": bson.M{"updated_at": now}},
		after,
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, upstream("toggle solved", err)
	}
	return mu.solved(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return upstream("delete user", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, upstream("find user", err)
	}
	return mu.toDomain(), nil
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:             mu.ID.Hex(),
		Username:       mu.Username,
		Email:          mu.Email,
		FullName:       mu.FullName,
		PasswordHash:   mu.PasswordHash,
		Provider:       mu.Provider,
		Role:           mu.Role,
		ProfileImage:   mu.ProfileImage,
		SolvedProblems: mu.solved(),
		CreatedAt:      mu.CreatedAt.UTC(),
		UpdatedAt:      mu.UpdatedAt.UTC(),
	}
}

func (mu *mongoUser) solved() []string {
	if mu.SolvedProblems == nil {
		return []string{}
	}
	return mu.SolvedProblems
}

// upstream tags a driver failure as an unavailable dependency while keeping
// the driver error in the chain.
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
}
