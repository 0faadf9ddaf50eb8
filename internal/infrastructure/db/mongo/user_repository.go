package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository keys accounts by username through _id, so uniqueness is
// enforced by the primary index.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDocument struct {
	Username      string    `bson:"_id"`
	PasswordHash  string    `bson:"password"`
	Role          string    `bson:"role"`
	RequestedRole string    `bson:"requestedRole,omitempty"`
	Region        string    `bson:"region"`
	Status        string    `bson:"status"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		Username:      d.Username,
		PasswordHash:  d.PasswordHash,
		Role:          domain.Role(d.Role),
		RequestedRole: domain.Role(d.RequestedRole),
		Region:        d.Region,
		Status:        domain.UserStatus(d.Status),
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	cur, err := r.col.Find(ctx, query)
	if err != nil {
		return nil, backendErr("list users", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, backendErr("decode users", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, *d.toDomain())
	}
	return users, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		return nil, backendErr("find user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := userDocument{
		Username:      user.Username,
		PasswordHash:  user.PasswordHash,
		Role:          string(user.Role),
		RequestedRole: string(user.RequestedRole),
		Region:        user.Region,
		Status:        string(user.Status),
		CreatedAt:     user.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("user %q: %w", user.Username, domain.ErrDuplicateKey)
		}
		return nil, backendErr("insert user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Update(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if patch.Role != nil {
		set["role"] = string(*patch.Role)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if len(set) == 0 {
		return r.FindByUsername(ctx, username)
	}

	var doc userDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": username},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		return nil, backendErr("update user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Remove(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		return nil, backendErr("remove user", err)
	}
	return doc.toDomain(), nil
}

// RemovePending deletes the account in one FindOneAndDelete filtered on the
// pending status. A miss is told apart from a status change by re-reading.
func (r *UserRepository) RemovePending(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	err := r.col.FindOneAndDelete(ctx, bson.M{"_id": username, "status": string(domain.UserPending)}).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, backendErr("remove pending user", err)
	}
	current, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: user %q is %s", domain.ErrConflict, username, current.Status)
}

// EnsureIndexes creates the status index used by the pending listing.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}})
	return err
}
