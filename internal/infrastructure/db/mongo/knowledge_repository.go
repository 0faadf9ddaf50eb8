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

	"github.com/knowledgehub/workflow/internal/core/domain"
)

const collectionKnowledge = "knowledge"

type KnowledgeRepository struct {
	col *mongo.Collection
}

func NewKnowledgeRepository(db *mongo.Database) *KnowledgeRepository {
	return &KnowledgeRepository{col: db.Collection(collectionKnowledge)}
}

type knowledgeDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Author      string             `bson:"author"`
	Role        string             `bson:"role"`
	Tags        []string           `bson:"tags"`
	Project     string             `bson:"project"`
	Region      string             `bson:"region"`
	Type        string             `bson:"type"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	ValidatedBy string             `bson:"validatedBy,omitempty"`
	ValidatedAt *time.Time         `bson:"validatedAt,omitempty"`
}

func (d knowledgeDocument) toDomain() *domain.KnowledgeItem {
	item := &domain.KnowledgeItem{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Author:      d.Author,
		Role:        domain.Role(d.Role),
		Tags:        domain.CloneTags(d.Tags),
		Project:     d.Project,
		Region:      d.Region,
		Type:        d.Type,
		Status:      domain.KnowledgeStatus(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		ValidatedBy: d.ValidatedBy,
	}
	if d.ValidatedAt != nil {
		at := d.ValidatedAt.UTC()
		item.ValidatedAt = &at
	}
	return item
}

// objectID parses the external id form. Anything that is not a 24-char hex
// ObjectID is malformed rather than missing.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *KnowledgeRepository) List(ctx context.Context, filter domain.KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Author != "" {
		query["author"] = filter.Author
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	cur, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, backendErr("list knowledge", err)
	}
	var docs []knowledgeDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, backendErr("decode knowledge", err)
	}
	items := make([]domain.KnowledgeItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, *d.toDomain())
	}
	return items, nil
}

func (r *KnowledgeRepository) FindByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc knowledgeDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
		}
		return nil, backendErr("find knowledge", err)
	}
	return doc.toDomain(), nil
}

func (r *KnowledgeRepository) Insert(ctx context.Context, item domain.KnowledgeItem) (*domain.KnowledgeItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := knowledgeDocument{
		ID:          primitive.NewObjectID(),
		Title:       item.Title,
		Description: item.Description,
		Author:      item.Author,
		Role:        string(item.Role),
		Tags:        domain.CloneTags(item.Tags),
		Project:     item.Project,
		Region:      item.Region,
		Type:        item.Type,
		Status:      string(item.Status),
		CreatedAt:   item.CreatedAt.UTC(),
		ValidatedBy: item.ValidatedBy,
		ValidatedAt: item.ValidatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, backendErr("insert knowledge", err)
	}
	return doc.toDomain(), nil
}

// Update applies the decision with a single $set so concurrent decisions on
// one item never interleave field by field.
func (r *KnowledgeRepository) Update(ctx context.Context, id string, patch domain.KnowledgePatch) (*domain.KnowledgeItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":      string(patch.Status),
		"validatedBy": patch.ValidatedBy,
		"validatedAt": patch.ValidatedAt.UTC(),
	}}
	filter := bson.M{"_id": oid}
	if patch.OnlyIfUndecided {
		// matches a missing or null validatedAt
		filter["validatedAt"] = nil
	}
	var doc knowledgeDocument
	err = r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, backendErr("update knowledge", err)
	}
	if !patch.OnlyIfUndecided {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: knowledge item %s already decided", domain.ErrConflict, id)
}

func (r *KnowledgeRepository) Remove(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc knowledgeDocument
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
		}
		return nil, backendErr("remove knowledge", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the indexes backing the author and status filters.
func (r *KnowledgeRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
