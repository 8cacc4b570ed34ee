package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const shareCollectionName = "location_shares"

// ShareRepository implements domain.ShareRepository on MongoDB.
type ShareRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewShareRepository(db *mongo.Database, log *logger.Logger) (*ShareRepository, error) {
	collection := db.Collection(shareCollectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "share_token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Error("Failed to create indexes for location_shares collection", zap.Error(err))
	} else {
		log.Info("Successfully ensured indexes for location_shares collection")
	}

	return &ShareRepository{
		collection: collection,
		logger:     log.Named("MongoShareRepository"),
	}, nil
}

func (r *ShareRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	if _, err := r.collection.InsertOne(ctx, fromDomainShare(link)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Warn("Duplicate share token or id", zap.String("share_id", link.ID))
			return fmt.Errorf("%w: share token already in use", domain.ErrInvalidInput)
		}
		r.logger.Error("Failed to insert share link", zap.Error(err))
		return fmt.Errorf("%w: db insert failed: %w", domain.ErrRemote, err)
	}
	return nil
}

func (r *ShareRepository) FindByToken(ctx context.Context, locationID, token string) (*domain.ShareLink, error) {
	return r.findOne(ctx, bson.M{"location_id": locationID, "share_token": token})
}

func (r *ShareRepository) FindByID(ctx context.Context, id string) (*domain.ShareLink, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ShareRepository) findOne(ctx context.Context, query bson.M) (*domain.ShareLink, error) {
	var doc shareDocument
	if err := r.collection.FindOne(ctx, query).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrShareNotFound
		}
		r.logger.Error("Failed to find share link", zap.Error(err))
		return nil, fmt.Errorf("%w: db findone failed: %w", domain.ErrRemote, err)
	}
	return doc.toDomain()
}

func (r *ShareRepository) ListByLocation(ctx context.Context, locationID string) ([]*domain.ShareLink, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"location_id": locationID}, opts)
	if err != nil {
		r.logger.Error("Failed to list share links", zap.String("location_id", locationID), zap.Error(err))
		return nil, fmt.Errorf("%w: db find failed: %w", domain.ErrRemote, err)
	}
	defer cursor.Close(ctx)

	var docs []*shareDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: db cursor all failed: %w", domain.ErrRemote, err)
	}
	out := make([]*domain.ShareLink, 0, len(docs))
	for _, d := range docs {
		link, err := d.toDomain()
		if err != nil {
			r.logger.Warn("Skipping malformed share document", zap.String("share_id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, link)
	}
	return out, nil
}

func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		r.logger.Error("Failed to delete share link", zap.String("share_id", id), zap.Error(err))
		return fmt.Errorf("%w: db delete failed: %w", domain.ErrRemote, err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrShareNotFound
	}
	return nil
}

func (r *ShareRepository) DeleteByLocation(ctx context.Context, locationID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"location_id": locationID})
	if err != nil {
		r.logger.Error("Failed to delete share links of location", zap.String("location_id", locationID), zap.Error(err))
		return 0, fmt.Errorf("%w: db delete failed: %w", domain.ErrRemote, err)
	}
	return result.DeletedCount, nil
}
