package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const locationCollectionName = "locations"

// LocationRepository implements domain.LocationRepository on MongoDB.
type LocationRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewLocationRepository(db *mongo.Database, log *logger.Logger) (*LocationRepository, error) {
	collection := db.Collection(locationCollectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "price_per_hour", Value: 1}}},
		{Keys: bson.D{{Key: "area", Value: 1}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// indexes may already exist or be managed out of band
		log.Error("Failed to create indexes for locations collection", zap.Error(err))
	} else {
		log.Info("Successfully ensured indexes for locations collection")
	}

	return &LocationRepository{
		collection: collection,
		logger:     log.Named("MongoLocationRepository"),
	}, nil
}

func (r *LocationRepository) Create(ctx context.Context, loc *domain.Location) error {
	doc, err := fromDomainLocation(loc)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert location", zap.Error(err))
		return fmt.Errorf("%w: db insert failed: %w", domain.ErrRemote, err)
	}
	loc.ID = doc.ID.Hex()
	r.logger.Debug("Location inserted", zap.String("location_id", loc.ID))
	return nil
}

func (r *LocationRepository) Update(ctx context.Context, loc *domain.Location) error {
	doc, err := fromDomainLocation(loc)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		return fmt.Errorf("%w: cannot update location without id", domain.ErrInvalidInput)
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		r.logger.Error("Failed to update location", zap.String("location_id", loc.ID), zap.Error(err))
		return fmt.Errorf("%w: db update failed: %w", domain.ErrRemote, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("Failed to delete location", zap.String("location_id", id), zap.Error(err))
		return fmt.Errorf("%w: db delete failed: %w", domain.ErrRemote, err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// not one of ours, e.g. a demo id
		return nil, domain.ErrNotFound
	}
	var doc locationDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to find location", zap.String("location_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: db findone failed: %w", domain.ErrRemote, err)
	}
	return doc.toDomain()
}

func (r *LocationRepository) FindByFilter(ctx context.Context, filter domain.Filter) ([]*domain.Location, error) {
	query := buildLocationQuery(filter)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("Failed to find locations", zap.Any("filter", filter), zap.Error(err))
		return nil, fmt.Errorf("%w: db find failed: %w", domain.ErrRemote, err)
	}
	defer cursor.Close(ctx)

	var docs []*locationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: db cursor all failed: %w", domain.ErrRemote, err)
	}

	out := make([]*domain.Location, 0, len(docs))
	for _, d := range docs {
		loc, err := d.toDomain()
		if err != nil {
			// one malformed document should not hide the rest
			r.logger.Warn("Skipping malformed location document", zap.String("location_id", d.ID.Hex()), zap.Error(err))
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

func buildLocationQuery(f domain.Filter) bson.M {
	query := bson.M{}
	if price := rangeQuery(f.MinPrice, f.MaxPrice); price != nil {
		query["price_per_hour"] = price
	}
	if area := rangeQuery(f.MinArea, f.MaxArea); area != nil {
		query["area"] = area
	}
	if f.OwnerID != "" {
		query["owner_id"] = f.OwnerID
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		byStatus := bson.M{"status": bson.M{"$in": statuses}}
		if f.VisibleTo != "" {
			query["$or"] = bson.A{byStatus, bson.M{"owner_id": f.VisibleTo}}
		} else {
			query["status"] = byStatus["status"]
		}
	}
	return query
}

func rangeQuery(min, max float64) bson.M {
	if min <= 0 && max <= 0 {
		return nil
	}
	q := bson.M{}
	if min > 0 {
		q["$gte"] = min
	}
	if max > 0 {
		q["$lte"] = max
	}
	return q
}
