package mongodb

import (
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildLocationQuery(t *testing.T) {
	t.Run("Empty filter matches everything", func(t *testing.T) {
		assert.Equal(t, bson.M{}, buildLocationQuery(domain.Filter{}))
	})

	t.Run("Ranges", func(t *testing.T) {
		q := buildLocationQuery(domain.Filter{MinPrice: 50, MaxPrice: 100, MaxArea: 80})
		assert.Equal(t, bson.M{"$gte": 50.0, "$lte": 100.0}, q["price_per_hour"])
		assert.Equal(t, bson.M{"$lte": 80.0}, q["area"])
	})

	t.Run("Published only", func(t *testing.T) {
		q := buildLocationQuery(domain.Filter{Statuses: []domain.LocationStatus{domain.StatusPublished}})
		assert.Equal(t, bson.M{"$in": []string{"published"}}, q["status"])
		assert.NotContains(t, q, "$or")
	})

	t.Run("Published or own", func(t *testing.T) {
		q := buildLocationQuery(domain.Filter{Statuses: []domain.LocationStatus{domain.StatusPublished}, VisibleTo: "u1"})
		assert.NotContains(t, q, "status")
		assert.Equal(t, bson.A{
			bson.M{"status": bson.M{"$in": []string{"published"}}},
			bson.M{"owner_id": "u1"},
		}, q["$or"])
	})
}

func TestLocationDocumentRoundTrip(t *testing.T) {
	lat, lng := 55.75, 37.61
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	loc := &domain.Location{
		ID:           "65f1c0ffee0000000000abcd",
		OwnerID:      "owner",
		Title:        "Loft",
		PricePerHour: 30,
		Images:       []string{"b.jpg", "a.jpg"},
		Coordinates:  &domain.Coordinates{Lat: lat, Lng: lng},
		Features:     &domain.Features{Capacity: 10, Parking: true},
		Status:       domain.StatusPublished,
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	doc, err := fromDomainLocation(loc)
	require.NoError(t, err)
	assert.Equal(t, loc.ID, doc.ID.Hex())
	require.NotNil(t, doc.MinimumBookingHours)
	assert.Equal(t, domain.DefaultMinimumBookingHours, *doc.MinimumBookingHours)

	back, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, loc.Images, back.Images)
	assert.Equal(t, *loc.Coordinates, *back.Coordinates)
	assert.Equal(t, domain.DefaultMinimumBookingHours, back.MinimumBookingHours)

	_, err = fromDomainLocation(&domain.Location{ID: "demo-loft-01"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
