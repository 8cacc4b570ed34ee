package mongodb

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/mapper"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type featuresDocument struct {
	Capacity     int      `bson:"capacity"`
	Parking      bool     `bson:"parking"`
	NaturalLight bool     `bson:"natural_light"`
	Equipment    []string `bson:"equipment"`
}

type locationDocument struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID             string             `bson:"owner_id"`
	Title               string             `bson:"title"`
	Description         string             `bson:"description"`
	Address             string             `bson:"address"`
	PricePerHour        float64            `bson:"price_per_hour"`
	Area                float64            `bson:"area"`
	Images              []string           `bson:"images"`
	Amenities           []string           `bson:"amenities"`
	Rules               []string           `bson:"rules"`
	Latitude            *float64           `bson:"latitude,omitempty"`
	Longitude           *float64           `bson:"longitude,omitempty"`
	Features            *featuresDocument  `bson:"features,omitempty"`
	MinimumBookingHours *int               `bson:"minimum_booking_hours,omitempty"`
	Status              string             `bson:"status"`
	IsDemo              bool               `bson:"is_demo"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
}

type shareDocument struct {
	ID          string     `bson:"_id"`
	LocationID  string     `bson:"location_id"`
	ShareToken  string     `bson:"share_token"`
	AccessLevel string     `bson:"access_level"`
	Name        *string    `bson:"name,omitempty"`
	CreatedBy   string     `bson:"created_by"`
	CreatedAt   time.Time  `bson:"created_at"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty"`
}

// Documents go through the mapper rows so both stores share one conversion.

func fromDomainLocation(loc *domain.Location) (*locationDocument, error) {
	row := mapper.FromLocation(loc)
	doc := &locationDocument{
		OwnerID:             row.OwnerID,
		Title:               row.Title,
		Description:         row.Description,
		Address:             row.Address,
		PricePerHour:        row.PricePerHour,
		Area:                row.Area,
		Images:              row.Images,
		Amenities:           row.Amenities,
		Rules:               row.Rules,
		Latitude:            row.Latitude,
		Longitude:           row.Longitude,
		MinimumBookingHours: row.MinimumBookingHours,
		Status:              row.Status,
		IsDemo:              row.IsDemo,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if row.Features != nil {
		doc.Features = &featuresDocument{
			Capacity:     row.Features.Capacity,
			Parking:      row.Features.Parking,
			NaturalLight: row.Features.NaturalLight,
			Equipment:    row.Features.Equipment,
		}
	}
	if row.ID != "" {
		oid, err := primitive.ObjectIDFromHex(row.ID)
		if err != nil {
			return nil, domain.ErrNotFound
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d *locationDocument) toDomain() (*domain.Location, error) {
	row := mapper.LocationRow{
		ID:                  d.ID.Hex(),
		OwnerID:             d.OwnerID,
		Title:               d.Title,
		Description:         d.Description,
		Address:             d.Address,
		PricePerHour:        d.PricePerHour,
		Area:                d.Area,
		Images:              d.Images,
		Amenities:           d.Amenities,
		Rules:               d.Rules,
		Latitude:            d.Latitude,
		Longitude:           d.Longitude,
		MinimumBookingHours: d.MinimumBookingHours,
		Status:              d.Status,
		IsDemo:              d.IsDemo,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	if d.Features != nil {
		row.Features = &mapper.FeaturesRow{
			Capacity:     d.Features.Capacity,
			Parking:      d.Features.Parking,
			NaturalLight: d.Features.NaturalLight,
			Equipment:    d.Features.Equipment,
		}
	}
	return mapper.ToLocation(row)
}

func fromDomainShare(link *domain.ShareLink) *shareDocument {
	row := mapper.FromShareLink(link)
	return &shareDocument{
		ID:          row.ID,
		LocationID:  row.LocationID,
		ShareToken:  row.ShareToken,
		AccessLevel: row.AccessLevel,
		Name:        row.Name,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		ExpiresAt:   row.ExpiresAt,
	}
}

func (d *shareDocument) toDomain() (*domain.ShareLink, error) {
	return mapper.ToShareLink(mapper.ShareRow{
		ID:          d.ID,
		LocationID:  d.LocationID,
		ShareToken:  d.ShareToken,
		AccessLevel: d.AccessLevel,
		Name:        d.Name,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		ExpiresAt:   d.ExpiresAt,
	})
}
