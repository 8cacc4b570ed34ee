// Package mapper converts between the snake_case rows of the remote store
// and the domain types. Nothing outside this package reads row fields.
package mapper

import (
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
)

// LocationRow mirrors one row of the `locations` table.
type LocationRow struct {
	ID                  string       `json:"id" db:"id"`
	OwnerID             string       `json:"owner_id" db:"owner_id"`
	Title               string       `json:"title" db:"title"`
	Description         string       `json:"description" db:"description"`
	Address             string       `json:"address" db:"address"`
	PricePerHour        float64      `json:"price_per_hour" db:"price_per_hour"`
	Area                float64      `json:"area" db:"area"`
	Images              []string     `json:"images" db:"images"`
	Amenities           []string     `json:"amenities" db:"amenities"`
	Rules               []string     `json:"rules" db:"rules"`
	Latitude            *float64     `json:"latitude" db:"latitude"`
	Longitude           *float64     `json:"longitude" db:"longitude"`
	Features            *FeaturesRow `json:"features" db:"features"`
	MinimumBookingHours *int         `json:"minimum_booking_hours" db:"minimum_booking_hours"`
	Status              string       `json:"status" db:"status"`
	IsDemo              bool         `json:"is_demo" db:"is_demo"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// FeaturesRow is stored as a JSON object in the features column.
type FeaturesRow struct {
	Capacity     int      `json:"capacity"`
	Parking      bool     `json:"parking"`
	NaturalLight bool     `json:"natural_light"`
	Equipment    []string `json:"equipment"`
}

// ShareRow mirrors one row of the `location_shares` table.
type ShareRow struct {
	ID          string     `json:"id" db:"id"`
	LocationID  string     `json:"location_id" db:"location_id"`
	ShareToken  string     `json:"share_token" db:"share_token"`
	AccessLevel string     `json:"access_level" db:"access_level"`
	Name        *string    `json:"name" db:"name"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at" db:"expires_at"`
}

// ToLocation converts a store row, rejecting rows that break domain invariants.
func ToLocation(row LocationRow) (*domain.Location, error) {
	status := domain.LocationStatus(row.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: location %s has unknown status %q", domain.ErrInvalidInput, row.ID, row.Status)
	}
	if row.PricePerHour < 0 || row.Area < 0 {
		return nil, fmt.Errorf("%w: location %s has a negative price or area", domain.ErrInvalidInput, row.ID)
	}

	loc := &domain.Location{
		ID:                  row.ID,
		OwnerID:             row.OwnerID,
		Title:               row.Title,
		Description:         row.Description,
		Address:             row.Address,
		PricePerHour:        row.PricePerHour,
		Area:                row.Area,
		Images:              copyOrEmpty(row.Images),
		Amenities:           copyOrEmpty(row.Amenities),
		Rules:               copyOrEmpty(row.Rules),
		MinimumBookingHours: domain.DefaultMinimumBookingHours,
		Status:              status,
		IsDemo:              row.IsDemo,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if row.MinimumBookingHours != nil && *row.MinimumBookingHours > 0 {
		loc.MinimumBookingHours = *row.MinimumBookingHours
	}

	switch {
	case row.Latitude != nil && row.Longitude != nil:
		loc.Coordinates = &domain.Coordinates{Lat: *row.Latitude, Lng: *row.Longitude}
	case row.Latitude != nil || row.Longitude != nil:
		return nil, fmt.Errorf("%w: location %s has only one coordinate", domain.ErrInvalidInput, row.ID)
	}

	if row.Features != nil {
		loc.Features = &domain.Features{
			Capacity:     row.Features.Capacity,
			Parking:      row.Features.Parking,
			NaturalLight: row.Features.NaturalLight,
			Equipment:    copyOrEmpty(row.Features.Equipment),
		}
	}
	return loc, nil
}

// FromLocation converts a domain location into its store row.
func FromLocation(loc *domain.Location) LocationRow {
	minHours := loc.MinimumBookingHours
	if minHours <= 0 {
		minHours = domain.DefaultMinimumBookingHours
	}
	row := LocationRow{
		ID:                  loc.ID,
		OwnerID:             loc.OwnerID,
		Title:               loc.Title,
		Description:         loc.Description,
		Address:             loc.Address,
		PricePerHour:        loc.PricePerHour,
		Area:                loc.Area,
		Images:              copyOrEmpty(loc.Images),
		Amenities:           copyOrEmpty(loc.Amenities),
		Rules:               copyOrEmpty(loc.Rules),
		MinimumBookingHours: &minHours,
		Status:              string(loc.Status),
		IsDemo:              loc.IsDemo,
		CreatedAt:           loc.CreatedAt,
		UpdatedAt:           loc.UpdatedAt,
	}
	if loc.Coordinates != nil {
		lat, lng := loc.Coordinates.Lat, loc.Coordinates.Lng
		row.Latitude = &lat
		row.Longitude = &lng
	}
	if loc.Features != nil {
		row.Features = &FeaturesRow{
			Capacity:     loc.Features.Capacity,
			Parking:      loc.Features.Parking,
			NaturalLight: loc.Features.NaturalLight,
			Equipment:    copyOrEmpty(loc.Features.Equipment),
		}
	}
	return row
}

func ToShareLink(row ShareRow) (*domain.ShareLink, error) {
	level := domain.AccessLevel(row.AccessLevel)
	if !level.IsValid() {
		return nil, fmt.Errorf("%w: share %s has unknown access level %q", domain.ErrInvalidInput, row.ID, row.AccessLevel)
	}
	link := &domain.ShareLink{
		ID:          row.ID,
		LocationID:  row.LocationID,
		Token:       row.ShareToken,
		AccessLevel: level,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
	}
	if row.Name != nil {
		link.Name = *row.Name
	}
	if row.ExpiresAt != nil {
		exp := *row.ExpiresAt
		link.ExpiresAt = &exp
	}
	return link, nil
}

func FromShareLink(link *domain.ShareLink) ShareRow {
	row := ShareRow{
		ID:          link.ID,
		LocationID:  link.LocationID,
		ShareToken:  link.Token,
		AccessLevel: string(link.AccessLevel),
		CreatedBy:   link.CreatedBy,
		CreatedAt:   link.CreatedAt,
	}
	if link.Name != "" {
		name := link.Name
		row.Name = &name
	}
	if link.ExpiresAt != nil {
		exp := *link.ExpiresAt
		row.ExpiresAt = &exp
	}
	return row
}

func copyOrEmpty(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
