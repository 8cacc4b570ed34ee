// Package dto holds the JSON shapes of the HTTP API and their conversion
// to usecase inputs. JSON uses camelCase names.
package dto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/usecase"
)

type CoordinatesRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type FeaturesRequest struct {
	Capacity     int      `json:"capacity" validate:"gte=0"`
	Parking      bool     `json:"parking"`
	NaturalLight bool     `json:"naturalLight"`
	Equipment    []string `json:"equipment"`
}

// ImageRequest is either inline base64 data (optionally a data: URL) or a
// reference to an existing image.
type ImageRequest struct {
	FileName string `json:"fileName,omitempty" validate:"max=255"`
	Data     string `json:"data,omitempty" validate:"required_without=URL"`
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
}

type CreateLocationRequest struct {
	Title               string              `json:"title" validate:"required,max=200"`
	Description         string              `json:"description" validate:"max=5000"`
	Address             string              `json:"address" validate:"max=500"`
	PricePerHour        float64             `json:"pricePerHour" validate:"gte=0"`
	Area                float64             `json:"area" validate:"gte=0"`
	Images              []ImageRequest      `json:"images" validate:"max=50,dive"`
	Amenities           []string            `json:"amenities"`
	Rules               []string            `json:"rules"`
	Coordinates         *CoordinatesRequest `json:"coordinates"`
	Features            *FeaturesRequest    `json:"features"`
	MinimumBookingHours int                 `json:"minimumBookingHours" validate:"gte=0"`
	Status              string              `json:"status" validate:"omitempty,oneof=draft published archived"`
}

// UpdateLocationRequest is a patch: absent fields keep their value.
type UpdateLocationRequest struct {
	Title               *string             `json:"title" validate:"omitempty,min=1,max=200"`
	Description         *string             `json:"description" validate:"omitempty,max=5000"`
	Address             *string             `json:"address" validate:"omitempty,max=500"`
	PricePerHour        *float64            `json:"pricePerHour" validate:"omitempty,gte=0"`
	Area                *float64            `json:"area" validate:"omitempty,gte=0"`
	Images              *[]ImageRequest     `json:"images" validate:"omitempty,max=50,dive"`
	Amenities           *[]string           `json:"amenities"`
	Rules               *[]string           `json:"rules"`
	Coordinates         *CoordinatesRequest `json:"coordinates"`
	ClearCoordinates    bool                `json:"clearCoordinates"`
	Features            *FeaturesRequest    `json:"features"`
	MinimumBookingHours *int                `json:"minimumBookingHours" validate:"omitempty,gte=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published archived"`
}

type CreateShareRequest struct {
	AccessLevel    string     `json:"accessLevel" validate:"required,oneof=photos_only full_info admin"`
	Name           string     `json:"name" validate:"max=100"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	RecipientEmail string     `json:"recipientEmail" validate:"omitempty,email"`
}

func (r *CreateLocationRequest) ToInput() (usecase.CreateLocationInput, error) {
	images, err := toImageInputs(r.Images)
	if err != nil {
		return usecase.CreateLocationInput{}, err
	}
	return usecase.CreateLocationInput{
		Title:               r.Title,
		Description:         r.Description,
		Address:             r.Address,
		PricePerHour:        r.PricePerHour,
		Area:                r.Area,
		Images:              images,
		Amenities:           r.Amenities,
		Rules:               r.Rules,
		Coordinates:         r.Coordinates.toDomain(),
		Features:            r.Features.toDomain(),
		MinimumBookingHours: r.MinimumBookingHours,
		Status:              domain.LocationStatus(r.Status),
	}, nil
}

func (r *UpdateLocationRequest) ToInput() (usecase.UpdateLocationInput, error) {
	in := usecase.UpdateLocationInput{
		Title:               r.Title,
		Description:         r.Description,
		Address:             r.Address,
		PricePerHour:        r.PricePerHour,
		Area:                r.Area,
		Amenities:           r.Amenities,
		Rules:               r.Rules,
		Coordinates:         r.Coordinates.toDomain(),
		ClearCoordinates:    r.ClearCoordinates,
		Features:            r.Features.toDomain(),
		MinimumBookingHours: r.MinimumBookingHours,
	}
	if r.Images != nil {
		images, err := toImageInputs(*r.Images)
		if err != nil {
			return usecase.UpdateLocationInput{}, err
		}
		in.Images = &images
	}
	return in, nil
}

func (r *CreateShareRequest) ToInput(locationID string) usecase.CreateShareInput {
	return usecase.CreateShareInput{
		LocationID:     locationID,
		AccessLevel:    domain.AccessLevel(r.AccessLevel),
		Name:           r.Name,
		ExpiresAt:      r.ExpiresAt,
		RecipientEmail: r.RecipientEmail,
	}
}

func (c *CoordinatesRequest) toDomain() *domain.Coordinates {
	if c == nil {
		return nil
	}
	return &domain.Coordinates{Lat: c.Lat, Lng: c.Lng}
}

func (f *FeaturesRequest) toDomain() *domain.Features {
	if f == nil {
		return nil
	}
	return &domain.Features{
		Capacity:     f.Capacity,
		Parking:      f.Parking,
		NaturalLight: f.NaturalLight,
		Equipment:    f.Equipment,
	}
}

func toImageInputs(reqs []ImageRequest) ([]domain.ImageInput, error) {
	inputs := make([]domain.ImageInput, 0, len(reqs))
	for i, req := range reqs {
		if req.Data == "" {
			inputs = append(inputs, domain.ImageInput{FileName: req.FileName, URL: req.URL})
			continue
		}
		data, err := decodeImageData(req.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: images[%d].data: %v", domain.ErrInvalidInput, i, err)
		}
		inputs = append(inputs, domain.ImageInput{FileName: req.FileName, Data: data})
	}
	return inputs, nil
}

// decodeImageData accepts plain base64 or a data:<mime>;base64,<payload> URL.
func decodeImageData(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, errors.New("unsupported data URL")
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("invalid base64 payload")
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}

// StatusesForTab maps the profile tab names to lifecycle states. An empty
// tab selects every state.
func StatusesForTab(tab string) ([]domain.LocationStatus, error) {
	switch tab {
	case "":
		return nil, nil
	case "locations":
		return []domain.LocationStatus{domain.StatusPublished}, nil
	case "drafts":
		return []domain.LocationStatus{domain.StatusDraft}, nil
	case "archived":
		return []domain.LocationStatus{domain.StatusArchived}, nil
	}
	return nil, fmt.Errorf("%w: unknown tab %q", domain.ErrInvalidInput, tab)
}
