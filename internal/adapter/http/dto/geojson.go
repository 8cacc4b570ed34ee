package dto

import "github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"

// FeatureCollection is the GeoJSON (RFC 7946) document served to the map.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   Point             `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Point coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type FeatureProperties struct {
	Title        string  `json:"title"`
	Address      string  `json:"address"`
	PricePerHour float64 `json:"pricePerHour"`
	CoverImage   string  `json:"coverImage,omitempty"`
	Status       string  `json:"status"`
	AccessLevel  string  `json:"accessLevel"`
}

// NewFeatureCollection keeps only views that expose coordinates.
func NewFeatureCollection(views []*domain.LocationView) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: []*Feature{}}
	for _, v := range views {
		if v.Details == nil || v.Details.Coordinates == nil {
			continue
		}
		f := &Feature{
			Type: "Feature",
			ID:   v.ID,
			Geometry: Point{
				Type:        "Point",
				Coordinates: [2]float64{v.Details.Coordinates.Lng, v.Details.Coordinates.Lat},
			},
			Properties: FeatureProperties{
				Title:        v.Details.Title,
				Address:      v.Details.Address,
				PricePerHour: v.Details.PricePerHour,
				Status:       string(v.Details.Status),
				AccessLevel:  string(v.AccessLevel),
			},
		}
		if len(v.Images) > 0 {
			f.Properties.CoverImage = v.Images[0]
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}
