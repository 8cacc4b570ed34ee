package dto

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/usecase"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CoordinatesResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type FeaturesResponse struct {
	Capacity     int      `json:"capacity"`
	Parking      bool     `json:"parking"`
	NaturalLight bool     `json:"naturalLight"`
	Equipment    []string `json:"equipment"`
}

type LocationDetailsResponse struct {
	OwnerID             string               `json:"ownerId"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Address             string               `json:"address"`
	PricePerHour        float64              `json:"pricePerHour"`
	Area                float64              `json:"area"`
	Amenities           []string             `json:"amenities"`
	Rules               []string             `json:"rules"`
	Coordinates         *CoordinatesResponse `json:"coordinates,omitempty"`
	Features            *FeaturesResponse    `json:"features,omitempty"`
	MinimumBookingHours int                  `json:"minimumBookingHours"`
	Status              string               `json:"status"`
	IsDemo              bool                 `json:"isDemo"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// LocationResponse is the gated view: photos-only callers get id, level
// and images, everyone else also gets details.
type LocationResponse struct {
	ID          string                   `json:"id"`
	AccessLevel string                   `json:"accessLevel"`
	Images      []string                 `json:"images"`
	CoverImage  string                   `json:"coverImage,omitempty"`
	Details     *LocationDetailsResponse `json:"details,omitempty"`
	Actions     []string                 `json:"actions,omitempty"`
}

type ImageResultResponse struct {
	Index    int    `json:"index"`
	Source   string `json:"source,omitempty"`
	URL      string `json:"url,omitempty"`
	Uploaded bool   `json:"uploaded"`
	Error    string `json:"error,omitempty"`
}

type MutationResponse struct {
	Location *LocationResponse    `json:"location"`
	Images   []ImageResultResponse `json:"images"`
}

type ListLocationsResponse struct {
	Locations []*LocationResponse `json:"locations"`
	Total     int                 `json:"total"`
}

type ShareLinkResponse struct {
	ID          string     `json:"id"`
	LocationID  string     `json:"locationId"`
	Token       string     `json:"token"`
	AccessLevel string     `json:"accessLevel"`
	Name        string     `json:"name,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	URL         string     `json:"url"`
}

type ListSharesResponse struct {
	Shares []*ShareLinkResponse `json:"shares"`
}

type MapConfigResponse struct {
	AccessToken string              `json:"accessToken"`
	StyleURL    string              `json:"styleUrl"`
	Center      CoordinatesResponse `json:"center"`
	Zoom        float64             `json:"zoom"`
}

func NewLocationResponse(v *domain.LocationView) *LocationResponse {
	if v == nil {
		return nil
	}
	resp := &LocationResponse{
		ID:          v.ID,
		AccessLevel: string(v.AccessLevel),
		Images:      v.Images,
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if len(resp.Images) > 0 {
		resp.CoverImage = resp.Images[0]
	}
	for _, a := range v.Actions {
		resp.Actions = append(resp.Actions, string(a))
	}
	if d := v.Details; d != nil {
		resp.Details = &LocationDetailsResponse{
			OwnerID:             d.OwnerID,
			Title:               d.Title,
			Description:         d.Description,
			Address:             d.Address,
			PricePerHour:        d.PricePerHour,
			Area:                d.Area,
			Amenities:           nonNil(d.Amenities),
			Rules:               nonNil(d.Rules),
			MinimumBookingHours: d.MinimumBookingHours,
			Status:              string(d.Status),
			IsDemo:              d.IsDemo,
			CreatedAt:           d.CreatedAt,
			UpdatedAt:           d.UpdatedAt,
		}
		if d.Coordinates != nil {
			resp.Details.Coordinates = &CoordinatesResponse{Lat: d.Coordinates.Lat, Lng: d.Coordinates.Lng}
		}
		if f := d.Features; f != nil {
			resp.Details.Features = &FeaturesResponse{
				Capacity:     f.Capacity,
				Parking:      f.Parking,
				NaturalLight: f.NaturalLight,
				Equipment:    nonNil(f.Equipment),
			}
		}
	}
	return resp
}

func NewListLocationsResponse(views []*domain.LocationView) *ListLocationsResponse {
	resp := &ListLocationsResponse{Locations: make([]*LocationResponse, 0, len(views))}
	for _, v := range views {
		resp.Locations = append(resp.Locations, NewLocationResponse(v))
	}
	resp.Total = len(resp.Locations)
	return resp
}

func NewMutationResponse(res *usecase.MutationResult) *MutationResponse {
	resp := &MutationResponse{
		Location: NewLocationResponse(res.View),
		Images:   make([]ImageResultResponse, 0, len(res.Images)),
	}
	for _, r := range res.Images {
		item := ImageResultResponse{Index: r.Index, Source: r.Source, URL: r.URL, Uploaded: r.Uploaded}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		resp.Images = append(resp.Images, item)
	}
	return resp
}

func NewShareLinkResponse(s *domain.ShareLink) *ShareLinkResponse {
	return &ShareLinkResponse{
		ID:          s.ID,
		LocationID:  s.LocationID,
		Token:       s.Token,
		AccessLevel: string(s.AccessLevel),
		Name:        s.Name,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
		URL:         s.URL,
	}
}

func NewListSharesResponse(links []*domain.ShareLink) *ListSharesResponse {
	resp := &ListSharesResponse{Shares: make([]*ShareLinkResponse, 0, len(links))}
	for _, l := range links {
		resp.Shares = append(resp.Shares, NewShareLinkResponse(l))
	}
	return resp
}

func NewMapConfigResponse(cfg config.MapConfig) *MapConfigResponse {
	return &MapConfigResponse{
		AccessToken: cfg.AccessToken,
		StyleURL:    cfg.StyleURL,
		Center:      CoordinatesResponse{Lat: cfg.CenterLat, Lng: cfg.CenterLng},
		Zoom:        cfg.Zoom,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
