package domain

import (
	"fmt"
	"strings"
	"time"
)

type LocationStatus string

const (
	StatusDraft     LocationStatus = "draft"
	StatusPublished LocationStatus = "published"
	StatusArchived  LocationStatus = "archived"
)

// DefaultMinimumBookingHours applies when a location does not set its own minimum.
const DefaultMinimumBookingHours = 2

func (s LocationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Coordinates struct {
	Lat float64
	Lng float64
}

func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, c.Lng)
	}
	return nil
}

// Features are optional capacity and equipment flags of a venue.
type Features struct {
	Capacity     int
	Parking      bool
	NaturalLight bool
	Equipment    []string
}

type Location struct {
	ID                  string
	OwnerID             string
	Title               string
	Description         string
	Address             string
	PricePerHour        float64
	Area                float64
	Images              []string // first entry is the cover
	Amenities           []string
	Rules               []string
	Coordinates         *Coordinates
	Features            *Features
	MinimumBookingHours int
	Status              LocationStatus
	IsDemo              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsOwnedBy reports whether userID is the non-empty owner of the location.
func (l *Location) IsOwnedBy(userID string) bool {
	return userID != "" && l.OwnerID == userID
}

// Validate checks the invariants every stored location must satisfy.
func (l *Location) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if l.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if l.PricePerHour < 0 {
		return fmt.Errorf("%w: price per hour must not be negative", ErrInvalidInput)
	}
	if l.Area < 0 {
		return fmt.Errorf("%w: area must not be negative", ErrInvalidInput)
	}
	if l.MinimumBookingHours < 0 {
		return fmt.Errorf("%w: minimum booking hours must not be negative", ErrInvalidInput)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, l.Status)
	}
	if l.Coordinates != nil {
		if err := l.Coordinates.Validate(); err != nil {
			return err
		}
	}
	if l.Features != nil && l.Features.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	return nil
}

// Clone returns a deep copy so cached values can't be mutated by callers.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	c.Images = cloneStrings(l.Images)
	c.Amenities = cloneStrings(l.Amenities)
	c.Rules = cloneStrings(l.Rules)
	if l.Coordinates != nil {
		coords := *l.Coordinates
		c.Coordinates = &coords
	}
	if l.Features != nil {
		f := *l.Features
		f.Equipment = cloneStrings(l.Features.Equipment)
		c.Features = &f
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// NormalizeLabels trims, drops empties and de-duplicates, keeping first-seen order.
func NormalizeLabels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Filter narrows a location listing. Zero bounds are unbounded.
type Filter struct {
	MinPrice float64
	MaxPrice float64
	MinArea  float64
	MaxArea  float64
	// Statuses restricts the lifecycle state; empty means any.
	Statuses []LocationStatus
	// OwnerID restricts to one owner's records.
	OwnerID string
	// VisibleTo widens a published-only query with the given user's own records.
	VisibleTo string
}

func (f Filter) Validate() error {
	if f.MinPrice < 0 || f.MaxPrice < 0 || f.MinArea < 0 || f.MaxArea < 0 {
		return fmt.Errorf("%w: range bounds must not be negative", ErrInvalidInput)
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return fmt.Errorf("%w: minPrice is greater than maxPrice", ErrInvalidInput)
	}
	if f.MaxArea > 0 && f.MinArea > f.MaxArea {
		return fmt.Errorf("%w: minArea is greater than maxArea", ErrInvalidInput)
	}
	for _, s := range f.Statuses {
		if !s.IsValid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
		}
	}
	return nil
}

func (f Filter) inRanges(l *Location) bool {
	if f.MinPrice > 0 && l.PricePerHour < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.PricePerHour > f.MaxPrice {
		return false
	}
	if f.MinArea > 0 && l.Area < f.MinArea {
		return false
	}
	if f.MaxArea > 0 && l.Area > f.MaxArea {
		return false
	}
	return true
}

// Matches applies the filter in process, with the same semantics the stores use.
func (f Filter) Matches(l *Location) bool {
	if !f.inRanges(l) {
		return false
	}
	if f.OwnerID != "" && l.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if l.Status == s {
			return true
		}
	}
	return f.VisibleTo != "" && l.OwnerID == f.VisibleTo
}

// ImageInput is one image handed to a create or edit operation: either
// raw bytes held by the caller or a reference to an existing URL.
type ImageInput struct {
	FileName string
	Data     []byte
	URL      string
}

func (in ImageInput) IsInline() bool { return len(in.Data) > 0 }

// ImageResult reports what happened to one ImageInput, index-aligned with the input.
type ImageResult struct {
	Index    int
	Source   string
	URL      string // empty when the item produced no usable reference
	Uploaded bool
	Err      error
}
