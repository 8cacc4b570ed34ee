package domain

import (
	"context"
	"time"
)

// LocationRepository is the remote store of locations. Implementations
// return ErrNotFound for missing records and wrap transport failures in ErrRemote.
type LocationRepository interface {
	Create(ctx context.Context, loc *Location) error
	Update(ctx context.Context, loc *Location) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Location, error)
	// FindByFilter returns matches newest first.
	FindByFilter(ctx context.Context, filter Filter) ([]*Location, error)
}

// ShareRepository is the remote store of share links.
type ShareRepository interface {
	Create(ctx context.Context, link *ShareLink) error
	// FindByToken returns ErrShareNotFound when no link for the location carries token.
	FindByToken(ctx context.Context, locationID, token string) (*ShareLink, error)
	FindByID(ctx context.Context, id string) (*ShareLink, error)
	// ListByLocation returns links newest first.
	ListByLocation(ctx context.Context, locationID string) ([]*ShareLink, error)
	Delete(ctx context.Context, id string) error
	DeleteByLocation(ctx context.Context, locationID string) (int64, error)
}

// QueryCache is the advisory read cache in front of the location store.
// A miss is reported as (nil, false, nil).
type QueryCache interface {
	GetLocation(ctx context.Context, id string) (*Location, bool, error)
	SetLocation(ctx context.Context, loc *Location, ttl time.Duration) error
	GetList(ctx context.Context, key string) ([]*Location, bool, error)
	SetList(ctx context.Context, key string, locs []*Location, ttl time.Duration) error
	InvalidateLocation(ctx context.Context, id string) error
	InvalidateLists(ctx context.Context) error
}

// FallbackStore is the local last-resort dataset used when the remote store
// is unreachable.
type FallbackStore interface {
	All(ctx context.Context) ([]*Location, error)
	FindByID(ctx context.Context, id string) (*Location, error)
	Upsert(ctx context.Context, loc *Location) error
	Remove(ctx context.Context, id string) error
}

// ImageStorage is the object store holding location images.
type ImageStorage interface {
	Upload(ctx context.Context, folder, fileName string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
	// Owns reports whether url points into this storage.
	Owns(url string) bool
}

// ImageFetcher downloads a remote image so it can be re-hosted.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (fileName string, data []byte, err error)
}

// EventPublisher emits mutation events. Failures never fail the mutation.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ShareNotifier delivers a freshly issued share link to a recipient.
type ShareNotifier interface {
	SendShareLink(to, locationTitle, shareURL string, level AccessLevel) error
}

const (
	SubjectLocationCreated = "location.created"
	SubjectLocationUpdated = "location.updated"
	SubjectLocationDeleted = "location.deleted"
	SubjectShareCreated    = "share.created"
	SubjectShareRevoked    = "share.revoked"
)

type LocationEvent struct {
	LocationID string         `json:"location_id"`
	OwnerID    string         `json:"owner_id"`
	Status     LocationStatus `json:"status,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type ShareEvent struct {
	ShareID     string      `json:"share_id"`
	LocationID  string      `json:"location_id"`
	AccessLevel AccessLevel `json:"access_level,omitempty"`
	ActorID     string      `json:"actor_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
