package domain

import "time"

// Action is a management operation the caller may perform on a location.
type Action string

const (
	ActionEdit          Action = "edit"
	ActionTogglePublish Action = "toggle_publish"
	ActionDelete        Action = "delete"
	ActionManageShares  Action = "manage_shares"
)

// ResolveLevel applies the access rules to an already loaded location.
// share is the link matched by the presented token, or nil. The boolean is
// false when the caller may not see the location at all.
//
// Rules, first match wins: owner, active share link, published, denied.
func ResolveLevel(loc *Location, requester string, share *ShareLink, now time.Time) (AccessLevel, bool) {
	if loc == nil {
		return "", false
	}
	if loc.IsOwnedBy(requester) {
		return AccessAdmin, true
	}
	if share != nil && share.LocationID == loc.ID && share.IsActiveAt(now) && share.AccessLevel.IsValid() {
		return share.AccessLevel, true
	}
	if loc.Status == StatusPublished {
		return AccessFullInfo, true
	}
	return "", false
}

// Access is the outcome of a successful resolution.
type Access struct {
	Level    AccessLevel
	Location *Location
}

// LocationDetails carries everything beyond the photos. It is withheld
// entirely at photos_only.
type LocationDetails struct {
	OwnerID             string
	Title               string
	Description         string
	Address             string
	PricePerHour        float64
	Area                float64
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

// LocationView is what a caller at a given access level gets to see.
type LocationView struct {
	ID          string
	AccessLevel AccessLevel
	Images      []string
	Details     *LocationDetails
	Actions     []Action
}

// NewLocationView gates the fields of loc by level.
func NewLocationView(loc *Location, level AccessLevel) *LocationView {
	v := &LocationView{
		ID:          loc.ID,
		AccessLevel: level,
		Images:      cloneStrings(loc.Images),
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if level == AccessPhotosOnly {
		return v
	}

	c := loc.Clone()
	v.Details = &LocationDetails{
		OwnerID:             c.OwnerID,
		Title:               c.Title,
		Description:         c.Description,
		Address:             c.Address,
		PricePerHour:        c.PricePerHour,
		Area:                c.Area,
		Amenities:           c.Amenities,
		Rules:               c.Rules,
		Coordinates:         c.Coordinates,
		Features:            c.Features,
		MinimumBookingHours: c.MinimumBookingHours,
		Status:              c.Status,
		IsDemo:              c.IsDemo,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if level == AccessAdmin {
		v.Actions = []Action{ActionEdit, ActionTogglePublish, ActionDelete, ActionManageShares}
		if c.IsDemo {
			v.Actions = []Action{ActionEdit, ActionTogglePublish, ActionManageShares}
		}
	}
	return v
}

// ViewFor is NewLocationView for a specific caller. Management actions are
// owner-only, so an admin share link shows the full record without them.
func ViewFor(loc *Location, level AccessLevel, requester string) *LocationView {
	v := NewLocationView(loc, level)
	if !loc.IsOwnedBy(requester) {
		v.Actions = nil
	}
	return v
}
