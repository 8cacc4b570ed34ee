package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type AccessLevel string

const (
	AccessPhotosOnly AccessLevel = "photos_only"
	AccessFullInfo   AccessLevel = "full_info"
	AccessAdmin      AccessLevel = "admin"
)

func (a AccessLevel) IsValid() bool {
	switch a {
	case AccessPhotosOnly, AccessFullInfo, AccessAdmin:
		return true
	}
	return false
}

// ShareLink is a durable bearer capability on one location.
type ShareLink struct {
	ID          string
	LocationID  string
	Token       string
	AccessLevel AccessLevel
	Name        string
	CreatedBy   string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	// URL is composed on the way out and never persisted.
	URL string
}

// IsActiveAt reports whether the link can still be used at t.
func (s *ShareLink) IsActiveAt(t time.Time) bool {
	return s.ExpiresAt == nil || t.Before(*s.ExpiresAt)
}

// ShareURL builds {baseURL}/locations/{id}?token={token}&access={level}.
func ShareURL(baseURL, locationID, token string, level AccessLevel) string {
	return fmt.Sprintf("%s/locations/%s?token=%s&access=%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(locationID),
		url.QueryEscape(token),
		url.QueryEscape(string(level)))
}
