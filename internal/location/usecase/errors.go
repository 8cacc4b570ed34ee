package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
)

// remoteErr passes domain errors through and classifies anything else as a
// failure of the remote store.
func remoteErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrShareNotFound,
		domain.ErrForbidden,
		domain.ErrAuthRequired,
		domain.ErrInvalidInput,
		domain.ErrDemoReadOnly,
		domain.ErrRemote,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrRemote, err)
}

// loadOwned re-reads a location from the store, bypassing the cache, and
// checks that requester owns it.
func loadOwned(ctx context.Context, repo domain.LocationRepository, requester, id string) (*domain.Location, error) {
	if requester == "" {
		return nil, domain.ErrAuthRequired
	}
	if id == "" {
		return nil, fmt.Errorf("%w: location id is required", domain.ErrInvalidInput)
	}
	loc, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, remoteErr(err)
	}
	if loc == nil {
		return nil, domain.ErrNotFound
	}
	if !loc.IsOwnedBy(requester) {
		return nil, domain.ErrForbidden
	}
	return loc, nil
}
