package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/dto"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/usecase"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.uber.org/zap"
)

// LocationService is the query/mutation layer behind the location routes.
type LocationService interface {
	List(ctx context.Context, requester string, in usecase.ListInput) ([]*domain.LocationView, error)
	ListMine(ctx context.Context, requester string, statuses []domain.LocationStatus) ([]*domain.LocationView, error)
	Get(ctx context.Context, id, requester, shareToken string) (*domain.LocationView, error)
	Create(ctx context.Context, requester string, in usecase.CreateLocationInput) (*usecase.MutationResult, error)
	Update(ctx context.Context, requester, id string, in usecase.UpdateLocationInput) (*usecase.MutationResult, error)
	UpdateStatus(ctx context.Context, requester, id string, status domain.LocationStatus) (*domain.LocationView, error)
	Delete(ctx context.Context, requester, id string) error
}

// ShareService issues and revokes share links.
type ShareService interface {
	CreateShare(ctx context.Context, requester string, in usecase.CreateShareInput) (*domain.ShareLink, error)
	ListShares(ctx context.Context, requester, locationID string) ([]*domain.ShareLink, error)
	RevokeShare(ctx context.Context, requester, locationID, shareID string) error
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrDemoReadOnly):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrShareNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRemote):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal detail from 5xx responses.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusBadGateway:
		return domain.ErrRemote.Error()
	case http.StatusGatewayTimeout:
		return "request timed out"
	case http.StatusNotFound:
		// unknown and hidden locations must look the same
		if errors.Is(err, domain.ErrShareNotFound) {
			return domain.ErrShareNotFound.Error()
		}
		return domain.ErrNotFound.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, body interface{}) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, log, status, dto.ErrorResponse{Error: publicMessage(status, err)})
}

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrInvalidInput, tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err)
	}
	return dto.Validate(dst)
}
