package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("location-service/usecase")

// AccessResolver computes the effective access of a caller on one location.
// It never writes and its results are never cached.
type AccessResolver struct {
	reader  *LocationReader
	shares  domain.ShareRepository
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.MetricsManager
}

func NewAccessResolver(reader *LocationReader, shares domain.ShareRepository, log *logger.Logger, m *metrics.MetricsManager) *AccessResolver {
	return &AccessResolver{
		reader:  reader,
		shares:  shares,
		now:     time.Now,
		logger:  log.Named("AccessResolver"),
		metrics: m,
	}
}

// Resolve returns the caller's access, or ErrNotFound when the location is
// missing or hidden from the caller. The two cases are deliberately
// indistinguishable. Store failures come back wrapped in ErrRemote.
func (r *AccessResolver) Resolve(ctx context.Context, locationID, requester, shareToken string) (*domain.Access, error) {
	ctx, span := tracer.Start(ctx, "AccessResolver.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("location.id", locationID),
		attribute.Bool("request.authenticated", requester != ""),
		attribute.Bool("request.has_token", shareToken != ""),
	)

	if locationID == "" {
		return nil, fmt.Errorf("%w: location id is required", domain.ErrInvalidInput)
	}

	loc, err := r.reader.Get(ctx, locationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.metrics.AccessResolvedTotal.WithLabelValues("denied").Inc()
		} else {
			span.RecordError(err)
			r.logger.Error("location lookup failed", zap.String("location_id", locationID), zap.Error(err))
		}
		return nil, err
	}

	var share *domain.ShareLink
	if shareToken != "" && !loc.IsOwnedBy(requester) {
		share, err = r.shares.FindByToken(ctx, locationID, shareToken)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrShareNotFound):
			share = nil
		default:
			span.RecordError(err)
			r.logger.Error("share lookup failed", zap.String("location_id", locationID), zap.Error(err))
			if errors.Is(err, domain.ErrRemote) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: share lookup: %v", domain.ErrRemote, err)
		}
	}

	level, ok := domain.ResolveLevel(loc, requester, share, r.now())
	if !ok {
		r.metrics.AccessResolvedTotal.WithLabelValues("denied").Inc()
		r.logger.Debug("access denied", zap.String("location_id", locationID), zap.Bool("token_presented", shareToken != ""))
		return nil, domain.ErrNotFound
	}

	r.metrics.AccessResolvedTotal.WithLabelValues(string(level)).Inc()
	span.SetAttributes(attribute.String("access.level", string(level)))
	return &domain.Access{Level: level, Location: loc}, nil
}
