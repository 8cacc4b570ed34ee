package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenGenerator returns a token and whether it came from a secure source.
type TokenGenerator interface {
	Generate() (string, bool)
}

type ShareSettings struct {
	BaseURL       string
	RequireExpiry bool
	DefaultTTL    time.Duration
}

type CreateShareInput struct {
	LocationID     string
	AccessLevel    domain.AccessLevel
	Name           string
	ExpiresAt      *time.Time
	RecipientEmail string
}

// ShareUsecase issues, lists and revokes share links. Every operation is
// restricted to the owner of the target location.
type ShareUsecase struct {
	locations domain.LocationRepository
	shares    domain.ShareRepository
	tokens    TokenGenerator
	publisher domain.EventPublisher
	notifier  domain.ShareNotifier
	settings  ShareSettings
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.MetricsManager
}

// NewShareUsecase wires the issuer. publisher and notifier may be nil.
func NewShareUsecase(
	locations domain.LocationRepository,
	shares domain.ShareRepository,
	tokens TokenGenerator,
	publisher domain.EventPublisher,
	notifier domain.ShareNotifier,
	settings ShareSettings,
	log *logger.Logger,
	m *metrics.MetricsManager,
) *ShareUsecase {
	return &ShareUsecase{
		locations: locations,
		shares:    shares,
		tokens:    tokens,
		publisher: publisher,
		notifier:  notifier,
		settings:  settings,
		now:       time.Now,
		logger:    log.Named("ShareUsecase"),
		metrics:   m,
	}
}

func (uc *ShareUsecase) CreateShare(ctx context.Context, requester string, in CreateShareInput) (*domain.ShareLink, error) {
	ctx, span := tracer.Start(ctx, "ShareUsecase.CreateShare")
	defer span.End()

	if requester == "" {
		return nil, domain.ErrAuthRequired
	}
	loc, err := loadOwned(ctx, uc.locations, requester, in.LocationID)
	if err != nil {
		uc.logger.Warn("CreateShare: ownership check failed",
			zap.String("location_id", in.LocationID), zap.String("user_id", requester), zap.Error(err))
		return nil, err
	}

	if !in.AccessLevel.IsValid() {
		return nil, fmt.Errorf("%w: unknown access level %q", domain.ErrInvalidInput, in.AccessLevel)
	}

	now := uc.now().UTC()
	expiresAt := in.ExpiresAt
	if expiresAt != nil {
		if !expiresAt.After(now) {
			return nil, fmt.Errorf("%w: expiry must be in the future", domain.ErrInvalidInput)
		}
		exp := expiresAt.UTC()
		expiresAt = &exp
	} else if uc.settings.RequireExpiry {
		if uc.settings.DefaultTTL <= 0 {
			return nil, fmt.Errorf("%w: share links must expire", domain.ErrInvalidInput)
		}
		exp := now.Add(uc.settings.DefaultTTL)
		expiresAt = &exp
	}

	tok, secure := uc.tokens.Generate()
	if !secure {
		uc.logger.Warn("CreateShare: secure random source unavailable, issued fallback token",
			zap.String("location_id", loc.ID))
	}

	link := &domain.ShareLink{
		ID:          uuid.NewString(),
		LocationID:  loc.ID,
		Token:       tok,
		AccessLevel: in.AccessLevel,
		Name:        in.Name,
		CreatedBy:   requester,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := uc.shares.Create(ctx, link); err != nil {
		span.RecordError(err)
		uc.logger.Error("CreateShare: failed to persist share link", zap.String("location_id", loc.ID), zap.Error(err))
		return nil, remoteErr(err)
	}
	link.URL = domain.ShareURL(uc.settings.BaseURL, loc.ID, link.Token, link.AccessLevel)

	uc.metrics.SharesIssuedTotal.WithLabelValues(string(link.AccessLevel)).Inc()
	uc.publish(ctx, domain.SubjectShareCreated, link, requester)

	if in.RecipientEmail != "" && uc.notifier != nil {
		if err := uc.notifier.SendShareLink(in.RecipientEmail, loc.Title, link.URL, link.AccessLevel); err != nil {
			uc.logger.Warn("CreateShare: failed to e-mail share link", zap.String("share_id", link.ID), zap.Error(err))
		}
	}

	uc.logger.Info("share link issued",
		zap.String("share_id", link.ID),
		zap.String("location_id", loc.ID),
		zap.String("access_level", string(link.AccessLevel)),
		zap.Bool("expires", link.ExpiresAt != nil))
	return link, nil
}

// ListShares returns the location's links, newest first.
func (uc *ShareUsecase) ListShares(ctx context.Context, requester, locationID string) ([]*domain.ShareLink, error) {
	ctx, span := tracer.Start(ctx, "ShareUsecase.ListShares")
	defer span.End()

	loc, err := loadOwned(ctx, uc.locations, requester, locationID)
	if err != nil {
		return nil, err
	}
	links, err := uc.shares.ListByLocation(ctx, loc.ID)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("ListShares: failed to list share links", zap.String("location_id", loc.ID), zap.Error(err))
		return nil, remoteErr(err)
	}
	for _, l := range links {
		l.URL = domain.ShareURL(uc.settings.BaseURL, loc.ID, l.Token, l.AccessLevel)
	}
	return links, nil
}

// RevokeShare deletes one link. Revoking a link that is already gone, or that
// belongs to another location, is a no-op. An id that is not a share id at
// all is reported as ErrShareNotFound.
func (uc *ShareUsecase) RevokeShare(ctx context.Context, requester, locationID, shareID string) error {
	ctx, span := tracer.Start(ctx, "ShareUsecase.RevokeShare")
	defer span.End()

	loc, err := loadOwned(ctx, uc.locations, requester, locationID)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(shareID); err != nil {
		return fmt.Errorf("%w: %q is not a share id", domain.ErrShareNotFound, shareID)
	}

	link, err := uc.shares.FindByID(ctx, shareID)
	if errors.Is(err, domain.ErrShareNotFound) {
		uc.logger.Info("RevokeShare: share already absent", zap.String("share_id", shareID))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return remoteErr(err)
	}
	if link.LocationID != loc.ID {
		uc.logger.Warn("RevokeShare: share belongs to another location, ignoring",
			zap.String("share_id", shareID), zap.String("location_id", loc.ID))
		return nil
	}

	if err := uc.shares.Delete(ctx, shareID); err != nil && !errors.Is(err, domain.ErrShareNotFound) {
		span.RecordError(err)
		uc.logger.Error("RevokeShare: failed to delete share link", zap.String("share_id", shareID), zap.Error(err))
		return remoteErr(err)
	}

	uc.metrics.SharesRevokedTotal.Inc()
	uc.publish(ctx, domain.SubjectShareRevoked, link, requester)
	uc.logger.Info("share link revoked", zap.String("share_id", shareID), zap.String("location_id", loc.ID))
	return nil
}

func (uc *ShareUsecase) publish(ctx context.Context, subject string, link *domain.ShareLink, actor string) {
	if uc.publisher == nil {
		return
	}
	ev := domain.ShareEvent{
		ShareID:     link.ID,
		LocationID:  link.LocationID,
		AccessLevel: link.AccessLevel,
		ActorID:     actor,
		OccurredAt:  uc.now().UTC(),
	}
	if err := uc.publisher.Publish(ctx, subject, ev); err != nil {
		uc.logger.Warn("failed to publish share event", zap.String("subject", subject), zap.Error(err))
	}
}
