package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ListInput struct {
	Filter           domain.Filter
	IncludeOwnDrafts bool
}

type CreateLocationInput struct {
	Title               string
	Description         string
	Address             string
	PricePerHour        float64
	Area                float64
	Images              []domain.ImageInput
	Amenities           []string
	Rules               []string
	Coordinates         *domain.Coordinates
	Features            *domain.Features
	MinimumBookingHours int
	Status              domain.LocationStatus
}

// UpdateLocationInput is a patch: nil fields are left unchanged.
type UpdateLocationInput struct {
	Title               *string
	Description         *string
	Address             *string
	PricePerHour        *float64
	Area                *float64
	Images              *[]domain.ImageInput
	Amenities           *[]string
	Rules               *[]string
	Coordinates         *domain.Coordinates
	ClearCoordinates    bool
	Features            *domain.Features
	MinimumBookingHours *int
}

// MutationResult is returned by create and edit: the owner's view plus
// the outcome of every submitted image.
type MutationResult struct {
	View   *domain.LocationView
	Images []domain.ImageResult
}

type LocationUsecase struct {
	repo      domain.LocationRepository
	shares    domain.ShareRepository
	reader    *LocationReader
	resolver  *AccessResolver
	fallback  domain.FallbackStore
	images    *ImageBatch
	publisher domain.EventPublisher
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.MetricsManager
}

// NewLocationUsecase wires the query/mutation layer. fallback and publisher may be nil.
func NewLocationUsecase(
	repo domain.LocationRepository,
	shares domain.ShareRepository,
	reader *LocationReader,
	resolver *AccessResolver,
	fallback domain.FallbackStore,
	images *ImageBatch,
	publisher domain.EventPublisher,
	log *logger.Logger,
	m *metrics.MetricsManager,
) *LocationUsecase {
	return &LocationUsecase{
		repo:      repo,
		shares:    shares,
		reader:    reader,
		resolver:  resolver,
		fallback:  fallback,
		images:    images,
		publisher: publisher,
		now:       time.Now,
		logger:    log.Named("LocationUsecase"),
		metrics:   m,
	}
}

// List returns published locations matching the numeric ranges. With
// IncludeOwnDrafts an authenticated caller also sees their own records in
// any state.
func (uc *LocationUsecase) List(ctx context.Context, requester string, in ListInput) ([]*domain.LocationView, error) {
	ctx, span := tracer.Start(ctx, "LocationUsecase.List")
	defer span.End()

	f := in.Filter
	f.Statuses = []domain.LocationStatus{domain.StatusPublished}
	f.OwnerID = ""
	f.VisibleTo = ""
	if in.IncludeOwnDrafts && requester != "" {
		f.VisibleTo = requester
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	locs, err := uc.reader.List(ctx, listKey(f), f)
	if err != nil {
		if !errors.Is(err, domain.ErrRemote) {
			return nil, err
		}
		span.RecordError(err)
		uc.logger.Warn("List: remote store unavailable, serving fallback dataset", zap.Error(err))
		locs, err = uc.fallbackMatching(ctx, f)
		if err != nil {
			return nil, err
		}
	}

	now := uc.now()
	views := make([]*domain.LocationView, 0, len(locs))
	for _, loc := range locs {
		// the store already filtered; this keeps the visibility rule local
		if !f.Matches(loc) {
			continue
		}
		level, ok := domain.ResolveLevel(loc, requester, nil, now)
		if !ok {
			continue
		}
		views = append(views, domain.ViewFor(loc, level, requester))
	}
	return views, nil
}

// ListMine returns every location the caller owns, newest first.
func (uc *LocationUsecase) ListMine(ctx context.Context, requester string, statuses []domain.LocationStatus) ([]*domain.LocationView, error) {
	ctx, span := tracer.Start(ctx, "LocationUsecase.ListMine")
	defer span.End()

	if requester == "" {
		return nil, domain.ErrAuthRequired
	}
	f := domain.Filter{OwnerID: requester, Statuses: statuses}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	locs, err := uc.repo.FindByFilter(ctx, f)
	if err != nil {
		err = remoteErr(err)
		if !errors.Is(err, domain.ErrRemote) {
			return nil, err
		}
		uc.logger.Warn("ListMine: remote store unavailable, serving fallback dataset", zap.Error(err))
		if locs, err = uc.fallbackMatching(ctx, f); err != nil {
			return nil, err
		}
	}

	views := make([]*domain.LocationView, 0, len(locs))
	for _, loc := range locs {
		views = append(views, domain.NewLocationView(loc, domain.AccessAdmin))
	}
	return views, nil
}

// Get resolves the caller's access and returns the gated view. Without a
// share token the local fallback dataset is consulted: for demo records when
// the store has nothing, for any record when the store is unreachable.
func (uc *LocationUsecase) Get(ctx context.Context, id, requester, shareToken string) (*domain.LocationView, error) {
	ctx, span := tracer.Start(ctx, "LocationUsecase.Get")
	defer span.End()

	access, err := uc.resolver.Resolve(ctx, id, requester, shareToken)
	if err == nil {
		return domain.ViewFor(access.Location, access.Level, requester), nil
	}
	if shareToken != "" || uc.fallback == nil {
		return nil, err
	}
	if !errors.Is(err, domain.ErrRemote) && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	remoteFailed := errors.Is(err, domain.ErrRemote)
	loc, ferr := uc.fallback.FindByID(ctx, id)
	if ferr != nil {
		if remoteFailed {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	// while the store is reachable its answer wins over mirrored copies
	if !remoteFailed && !loc.IsDemo {
		return nil, domain.ErrNotFound
	}
	level, ok := domain.ResolveLevel(loc, requester, nil, uc.now())
	if !ok {
		return nil, domain.ErrNotFound
	}
	uc.metrics.FallbackReadsTotal.Inc()
	uc.logger.Info("Get: served from fallback dataset", zap.String("location_id", id), zap.Bool("remote_failed", remoteFailed))
	return domain.ViewFor(loc, level, requester), nil
}

func (uc *LocationUsecase) Create(ctx context.Context, requester string, in CreateLocationInput) (*MutationResult, error) {
	ctx, span := tracer.Start(ctx, "LocationUsecase.Create")
	defer span.End()

	if requester == "" {
		return nil, domain.ErrAuthRequired
	}
	status := in.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if status != domain.StatusDraft && status != domain.StatusPublished {
		return nil, fmt.Errorf("%w: a new location must be draft or published", domain.ErrInvalidInput)
	}

	now := uc.now().UTC()
	loc := &domain.Location{
		OwnerID:             requester,
		Title:               strings.TrimSpace(in.Title),
		Description:         in.Description,
		Address:             in.Address,
		PricePerHour:        in.PricePerHour,
		Area:                in.Area,
		Amenities:           domain.NormalizeLabels(in.Amenities),
		Rules:               domain.NormalizeLabels(in.Rules),
		Coordinates:         in.Coordinates,
		Features:            in.Features,
		MinimumBookingHours: in.MinimumBookingHours,
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if loc.MinimumBookingHours == 0 {
		loc.MinimumBookingHours = domain.DefaultMinimumBookingHours
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	uc.logger.Info("Create: creating location", zap.String("user_id", requester), zap.String("title", loc.Title), zap.Int("images", len(in.Images)))

	results := uc.images.Process(ctx, "locations/"+uuid.NewString(), in.Images)
	loc.Images = URLs(results)

	if err := uc.repo.Create(ctx, loc); err != nil {
		span.RecordError(err)
		uc.logger.Error("Create: failed to insert location, removing uploaded images", zap.String("user_id", requester), zap.Error(err))
		uc.images.Cleanup(ctx, results)
		return nil, remoteErr(err)
	}

	uc.reader.Invalidate(ctx, loc.ID)
	uc.mirror(ctx, loc)
	uc.publish(ctx, domain.SubjectLocationCreated, loc)
	uc.metrics.LocationsCreatedTotal.Inc()

	uc.logger.Info("Create: location created", zap.String("location_id", loc.ID), zap.String("status", string(loc.Status)))
	return &MutationResult{View: domain.NewLocationView(loc, domain.AccessAdmin), Images: results}, nil
}

// Update applies an owner's edit.
func (uc *LocationUsecase) Update(ctx context.Context, requester, id string, in UpdateLocationInput) (*MutationResult, error) {
	ctx, span := tracer.Start(ctx, "LocationUsecase.Update")
	defer span.End()

	loc, err := loadOwned(ctx, uc.repo, requester, id)
	if err != nil {
		uc.logger.Warn("Update: ownership check failed", zap.String("location_id", id), zap.String("user_id", requester), zap.Error(err))
		return nil, err
	}
	previousImages := loc.Images

	if in.Title != nil {
		loc.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		loc.Description = *in.Description
	}
	if in.Address != nil {
		loc.Address = *in.Address
	}
	if in.PricePerHour != nil {
		loc.PricePerHour = *in.PricePerHour
	}
	if in.Area != nil {
		loc.Area = *in.Area
	}
	if in.Amenities != nil {
		loc.Amenities = domain.NormalizeLabels(*in.Amenities)
	}
	if in.Rules != nil {
		loc.Rules = domain.NormalizeLabels(*in.Rules)
	}
	if in.ClearCoordinates {
		loc.Coordinates = nil
	} else if in.Coordinates != nil {
		loc.Coordinates = in.Coordinates
	}
	if in.Features != nil {
		loc.Features = in.Features
	}
	if in.MinimumBookingHours != nil {
		loc.MinimumBookingHours = *in.MinimumBookingHours
		if loc.MinimumBookingHours == 0 {
			loc.MinimumBookingHours = domain.DefaultMinimumBookingHours
		}
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	var results []domain.ImageResult
	if in.Images != nil {
		results = uc.images.Process(ctx, "locations/"+loc.ID, *in.Images)
		loc.Images = URLs(results)
	}
	loc.UpdatedAt = uc.now().UTC()

	if err := uc.repo.Update(ctx, loc); err != nil {
		span.RecordError(err)
		uc.logger.Error("Update: failed to update location", zap.String("location_id", id), zap.Error(err))
		uc.images.Cleanup(ctx, results)
		return nil, remoteErr(err)
	}

	if in.Images != nil {
		for _, old := range removedImages(previousImages, loc.Images) {
			uc.images.Delete(ctx, old)
		}
	}

	uc.afterUpdate(ctx, loc)
	return &MutationResult{View: domain.NewLocationView(loc, domain.AccessAdmin), Images: results}, nil
}

// UpdateStatus moves a location between draft, published and archived.
// Any transition among the three is allowed for the owner.
func (uc *LocationUsecase) UpdateStatus(ctx context.Context, requester, id string, status domain.LocationStatus) (*domain.LocationView, error) {
	ctx, span := tracer.Start(ctx, "LocationUsecase.UpdateStatus")
	defer span.End()

	if requester == "" {
		return nil, domain.ErrAuthRequired
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}

	loc, err := loadOwned(ctx, uc.repo, requester, id)
	if err != nil {
		uc.logger.Warn("UpdateStatus: ownership check failed", zap.String("location_id", id), zap.String("user_id", requester), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("UpdateStatus: changing status",
		zap.String("location_id", id), zap.String("from", string(loc.Status)), zap.String("to", string(status)))

	loc.Status = status
	loc.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, loc); err != nil {
		span.RecordError(err)
		uc.logger.Error("UpdateStatus: failed to update location", zap.String("location_id", id), zap.Error(err))
		return nil, remoteErr(err)
	}

	uc.afterUpdate(ctx, loc)
	return domain.NewLocationView(loc, domain.AccessAdmin), nil
}

// Delete removes a location, its images and its share links. Demo records
// cannot be deleted.
func (uc *LocationUsecase) Delete(ctx context.Context, requester, id string) error {
	ctx, span := tracer.Start(ctx, "LocationUsecase.Delete")
	defer span.End()

	if requester == "" {
		return domain.ErrAuthRequired
	}
	if uc.isDemo(ctx, id) {
		return domain.ErrDemoReadOnly
	}

	loc, err := loadOwned(ctx, uc.repo, requester, id)
	if err != nil {
		uc.logger.Warn("Delete: ownership check failed", zap.String("location_id", id), zap.String("user_id", requester), zap.Error(err))
		return err
	}
	if loc.IsDemo {
		return domain.ErrDemoReadOnly
	}

	for _, img := range loc.Images {
		uc.images.Delete(ctx, img)
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		uc.logger.Error("Delete: failed to delete location", zap.String("location_id", id), zap.Error(err))
		return remoteErr(err)
	}

	if n, err := uc.shares.DeleteByLocation(ctx, id); err != nil {
		uc.logger.Warn("Delete: failed to remove share links", zap.String("location_id", id), zap.Error(err))
	} else if n > 0 {
		uc.logger.Info("Delete: removed share links", zap.String("location_id", id), zap.Int64("count", n))
	}

	uc.reader.Invalidate(ctx, id)
	if uc.fallback != nil {
		if err := uc.fallback.Remove(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("Delete: failed to remove fallback copy", zap.String("location_id", id), zap.Error(err))
		}
	}
	uc.publish(ctx, domain.SubjectLocationDeleted, loc)
	uc.metrics.LocationDeletesTotal.Inc()

	uc.logger.Info("Delete: location deleted", zap.String("location_id", id))
	return nil
}

func (uc *LocationUsecase) afterUpdate(ctx context.Context, loc *domain.Location) {
	uc.reader.Invalidate(ctx, loc.ID)
	uc.mirror(ctx, loc)
	uc.publish(ctx, domain.SubjectLocationUpdated, loc)
	uc.metrics.LocationUpdatesTotal.Inc()
}

func (uc *LocationUsecase) isDemo(ctx context.Context, id string) bool {
	if uc.fallback == nil {
		return false
	}
	loc, err := uc.fallback.FindByID(ctx, id)
	return err == nil && loc.IsDemo
}

// mirror keeps the fallback dataset in step with the store.
func (uc *LocationUsecase) mirror(ctx context.Context, loc *domain.Location) {
	if uc.fallback == nil {
		return
	}
	if err := uc.fallback.Upsert(ctx, loc); err != nil {
		uc.logger.Warn("failed to mirror location into fallback dataset", zap.String("location_id", loc.ID), zap.Error(err))
	}
}

func (uc *LocationUsecase) fallbackMatching(ctx context.Context, f domain.Filter) ([]*domain.Location, error) {
	if uc.fallback == nil {
		return nil, fmt.Errorf("%w: no fallback dataset configured", domain.ErrRemote)
	}
	all, err := uc.fallback.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fallback dataset: %v", domain.ErrRemote, err)
	}
	out := make([]*domain.Location, 0, len(all))
	for _, loc := range all {
		if f.Matches(loc) {
			out = append(out, loc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	uc.metrics.FallbackReadsTotal.Inc()
	return out, nil
}

func (uc *LocationUsecase) publish(ctx context.Context, subject string, loc *domain.Location) {
	if uc.publisher == nil {
		return
	}
	ev := domain.LocationEvent{
		LocationID: loc.ID,
		OwnerID:    loc.OwnerID,
		Status:     loc.Status,
		OccurredAt: uc.now().UTC(),
	}
	if err := uc.publisher.Publish(ctx, subject, ev); err != nil {
		uc.logger.Warn("failed to publish location event", zap.String("subject", subject), zap.String("location_id", loc.ID), zap.Error(err))
	}
}

// listKey identifies a list query in the cache. It covers every filter field.
func listKey(f domain.Filter) string {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	sort.Strings(statuses)
	return fmt.Sprintf("price=%g-%g|area=%g-%g|status=%s|owner=%s|visible=%s",
		f.MinPrice, f.MaxPrice, f.MinArea, f.MaxArea, strings.Join(statuses, ","), f.OwnerID, f.VisibleTo)
}

func removedImages(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var out []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}
