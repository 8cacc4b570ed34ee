package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedLocationRepo holds the first read of the chosen method after it has
// loaded its result, until release is closed.
type gatedLocationRepo struct {
	*fakeLocationRepo
	method  string
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func newGatedRepo(inner *fakeLocationRepo, method string) *gatedLocationRepo {
	return &gatedLocationRepo{
		fakeLocationRepo: inner,
		method:           method,
		loaded:           make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (g *gatedLocationRepo) hold(ctx context.Context, method string) error {
	if method != g.method {
		return nil
	}
	held := false
	g.once.Do(func() { held = true })
	if !held {
		return nil
	}
	close(g.loaded)
	<-g.release
	return ctx.Err()
}

func (g *gatedLocationRepo) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	loc, err := g.fakeLocationRepo.FindByID(ctx, id)
	if herr := g.hold(ctx, "FindByID"); herr != nil {
		return nil, herr
	}
	return loc, err
}

func (g *gatedLocationRepo) FindByFilter(ctx context.Context, f domain.Filter) ([]*domain.Location, error) {
	locs, err := g.fakeLocationRepo.FindByFilter(ctx, f)
	if herr := g.hold(ctx, "FindByFilter"); herr != nil {
		return nil, herr
	}
	return locs, err
}

// gatedUsecase reads through gated while mutations go straight to the store.
func gatedUsecase(env *testEnv, gated *gatedLocationRepo) *LocationUsecase {
	log := logger.NewNop()
	m := metrics.NewMetricsManager("test")
	reader := NewLocationReader(gated, env.cache, time.Minute, log, m)
	resolver := NewAccessResolver(reader, env.shares, log, m)
	return NewLocationUsecase(env.repo, env.shares, reader, resolver, env.fallback, NewImageBatch(env.storage, nil, 1, log, m), nil, log, m)
}

func TestLocationReader_ReadRacingUnpublish(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	loc := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Studio", Status: domain.StatusPublished})

	gated := newGatedRepo(env.repo, "FindByID")
	uc := gatedUsecase(env, gated)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Get(ctx, loc.ID, "", "")
		done <- err
	}()
	<-gated.loaded

	_, err := uc.UpdateStatus(ctx, "owner", loc.ID, domain.StatusDraft)
	require.NoError(t, err)
	close(gated.release)
	require.NoError(t, <-done, "the in-flight read still answers with what it loaded")

	_, ok, _ := env.cache.GetLocation(ctx, loc.ID)
	assert.False(t, ok, "stale read must not be cached")

	_, err = uc.Get(ctx, loc.ID, "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	cached, ok, _ := env.cache.GetLocation(ctx, loc.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusDraft, cached.Status)

	v, err := uc.Get(ctx, loc.ID, "owner", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, v.Details.Status)
}

func TestLocationReader_ListRacingDelete(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	keep := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Keep", Status: domain.StatusPublished})
	gone := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Gone", Status: domain.StatusPublished})

	gated := newGatedRepo(env.repo, "FindByFilter")
	uc := gatedUsecase(env, gated)

	done := make(chan error, 1)
	go func() {
		_, err := uc.List(ctx, "", ListInput{})
		done <- err
	}()
	<-gated.loaded

	require.NoError(t, uc.Delete(ctx, "owner", gone.ID))
	close(gated.release)
	require.NoError(t, <-done)

	views, err := uc.List(ctx, "", ListInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, viewIDs(views))
	_, err = uc.Get(ctx, gone.ID, "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocationReader_CallerCancelDoesNotFailSharedRead(t *testing.T) {
	env := newTestEnv(1)
	loc := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Shared", Status: domain.StatusPublished})

	gated := newGatedRepo(env.repo, "FindByID")
	reader := NewLocationReader(gated, nil, time.Minute, logger.NewNop(), metrics.NewMetricsManager("test"))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reader.Get(first, loc.ID)
		firstErr <- err
	}()
	<-gated.loaded

	second := make(chan error, 1)
	go func() {
		got, err := reader.Get(context.Background(), loc.ID)
		if err == nil && got.ID != loc.ID {
			err = domain.ErrNotFound
		}
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(gated.release)
	assert.NoError(t, <-second)
}
