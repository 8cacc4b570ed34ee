package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/repository/fallback"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- testify mocks ---

type MockLocationRepository struct{ mock.Mock }

func (m *MockLocationRepository) Create(ctx context.Context, loc *domain.Location) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}
func (m *MockLocationRepository) Update(ctx context.Context, loc *domain.Location) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}
func (m *MockLocationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockLocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Location), args.Error(1)
}
func (m *MockLocationRepository) FindByFilter(ctx context.Context, filter domain.Filter) ([]*domain.Location, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Location), args.Error(1)
}

type MockShareRepository struct{ mock.Mock }

func (m *MockShareRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}
func (m *MockShareRepository) FindByToken(ctx context.Context, locationID, token string) (*domain.ShareLink, error) {
	args := m.Called(ctx, locationID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShareLink), args.Error(1)
}
func (m *MockShareRepository) FindByID(ctx context.Context, id string) (*domain.ShareLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShareLink), args.Error(1)
}
func (m *MockShareRepository) ListByLocation(ctx context.Context, locationID string) ([]*domain.ShareLink, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShareLink), args.Error(1)
}
func (m *MockShareRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockShareRepository) DeleteByLocation(ctx context.Context, locationID string) (int64, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockShareNotifier struct{ mock.Mock }

func (m *MockShareNotifier) SendShareLink(to, locationTitle, shareURL string, level domain.AccessLevel) error {
	args := m.Called(to, locationTitle, shareURL, level)
	return args.Error(0)
}

type MockTokenGenerator struct{ mock.Mock }

func (m *MockTokenGenerator) Generate() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}

type MockImageFetcher struct{ mock.Mock }

func (m *MockImageFetcher) Fetch(ctx context.Context, url string) (string, []byte, error) {
	args := m.Called(ctx, url)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

// --- in-memory fakes for scenario tests ---

var errStoreDown = errors.New("connection refused")

type fakeLocationRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Location
	down    bool
	failOn  map[string]error // method name -> error
	reads   int
	clock   time.Time
	inserts int
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{
		items:  make(map[string]*domain.Location),
		failOn: make(map[string]error),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeLocationRepo) err(method string) error {
	if r.down {
		return fmt.Errorf("%w: %v", domain.ErrRemote, errStoreDown)
	}
	return r.failOn[method]
}

func (r *fakeLocationRepo) Create(_ context.Context, loc *domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("Create"); err != nil {
		return err
	}
	r.inserts++
	loc.ID = uuid.NewString()
	// distinct, increasing timestamps keep newest-first ordering deterministic
	r.clock = r.clock.Add(time.Minute)
	loc.CreatedAt = r.clock
	loc.UpdatedAt = r.clock
	r.items[loc.ID] = loc.Clone()
	return nil
}

func (r *fakeLocationRepo) Update(_ context.Context, loc *domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("Update"); err != nil {
		return err
	}
	if _, ok := r.items[loc.ID]; !ok {
		return domain.ErrNotFound
	}
	r.items[loc.ID] = loc.Clone()
	return nil
}

func (r *fakeLocationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("Delete"); err != nil {
		return err
	}
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeLocationRepo) FindByID(_ context.Context, id string) (*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if err := r.err("FindByID"); err != nil {
		return nil, err
	}
	l, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (r *fakeLocationRepo) FindByFilter(_ context.Context, f domain.Filter) ([]*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if err := r.err("FindByFilter"); err != nil {
		return nil, err
	}
	var out []*domain.Location
	for _, l := range r.items {
		if f.Matches(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeLocationRepo) put(loc *domain.Location) *domain.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	r.clock = r.clock.Add(time.Minute)
	loc.CreatedAt = r.clock
	if loc.MinimumBookingHours == 0 {
		loc.MinimumBookingHours = domain.DefaultMinimumBookingHours
	}
	r.items[loc.ID] = loc.Clone()
	return loc
}

type fakeShareRepo struct {
	mu    sync.Mutex
	links map[string]*domain.ShareLink
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{links: make(map[string]*domain.ShareLink)}
}

func (r *fakeShareRepo) Create(_ context.Context, link *domain.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *link
	r.links[link.ID] = &c
	return nil
}

func (r *fakeShareRepo) FindByToken(_ context.Context, locationID, token string) (*domain.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.LocationID == locationID && l.Token == token {
			c := *l
			return &c, nil
		}
	}
	return nil, domain.ErrShareNotFound
}

func (r *fakeShareRepo) FindByID(_ context.Context, id string) (*domain.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return nil, domain.ErrShareNotFound
	}
	c := *l
	return &c, nil
}

func (r *fakeShareRepo) ListByLocation(_ context.Context, locationID string) ([]*domain.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ShareLink
	for _, l := range r.links {
		if l.LocationID == locationID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeShareRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[id]; !ok {
		return domain.ErrShareNotFound
	}
	delete(r.links, id)
	return nil
}

func (r *fakeShareRepo) DeleteByLocation(_ context.Context, locationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.links {
		if l.LocationID == locationID {
			delete(r.links, id)
			n++
		}
	}
	return n, nil
}

const fakeStorageBase = "https://s3.test/location-images/"

type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	failName map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), failName: make(map[string]bool)}
}

func (s *fakeStorage) Upload(_ context.Context, folder, fileName string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failName[fileName] {
		return "", errors.New("upload rejected")
	}
	url := fakeStorageBase + folder + "/" + fileName
	s.objects[url] = data
	return url, nil
}

func (s *fakeStorage) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	delete(s.objects, url)
	return nil
}

func (s *fakeStorage) Owns(url string) bool { return strings.HasPrefix(url, fakeStorageBase) }

// --- wiring ---

type testEnv struct {
	repo      *fakeLocationRepo
	shares    *fakeShareRepo
	storage   *fakeStorage
	cache     *cache.MemoryQueryCache
	fallback  *fallback.Store
	locations *LocationUsecase
	shareUC   *ShareUsecase
	resolver  *AccessResolver
	metrics   *metrics.MetricsManager
}

type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (s *seqTokens) Generate() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("token-%03d", s.n), true
}

func newTestEnv(concurrency int) *testEnv {
	log := logger.NewNop()
	m := metrics.NewMetricsManager("test")
	repo := newFakeLocationRepo()
	shares := newFakeShareRepo()
	storage := newFakeStorage()
	qc := cache.NewMemoryQueryCache()
	fb, err := fallback.NewStore("", 0, log)
	if err != nil {
		panic(err)
	}

	reader := NewLocationReader(repo, qc, time.Minute, log, m)
	resolver := NewAccessResolver(reader, shares, log, m)
	batch := NewImageBatch(storage, nil, concurrency, log, m)

	return &testEnv{
		repo:      repo,
		shares:    shares,
		storage:   storage,
		cache:     qc,
		fallback:  fb,
		resolver:  resolver,
		metrics:   m,
		locations: NewLocationUsecase(repo, shares, reader, resolver, fb, batch, nil, log, m),
		shareUC: NewShareUsecase(repo, shares, &seqTokens{}, nil, nil,
			ShareSettings{BaseURL: "https://app.test"}, log, m),
	}
}
