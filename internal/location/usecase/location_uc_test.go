package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func viewIDs(views []*domain.LocationView) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func inlineImages(n int) []domain.ImageInput {
	out := make([]domain.ImageInput, n)
	for i := range out {
		out[i] = domain.ImageInput{FileName: fmt.Sprintf("img-%d.jpg", i), Data: []byte{byte(i + 1)}}
	}
	return out
}

func TestLocationUsecase_ListFiltersByPrice(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	for _, price := range []float64{20, 80, 150} {
		env.repo.put(&domain.Location{OwnerID: "owner", Title: fmt.Sprintf("p%v", price), PricePerHour: price, Status: domain.StatusPublished})
	}

	views, err := env.locations.List(ctx, "", ListInput{Filter: domain.Filter{MinPrice: 50, MaxPrice: 100}})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 80.0, views[0].Details.PricePerHour)
	assert.Equal(t, domain.AccessFullInfo, views[0].AccessLevel)

	_, err = env.locations.List(ctx, "", ListInput{Filter: domain.Filter{MinPrice: 100, MaxPrice: 50}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLocationUsecase_DraftVisibility(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	pub := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Public", Status: domain.StatusPublished})
	draft := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Draft", Status: domain.StatusDraft})
	env.repo.put(&domain.Location{OwnerID: "other", Title: "Other draft", Status: domain.StatusDraft})

	t.Run("Anonymous sees only published", func(t *testing.T) {
		views, err := env.locations.List(ctx, "", ListInput{IncludeOwnDrafts: true})
		require.NoError(t, err)
		assert.Equal(t, []string{pub.ID}, viewIDs(views))
	})

	t.Run("Stranger sees only published", func(t *testing.T) {
		views, err := env.locations.List(ctx, "stranger", ListInput{IncludeOwnDrafts: true})
		require.NoError(t, err)
		assert.Equal(t, []string{pub.ID}, viewIDs(views))
	})

	t.Run("Owner sees own drafts when asked", func(t *testing.T) {
		views, err := env.locations.List(ctx, "owner", ListInput{IncludeOwnDrafts: true})
		require.NoError(t, err)
		assert.Equal(t, []string{draft.ID, pub.ID}, viewIDs(views))
		for _, v := range views {
			assert.Equal(t, domain.AccessAdmin, v.AccessLevel)
		}

		views, err = env.locations.List(ctx, "owner", ListInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{pub.ID}, viewIDs(views))
	})

	t.Run("Draft read by stranger is not found", func(t *testing.T) {
		_, err := env.locations.Get(ctx, draft.ID, "stranger", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestLocationUsecase_PhotosOnlyShareHidesDetails(t *testing.T) {
	env := newTestEnv(2)
	ctx := context.Background()

	res, err := env.locations.Create(ctx, "owner", CreateLocationInput{
		Title:        "Hidden loft",
		Address:      "1 Secret St",
		PricePerHour: 40,
		Images:       inlineImages(2),
		Coordinates:  &domain.Coordinates{Lat: 55.7, Lng: 37.6},
	})
	require.NoError(t, err)
	id := res.View.ID
	assert.Equal(t, domain.StatusDraft, res.View.Details.Status)

	photos, err := env.shareUC.CreateShare(ctx, "owner", CreateShareInput{LocationID: id, AccessLevel: domain.AccessPhotosOnly})
	require.NoError(t, err)
	full, err := env.shareUC.CreateShare(ctx, "owner", CreateShareInput{LocationID: id, AccessLevel: domain.AccessFullInfo})
	require.NoError(t, err)

	v, err := env.locations.Get(ctx, id, "", photos.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessPhotosOnly, v.AccessLevel)
	assert.Equal(t, res.View.Images, v.Images)
	assert.Nil(t, v.Details)
	assert.Empty(t, v.Actions)

	v, err = env.locations.Get(ctx, id, "", full.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessFullInfo, v.AccessLevel)
	require.NotNil(t, v.Details)
	assert.Equal(t, "1 Secret St", v.Details.Address)
	assert.Empty(t, v.Actions)

	// a token for one location opens nothing else
	other := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Other", Status: domain.StatusDraft})
	_, err = env.locations.Get(ctx, other.ID, "", full.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// revoked links stop working
	require.NoError(t, env.shareUC.RevokeShare(ctx, "owner", id, photos.ID))
	_, err = env.locations.Get(ctx, id, "", photos.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocationUsecase_CacheCoherence(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Studio", PricePerHour: 30, Status: domain.StatusPublished})
	require.NoError(t, err)
	id := res.View.ID

	views, err := env.locations.List(ctx, "", ListInput{})
	require.NoError(t, err)
	assert.Contains(t, viewIDs(views), id)
	_, err = env.locations.Get(ctx, id, "", "")
	require.NoError(t, err)

	title := "Studio renamed"
	_, err = env.locations.Update(ctx, "owner", id, UpdateLocationInput{Title: &title})
	require.NoError(t, err)
	v, err := env.locations.Get(ctx, id, "", "")
	require.NoError(t, err)
	assert.Equal(t, title, v.Details.Title)

	_, err = env.locations.UpdateStatus(ctx, "owner", id, domain.StatusArchived)
	require.NoError(t, err)
	views, err = env.locations.List(ctx, "", ListInput{})
	require.NoError(t, err)
	assert.NotContains(t, viewIDs(views), id)
	_, err = env.locations.Get(ctx, id, "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.locations.UpdateStatus(ctx, "owner", id, domain.StatusPublished)
	require.NoError(t, err)
	require.NoError(t, env.locations.Delete(ctx, "owner", id))

	views, err = env.locations.List(ctx, "", ListInput{})
	require.NoError(t, err)
	assert.NotContains(t, viewIDs(views), id)
	_, err = env.locations.Get(ctx, id, "owner", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocationUsecase_CreateImages(t *testing.T) {
	ctx := context.Background()

	t.Run("Order survives concurrent uploads", func(t *testing.T) {
		env := newTestEnv(3)
		inputs := inlineImages(5)
		inputs = append(inputs, domain.ImageInput{URL: "https://cdn.example.com/keep.jpg"})

		res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Gallery", Images: inputs})
		require.NoError(t, err)
		require.Len(t, res.View.Images, 6)
		for i := 0; i < 5; i++ {
			assert.Contains(t, res.View.Images[i], fmt.Sprintf("img-%d.jpg", i))
			assert.True(t, res.Images[i].Uploaded)
		}
		assert.Equal(t, "https://cdn.example.com/keep.jpg", res.View.Images[5])

		v, err := env.locations.Get(ctx, res.View.ID, "owner", "")
		require.NoError(t, err)
		assert.Equal(t, res.View.Images, v.Images)
	})

	t.Run("Failed inline upload is dropped and reported", func(t *testing.T) {
		env := newTestEnv(2)
		env.storage.failName["img-1.jpg"] = true

		res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Partial", Images: inlineImages(3)})
		require.NoError(t, err)
		require.Len(t, res.Images, 3)
		assert.Error(t, res.Images[1].Err)
		assert.Empty(t, res.Images[1].URL)
		require.Len(t, res.View.Images, 2)
		assert.Contains(t, res.View.Images[0], "img-0.jpg")
		assert.Contains(t, res.View.Images[1], "img-2.jpg")
	})

	t.Run("Insert failure removes uploaded images", func(t *testing.T) {
		env := newTestEnv(2)
		env.repo.failOn["Create"] = errors.New("insert failed")

		_, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Doomed", Images: inlineImages(3)})
		assert.ErrorIs(t, err, domain.ErrRemote)
		assert.Len(t, env.storage.deleted, 3)
		assert.Empty(t, env.storage.objects)
	})

	t.Run("Anonymous caller uploads nothing", func(t *testing.T) {
		env := newTestEnv(1)
		_, err := env.locations.Create(ctx, "", CreateLocationInput{Title: "x", Images: inlineImages(1)})
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
		assert.Empty(t, env.storage.objects)
	})

	t.Run("Invalid input uploads nothing", func(t *testing.T) {
		env := newTestEnv(1)
		_, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "  ", Images: inlineImages(1)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = env.locations.Create(ctx, "owner", CreateLocationInput{Title: "x", Status: domain.StatusArchived})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, env.storage.objects)
	})
}

func TestLocationUsecase_UpdateImagesRemovesDropped(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Two pics", Images: inlineImages(2)})
	require.NoError(t, err)
	kept, dropped := res.View.Images[0], res.View.Images[1]

	images := []domain.ImageInput{{URL: kept}}
	upd, err := env.locations.Update(ctx, "owner", res.View.ID, UpdateLocationInput{Images: &images})
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, upd.View.Images)
	assert.Equal(t, []string{dropped}, env.storage.deleted)

	_, err = env.locations.Update(ctx, "intruder", res.View.ID, UpdateLocationInput{Images: &images})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLocationUsecase_StatusAndOwnership(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	loc := env.repo.put(&domain.Location{OwnerID: "owner", Title: "Mine", Status: domain.StatusDraft})

	_, err := env.locations.UpdateStatus(ctx, "intruder", loc.ID, domain.StatusPublished)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.locations.UpdateStatus(ctx, "owner", loc.ID, "deleted")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.locations.UpdateStatus(ctx, "", loc.ID, domain.StatusPublished)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	_, err = env.locations.UpdateStatus(ctx, "owner", "ghost", domain.StatusPublished)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, env.locations.Delete(ctx, "intruder", loc.ID), domain.ErrForbidden)

	v, err := env.locations.UpdateStatus(ctx, "owner", loc.ID, domain.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, v.Details.Status)

	mine, err := env.locations.ListMine(ctx, "owner", []domain.LocationStatus{domain.StatusArchived})
	require.NoError(t, err)
	assert.Equal(t, []string{loc.ID}, viewIDs(mine))
	mine, err = env.locations.ListMine(ctx, "owner", []domain.LocationStatus{domain.StatusDraft})
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = env.locations.ListMine(ctx, "", nil)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestLocationUsecase_DeleteRemovesSharesAndImages(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Short-lived", Images: inlineImages(2)})
	require.NoError(t, err)
	_, err = env.shareUC.CreateShare(ctx, "owner", CreateShareInput{LocationID: res.View.ID, AccessLevel: domain.AccessAdmin})
	require.NoError(t, err)

	admin, err := env.shareUC.ListShares(ctx, "owner", res.View.ID)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	v, err := env.locations.Get(ctx, res.View.ID, "", admin[0].Token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessAdmin, v.AccessLevel)
	assert.Empty(t, v.Actions, "management stays with the owner")
	assert.ErrorIs(t, env.locations.Delete(ctx, "someone", res.View.ID), domain.ErrForbidden)

	require.NoError(t, env.locations.Delete(ctx, "owner", res.View.ID))
	assert.Empty(t, env.storage.objects)
	links, _ := env.shares.ListByLocation(ctx, res.View.ID)
	assert.Empty(t, links)
	_, err = env.fallback.FindByID(ctx, res.View.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, env.locations.Delete(ctx, "owner", res.View.ID), domain.ErrNotFound)
}

func TestLocationUsecase_DemoRecords(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	v, err := env.locations.Get(ctx, "demo-loft-01", "", "")
	require.NoError(t, err)
	assert.True(t, v.Details.IsDemo)
	assert.Equal(t, domain.AccessFullInfo, v.AccessLevel)

	assert.ErrorIs(t, env.locations.Delete(ctx, "demo", "demo-loft-01"), domain.ErrDemoReadOnly)

	v, err = env.locations.Get(ctx, "demo-loft-01", "demo", "")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessAdmin, v.AccessLevel)
	assert.NotContains(t, v.Actions, domain.ActionDelete)
}

func TestLocationUsecase_FallbackOnRemoteFailure(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Mirrored", PricePerHour: 10, Status: domain.StatusPublished})
	require.NoError(t, err)
	draft, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Mirrored draft"})
	require.NoError(t, err)

	env.repo.down = true
	env.cache.InvalidateLists(ctx)
	env.cache.InvalidateLocation(ctx, res.View.ID)

	views, err := env.locations.List(ctx, "", ListInput{})
	require.NoError(t, err)
	ids := viewIDs(views)
	assert.Contains(t, ids, res.View.ID)
	assert.Contains(t, ids, "demo-garden-02")
	assert.NotContains(t, ids, draft.View.ID)

	v, err := env.locations.Get(ctx, res.View.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Mirrored", v.Details.Title)

	_, err = env.locations.Get(ctx, draft.View.ID, "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.locations.Get(ctx, res.View.ID, "", "some-token")
	assert.ErrorIs(t, err, domain.ErrRemote)

	_, err = env.locations.Get(ctx, "never-seen", "", "")
	assert.ErrorIs(t, err, domain.ErrRemote)

	mine, err := env.locations.ListMine(ctx, "owner", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{res.View.ID, draft.View.ID}, viewIDs(mine))

	_, err = env.locations.Create(ctx, "owner", CreateLocationInput{Title: "While down"})
	assert.ErrorIs(t, err, domain.ErrRemote)
}

func TestLocationUsecase_PublishesEvents(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()
	mockPub := new(MockEventPublisher)
	env.locations.publisher = mockPub

	mockPub.On("Publish", mock.Anything, domain.SubjectLocationCreated, mock.AnythingOfType("domain.LocationEvent")).Return(nil).Once()
	mockPub.On("Publish", mock.Anything, domain.SubjectLocationUpdated, mock.AnythingOfType("domain.LocationEvent")).Return(nil).Once()
	mockPub.On("Publish", mock.Anything, domain.SubjectLocationDeleted, mock.AnythingOfType("domain.LocationEvent")).Return(errors.New("nats down")).Once()

	res, err := env.locations.Create(ctx, "owner", CreateLocationInput{Title: "Evented"})
	require.NoError(t, err)
	_, err = env.locations.UpdateStatus(ctx, "owner", res.View.ID, domain.StatusPublished)
	require.NoError(t, err)
	require.NoError(t, env.locations.Delete(ctx, "owner", res.View.ID))

	mockPub.AssertExpectations(t)
}
