package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/testutil"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newDeps(repo *testutil.FakeMapDataRepository, activity *testutil.FakeActivityRepository) Dependencies {
	deps := Dependencies{
		Repo: repo,
		Now:  func() time.Time { return testNow },
	}
	if activity != nil {
		deps.Activity = activity
	}
	return deps
}

func TestSharedStrategy_NewestSharePerUser(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	place := testutil.Location("loc-1", "Kehoe's", "pub", "Dublin", 53.34, -6.26, "author", testNow)
	repo.Shares = []model.LocationShareRecord{
		{
			ID: "old", UserID: "friend", LocationID: testutil.Ptr("loc-1"),
			Latitude: testutil.Ptr(53.30), Longitude: testutil.Ptr(-6.20),
			CreatedAt: testNow.Add(-2 * time.Hour), ExpiresAt: testNow.Add(time.Hour), Location: &place,
		},
		{
			ID: "new", UserID: "friend", LocationID: testutil.Ptr("loc-1"),
			Latitude: testutil.Ptr(53.35), Longitude: testutil.Ptr(-6.25),
			CreatedAt: testNow.Add(-time.Hour), ExpiresAt: testNow.Add(time.Hour), Location: &place,
		},
	}

	set, err := NewSharedStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterShared})

	require.NoError(t, err)
	shares := set.Sources[model.SourceLocationShare]
	require.Len(t, shares, 1)
	assert.Equal(t, model.Coordinates{Lat: 53.35, Lng: -6.25}, shares[0].Pin.Coordinates)
	assert.Equal(t, "friend", shares[0].Pin.OwnerUserID)
}

func TestSharedStrategy_PrimaryFailureIsReported(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Errors["GetActiveShares"] = errors.New("timeout")

	set, err := NewSharedStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterShared})

	require.ErrorIs(t, err, ErrPrimarySourceFailed)
	assert.Contains(t, err.Error(), "timeout")
	assert.Nil(t, set)
}

func TestFollowingStrategy_FollowLookupFailureIsReported(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Errors["GetFollowingIDs"] = errors.New("timeout")

	_, err := NewFollowingStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterFollowing})

	require.ErrorIs(t, err, ErrPrimarySourceFailed)
	assert.Zero(t, repo.CallCount("GetLocations"), "フォロー一覧がなければ後続の取得はしない")
}

func TestFollowingStrategy_NoFollowsShortCircuits(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Locations = []model.LocationRecord{
		testutil.Location("loc-1", "Somewhere", "bar", "Dublin", 53.3, -6.2, "stranger", testNow),
	}

	set, err := NewFollowingStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{
		FilterMode:              model.FilterFollowing,
		SelectedFollowedUserIDs: []string{},
	})

	require.NoError(t, err)
	assert.Zero(t, set.Len())
	assert.Equal(t, 1, repo.CallCount("GetFollowingIDs"))
	assert.Equal(t, 1, repo.TotalCalls(), "フォロー一覧以外は問い合わせない")
}

func TestFollowingStrategy_SelectedUsersSkipFollowLookup(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Locations = []model.LocationRecord{
		testutil.Location("loc-1", "Mine", "bar", "Dublin", 53.3, -6.2, "friend", testNow),
		testutil.Location("loc-2", "Other", "bar", "Dublin", 53.4, -6.3, "stranger", testNow),
	}

	set, err := NewFollowingStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{
		FilterMode:              model.FilterFollowing,
		SelectedFollowedUserIDs: []string{"friend"},
	})

	require.NoError(t, err)
	assert.Zero(t, repo.CallCount("GetFollowingIDs"))
	locations := set.Sources[model.SourceAuthoredLocation]
	require.Len(t, locations, 1)
	assert.Equal(t, "loc-1", locations[0].Pin.ID)
	assert.True(t, locations[0].Pin.IsFollowing)
}

func TestFollowingStrategy_SubSourceFailureIsAbsorbed(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Follows = []model.FollowRecord{{FollowerID: "me", FollowingID: "friend"}}
	repo.Locations = []model.LocationRecord{
		testutil.Location("loc-1", "Mine", "bar", "Dublin", 53.3, -6.2, "friend", testNow),
	}
	repo.SavedPlaces = []model.SavedPlaceRecord{
		testutil.SavedPlace("ChIJa", "Place", "cafe", "Dublin", 53.31, -6.21, "friend", testNow),
	}
	repo.Errors["GetUserSavedLocations"] = errors.New("boom")

	set, err := NewFollowingStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterFollowing})

	require.NoError(t, err)
	assert.Len(t, set.Sources[model.SourceAuthoredLocation], 1)
	assert.Len(t, set.Sources[model.SourceSavedPlace], 1)
	assert.Empty(t, set.Sources[model.SourceSavedLocation])
}

func TestFollowingStrategy_AreaFilterUsesSubstringCity(t *testing.T) {
	filter := NewFollowingStrategy(newDeps(testutil.NewFakeMapDataRepository(), nil)).AreaFilter(&model.FetchParams{CurrentCity: "Dublin"})

	assert.True(t, filter(&model.MapPin{City: "Dublin 2"}))
	assert.False(t, filter(&model.MapPin{City: "Cork"}))
}

func TestPopularStrategy_AreaFilterUsesExactCity(t *testing.T) {
	// popularモードだけ完全一致になっている挙動をそのまま保つ
	filter := NewPopularStrategy(newDeps(testutil.NewFakeMapDataRepository(), nil)).AreaFilter(&model.FetchParams{CurrentCity: "Dublin"})

	assert.True(t, filter(&model.MapPin{City: "Dublin"}))
	assert.False(t, filter(&model.MapPin{City: "Dublin 2"}))
}

func TestAreaFilter_BoundsTakePrecedence(t *testing.T) {
	params := &model.FetchParams{
		CurrentCity: "Cork",
		MapBounds:   &model.MapBounds{North: 53.4, South: 53.3, East: -6.2, West: -6.3},
	}
	inside := &model.MapPin{City: "Dublin", Coordinates: model.Coordinates{Lat: 53.35, Lng: -6.25}}

	for _, s := range NewRegistry(newDeps(testutil.NewFakeMapDataRepository(), nil)) {
		assert.True(t, s.AreaFilter(params)(inside), s.Mode())
	}
}

func TestPopularStrategy_CountsSavesAndPosts(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	loc := testutil.Location("8c5a1f7e-3b2d-4c9a-9f1e-2d7b6a5c4e3f", "Hot spot", "bar", "Dublin", 53.3, -6.2, "author", testNow)
	repo.Locations = []model.LocationRecord{loc}
	repo.SavedLinks = []model.UserSavedLocationRecord{
		testutil.SavedLink("u1", loc, testNow),
		testutil.SavedLink("u2", loc, testNow),
	}
	activity := testutil.NewFakeActivityRepository(
		model.PostRecord{LocationID: loc.ID, UserID: "u1", CreatedAt: testNow},
	)

	set, err := NewPopularStrategy(newDeps(repo, activity)).Collect(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterPopular})

	require.NoError(t, err)
	assert.Equal(t, 2, set.SaveCounts[loc.ID])
	assert.Equal(t, 1, set.PostCounts[loc.ID])
	assert.Equal(t, 1, activity.CallCount("CountPostsByLocationIDs"))
}

func TestSavedStrategy_FiltersByTag(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	loc := testutil.Location("loc-1", "Brunch", "cafe", "Dublin", 53.3, -6.2, "author", testNow)
	tagged := testutil.SavedLink("me", loc, testNow)
	tagged.SaveTag = testutil.Ptr("brunch")
	other := testutil.SavedLink("me", testutil.Location("loc-2", "Bar", "bar", "Dublin", 53.4, -6.3, "author", testNow), testNow)
	other.SaveTag = testutil.Ptr("drinks")
	repo.SavedLinks = []model.UserSavedLocationRecord{tagged, other}

	set, err := NewSavedStrategy(newDeps(repo, nil)).Collect(context.Background(), "me", &model.FetchParams{
		FilterMode:       model.FilterSaved,
		SelectedSaveTags: []string{"brunch"},
	})

	require.NoError(t, err)
	links := set.Sources[model.SourceSavedLocation]
	require.Len(t, links, 1)
	assert.Equal(t, "loc-1", links[0].Pin.ID)
	assert.True(t, links[0].Pin.IsSaved)
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry(newDeps(testutil.NewFakeMapDataRepository(), nil))

	for _, mode := range []model.FilterMode{model.FilterShared, model.FilterFollowing, model.FilterPopular, model.FilterSaved} {
		s, err := registry.Get(mode)
		require.NoError(t, err)
		assert.Equal(t, mode, s.Mode())
	}
	_, err := registry.Get("nearby")
	assert.Error(t, err)
}

func TestChunkStrings(t *testing.T) {
	assert.Nil(t, chunkStrings(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}}, chunkStrings([]string{"a", "b"}, 3))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunkStrings([]string{"a", "b", "c"}, 2))
}
