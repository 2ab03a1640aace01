package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Spotmap-App/internal/cache"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/service"
	"Spotmap-App/internal/domain/strategy"
	"Spotmap-App/internal/infrastructure/metrics"
	"Spotmap-App/internal/testutil"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *testutil.FakeMapDataRepository, activity *testutil.FakeActivityRepository) MapPinsService {
	return NewMapPinsService(MapPinsServiceDeps{
		Strategies: strategy.NewRegistry(strategy.Dependencies{
			Repo:     repo,
			Activity: activity,
			Now:      func() time.Time { return testNow },
		}),
		Enricher: service.NewPinEnricher(activity, repo, nil),
		Cache:    cache.NewPinCache(model.PinCacheTTL, nil),
		Metrics:  metrics.NewPinMetrics(nil),
	})
}

func popularFixture() *testutil.FakeMapDataRepository {
	repo := testutil.NewFakeMapDataRepository()
	repo.SavedPlaces = []model.SavedPlaceRecord{
		testutil.SavedPlace("ChIJbar", "The Bar", "bar", "Dublin", 53.1, -6.1, "u1", testNow),
		testutil.SavedPlace("ChIJbar", "The Bar", "bar", "Dublin", 53.1, -6.1, "u2", testNow),
		testutil.SavedPlace("ChIJcafe", "The Cafe", "cafe", "Dublin", 53.1, -6.1, "u3", testNow),
		testutil.SavedPlace("ChIJcafe", "The Cafe", "cafe", "Dublin", 53.1, -6.1, "u4", testNow),
		testutil.SavedPlace("ChIJcafe", "The Cafe", "cafe", "Dublin", 53.1, -6.1, "u5", testNow),
		testutil.SavedPlace("ChIJcafe", "The Cafe", "cafe", "Dublin", 53.1, -6.1, "u6", testNow),
		testutil.SavedPlace("ChIJcafe", "The Cafe", "cafe", "Dublin", 53.1, -6.1, "u7", testNow),
	}
	return repo
}

func TestGetMapPins_PopularCollisionScenario(t *testing.T) {
	svc := newTestService(popularFixture(), testutil.NewFakeActivityRepository())

	pins, err := svc.GetMapPins(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterPopular})

	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, model.CategoryBar, pins[0].Category)
	assert.Equal(t, 7.0, *pins[0].RecommendationScore)
}

func TestGetMapPins_ClaimedPlaceIDScenario(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	loc := testutil.Location("8c5a1f7e-3b2d-4c9a-9f1e-2d7b6a5c4e3f", "Rich", "restaurant", "Dublin", 53.2, -6.2, "author", testNow)
	loc.GooglePlaceID = testutil.Ptr("X")
	loc.OpeningHoursData = []byte(`{"open_now":true}`)
	repo.Locations = []model.LocationRecord{loc}
	repo.SavedPlaces = []model.SavedPlaceRecord{
		testutil.SavedPlace("X", "Poor", "restaurant", "Dublin", 53.2, -6.2, "u1", testNow),
	}
	svc := newTestService(repo, testutil.NewFakeActivityRepository())

	pins, err := svc.GetMapPins(context.Background(), "me", &model.FetchParams{FilterMode: model.FilterPopular})

	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, loc.ID, pins[0].ID)
	assert.NotEmpty(t, pins[0].OpeningHoursData)
}

func TestGetMapPins_FollowingWithNoFollows(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	svc := newTestService(repo, testutil.NewFakeActivityRepository())

	pins, err := svc.GetMapPins(context.Background(), "me", &model.FetchParams{
		FilterMode:              model.FilterFollowing,
		SelectedFollowedUserIDs: []string{},
	})

	require.NoError(t, err)
	assert.Empty(t, pins)
	assert.Equal(t, 1, repo.TotalCalls())
}

func TestGetMapPins_CacheIdempotence(t *testing.T) {
	repo := popularFixture()
	svc := newTestService(repo, testutil.NewFakeActivityRepository())
	params := &model.FetchParams{FilterMode: model.FilterPopular}

	first, err := svc.GetMapPins(context.Background(), "me", params)
	require.NoError(t, err)
	callsAfterFirst := repo.TotalCalls()

	second, err := svc.GetMapPins(context.Background(), "me", params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, repo.TotalCalls(), "2回目はI/Oが発生しない")

	cached, ok := svc.CachedMapPins("me", params)
	assert.True(t, ok)
	assert.Equal(t, first, cached)
}

func TestGetMapPins_ConcurrentCallsShareOneFetch(t *testing.T) {
	repo := popularFixture()
	gate := make(chan struct{})
	repo.BeforeCall = func(string) { <-gate }
	svc := newTestService(repo, testutil.NewFakeActivityRepository())
	params := &model.FetchParams{FilterMode: model.FilterPopular}

	var wg sync.WaitGroup
	results := make([][]model.MapPin, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.GetMapPins(context.Background(), "me", params)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	// popularモードの1回分は saved_places / locations / user_saved_locations の3クエリ
	assert.Equal(t, 3, repo.TotalCalls())
	for _, r := range results {
		assert.Len(t, r, 1)
	}
}

func TestGetMapPins_ErrorsAreNotCached(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	svc := NewMapPinsService(MapPinsServiceDeps{
		Strategies: strategy.Registry{
			model.FilterSaved: panickingStrategy{},
		},
	})
	params := &model.FetchParams{FilterMode: model.FilterSaved}

	_, err := svc.GetMapPins(context.Background(), "me", params)
	require.Error(t, err)

	_, ok := svc.CachedMapPins("me", params)
	assert.False(t, ok)
	assert.Zero(t, repo.TotalCalls())
}

func TestGetMapPins_SavedPinsAreScopedToUser(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	secret := testutil.Location("8c5a1f7e-3b2d-4c9a-9f1e-2d7b6a5c4e3f", "Alice Secret", "bar", "Dublin", 53.3, -6.2, "someone", testNow)
	repo.SavedLinks = []model.UserSavedLocationRecord{testutil.SavedLink("alice", secret, testNow)}
	svc := newTestService(repo, testutil.NewFakeActivityRepository())
	params := &model.FetchParams{FilterMode: model.FilterSaved}

	alicePins, err := svc.GetMapPins(context.Background(), "alice", params)
	require.NoError(t, err)
	require.Len(t, alicePins, 1)

	bobPins, err := svc.GetMapPins(context.Background(), "bob", params)
	require.NoError(t, err)
	assert.Empty(t, bobPins, "他のユーザーの保存結果を返さない")

	cached, ok := svc.CachedMapPins("bob", params)
	require.True(t, ok)
	assert.Empty(t, cached)
	cached, ok = svc.CachedMapPins("alice", params)
	require.True(t, ok)
	assert.Len(t, cached, 1)
}

func TestGetMapPins_PopularCacheIsSharedAcrossUsers(t *testing.T) {
	repo := popularFixture()
	svc := newTestService(repo, testutil.NewFakeActivityRepository())
	params := &model.FetchParams{FilterMode: model.FilterPopular}

	_, err := svc.GetMapPins(context.Background(), "alice", params)
	require.NoError(t, err)
	calls := repo.TotalCalls()

	pins, err := svc.GetMapPins(context.Background(), "bob", params)
	require.NoError(t, err)
	assert.Len(t, pins, 1)
	assert.Equal(t, calls, repo.TotalCalls())
}

func TestGetMapPins_PrimaryFailureIsNotCached(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Errors["GetActiveShares"] = errors.New("timeout")
	repo.Shares = []model.LocationShareRecord{{
		ID:        "share-1",
		Latitude:  testutil.Ptr(53.3),
		Longitude: testutil.Ptr(-6.2),
		ExpiresAt: testNow.Add(time.Hour),
		UserID:    "friend",
		CreatedAt: testNow,
	}}
	svc := newTestService(repo, testutil.NewFakeActivityRepository())
	params := &model.FetchParams{FilterMode: model.FilterShared}

	pins, err := svc.GetMapPins(context.Background(), "me", params)
	require.NoError(t, err)
	assert.NotNil(t, pins)
	assert.Empty(t, pins)

	_, ok := svc.CachedMapPins("me", params)
	assert.False(t, ok, "主クエリの失敗による空の結果はキャッシュしない")

	delete(repo.Errors, "GetActiveShares")
	pins, err = svc.GetMapPins(context.Background(), "me", params)
	require.NoError(t, err)
	assert.Len(t, pins, 1)
	assert.Equal(t, 2, repo.CallCount("GetActiveShares"))
}

func TestGetMapPins_InvalidParams(t *testing.T) {
	svc := newTestService(testutil.NewFakeMapDataRepository(), nil)

	_, err := svc.GetMapPins(context.Background(), "me", &model.FetchParams{FilterMode: "nearby"})
	assert.Error(t, err)

	_, err = svc.GetMapPins(context.Background(), "me", &model.FetchParams{
		FilterMode: model.FilterPopular,
		MapBounds:  &model.MapBounds{North: 1, South: 2, East: 1, West: 0},
	})
	assert.Error(t, err)
}

func TestGetMapPins_PropertiesHoldForMixedSources(t *testing.T) {
	repo := testutil.NewFakeMapDataRepository()
	repo.Follows = []model.FollowRecord{{FollowerID: "me", FollowingID: "f1"}, {FollowerID: "me", FollowingID: "f2"}}
	a := testutil.Location("8c5a1f7e-3b2d-4c9a-9f1e-2d7b6a5c4e3f", "A", "bar", "Dublin", 53.30, -6.20, "f1", testNow)
	a.GooglePlaceID = testutil.Ptr("ChIJa")
	b := testutil.Location("1b7e6a52-94a0-4d55-8f7a-0c3e2b9d8a11", "B", "cafe", "Dublin 2", 53.31, -6.21, "f2", testNow)
	repo.Locations = []model.LocationRecord{a, b}
	repo.SavedLinks = []model.UserSavedLocationRecord{testutil.SavedLink("f2", a, testNow)}
	repo.SavedPlaces = []model.SavedPlaceRecord{
		testutil.SavedPlace("ChIJa", "A again", "bar", "Dublin", 53.35, -6.25, "f1", testNow),
		testutil.SavedPlace("ChIJc", "C", "cafe", "Dublin", 53.31, -6.21, "f1", testNow),
		testutil.SavedPlace("ChIJd", "D", "pub", "Cork", 51.9, -8.4, "f1", testNow),
		testutil.SavedPlace("ChIJe", "E", "restaurant", "Dublin", 0, 0, "f2", testNow),
	}
	svc := newTestService(repo, testutil.NewFakeActivityRepository())

	pins, err := svc.GetMapPins(context.Background(), "me", &model.FetchParams{
		FilterMode:         model.FilterFollowing,
		CurrentCity:        "Dublin",
		SelectedCategories: []string{"bar", "cafe"},
	})

	require.NoError(t, err)
	ids := make([]string, 0, len(pins))
	for _, p := range pins {
		ids = append(ids, p.ID)
		assert.True(t, p.IsFollowing)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

type panickingStrategy struct{}

func (panickingStrategy) Mode() model.FilterMode { return model.FilterSaved }

func (panickingStrategy) Collect(context.Context, string, *model.FetchParams) (*model.CandidateSet, error) {
	panic("unexpected nil")
}

func (panickingStrategy) AreaFilter(*model.FetchParams) model.PinFilter { return model.AcceptAll }
