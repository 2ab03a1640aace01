package service

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

const (
	locA = "8c5a1f7e-3b2d-4c9a-9f1e-2d7b6a5c4e3f"
	locB = "1b7e6a52-94a0-4d55-8f7a-0c3e2b9d8a11"
)

func TestPinEnricher_LatestActivity(t *testing.T) {
	activity := testutil.NewFakeActivityRepository(
		model.PostRecord{LocationID: locA, UserID: "u1", Caption: testutil.Ptr("old photo"), CreatedAt: testNow.Add(-2 * time.Hour)},
		model.PostRecord{LocationID: locA, UserID: "u2", Caption: testutil.Ptr("Best pint of Guinness in the whole city, no contest"), Rating: testutil.Ptr(5.0), CreatedAt: testNow.Add(-time.Hour)},
		model.PostRecord{LocationID: locB, UserID: "u1", Rating: testutil.Ptr(0.0), CreatedAt: testNow},
	)
	enricher := NewPinEnricher(activity, nil, nil)

	pins := []model.MapPin{
		pinAt(locA, "", "bar", 1, 1),
		pinAt(locB, "", "cafe", 2, 2),
		pinAt("ChIJexternal", "ChIJexternal", "bar", 3, 3),
	}
	enriched := enricher.Enrich(context.Background(), model.FilterPopular, pins)

	require.NotNil(t, enriched[0].LatestActivity)
	assert.Equal(t, model.ActivityReview, enriched[0].LatestActivity.Type)
	assert.Equal(t, "Best pint of Guinness in the whole city,...", enriched[0].LatestActivity.Snippet)

	require.NotNil(t, enriched[1].LatestActivity)
	assert.Equal(t, model.ActivityPhoto, enriched[1].LatestActivity.Type)

	assert.Nil(t, enriched[2].LatestActivity, "外部プレイスIDは対象外")
	assert.Nil(t, enriched[0].SavedByUser, "popularモードではユーザー情報を付与しない")
}

func TestPinEnricher_FollowingAttributionActions(t *testing.T) {
	activity := testutil.NewFakeActivityRepository(
		model.PostRecord{LocationID: locA, UserID: "owner-a", Rating: testutil.Ptr(4.0), CreatedAt: testNow},
		model.PostRecord{LocationID: locB, UserID: "someone-else", CreatedAt: testNow},
	)
	profiles := testutil.NewFakeMapDataRepository()
	profiles.Profiles = []model.ProfileRecord{
		{ID: "owner-a", Username: "aoife", AvatarURL: testutil.Ptr("https://example.com/a.png")},
		{ID: "owner-b", Username: "brian"},
		{ID: "owner-c", Username: "ciara"},
	}
	enricher := NewPinEnricher(activity, profiles, nil)

	a := pinAt(locA, "", "bar", 1, 1)
	a.OwnerUserID = "owner-a"
	b := pinAt(locB, "", "bar", 2, 2)
	b.OwnerUserID = "owner-b"
	c := pinAt("ChIJc", "ChIJc", "bar", 3, 3)
	c.OwnerUserID = "owner-c"

	enriched := enricher.Enrich(context.Background(), model.FilterFollowing, []model.MapPin{a, b, c})

	require.NotNil(t, enriched[0].SavedByUser)
	assert.Equal(t, model.ActionFaved, enriched[0].SavedByUser.Action)
	assert.Equal(t, "https://example.com/a.png", enriched[0].SavedByUser.AvatarURL)
	assert.Equal(t, model.ActionSaved, enriched[1].SavedByUser.Action, "他人の投稿はsaved扱い")
	assert.Equal(t, model.ActionSaved, enriched[2].SavedByUser.Action)
	assert.Nil(t, enriched[0].SharedByUser)
	assert.Equal(t, 1, profiles.CallCount("GetProfilesByIDs"))
}

func TestPinEnricher_SharedModeSetsSharedByUser(t *testing.T) {
	activity := testutil.NewFakeActivityRepository(
		model.PostRecord{LocationID: locA, UserID: "sharer", CreatedAt: testNow},
	)
	profiles := testutil.NewFakeMapDataRepository()
	profiles.Profiles = []model.ProfileRecord{{ID: "sharer", Username: "sean"}}
	enricher := NewPinEnricher(activity, profiles, nil)

	pin := pinAt(locA, "", "bar", 1, 1)
	pin.OwnerUserID = "sharer"
	enriched := enricher.Enrich(context.Background(), model.FilterShared, []model.MapPin{pin})

	require.NotNil(t, enriched[0].SharedByUser)
	assert.Equal(t, model.ActionPosted, enriched[0].SharedByUser.Action)
	assert.Nil(t, enriched[0].SavedByUser)
}

func TestPinEnricher_FailuresAreAbsorbed(t *testing.T) {
	activity := testutil.NewFakeActivityRepository()
	activity.Err = errors.New("posts unavailable")
	profiles := testutil.NewFakeMapDataRepository()
	profiles.Errors["GetProfilesByIDs"] = errors.New("profiles unavailable")
	enricher := NewPinEnricher(activity, profiles, nil)

	pin := pinAt(locA, "", "bar", 1, 1)
	pin.OwnerUserID = "owner"
	enriched := enricher.Enrich(context.Background(), model.FilterFollowing, []model.MapPin{pin})

	require.Len(t, enriched, 1)
	assert.Nil(t, enriched[0].LatestActivity)
	assert.Nil(t, enriched[0].SavedByUser)
}

func TestPinEnricher_Batches(t *testing.T) {
	activity := testutil.NewFakeActivityRepository()
	enricher := NewPinEnricher(activity, nil, nil)

	pins := make([]model.MapPin, 0, model.EnrichmentBatchSize+1)
	for i := 0; i < model.EnrichmentBatchSize+1; i++ {
		id := uuidFor(i)
		pins = append(pins, pinAt(id, "", "bar", float64(i)+1, 1))
	}
	enricher.Enrich(context.Background(), model.FilterSaved, pins)

	assert.Equal(t, 2, activity.CallCount("GetRecentPostsByLocationIDs"))
}

func uuidFor(i int) string {
	return "00000000-0000-4000-8000-" + leftPad(i)
}

func leftPad(i int) string {
	s := []byte("000000000000")
	for pos := len(s) - 1; i > 0 && pos >= 0; pos-- {
		s[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(s)
}
