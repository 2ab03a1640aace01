package service

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
)

func addSavedPlaceRows(set *model.CandidateSet, pin model.MapPin, rows int) {
	for i := 0; i < rows; i++ {
		set.Add(model.SourceSavedPlace, pin)
	}
}

func TestRankPopular_SavedPlaceCollisionKeepsHigherPriorityCategory(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	addSavedPlaceRows(set, pinAt("ChIJcafe", "ChIJcafe", "cafe", 53.1, -6.1), 5)
	addSavedPlaceRows(set, pinAt("ChIJbar", "ChIJbar", "bar", 53.1, -6.1), 2)

	ranked := RankPopular(set, nil, nil, model.PopularPinLimit)

	require.Len(t, ranked, 1)
	assert.Equal(t, model.CategoryBar, ranked[0].Category)
	require.NotNil(t, ranked[0].RecommendationScore)
	assert.Equal(t, 7.0, *ranked[0].RecommendationScore)
	assert.True(t, ranked[0].IsRecommended)
}

func TestRankPopular_ClaimedPlaceIDSkipsSavedPlace(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	loc := pinAt("8c5a1f7e-3b2d-4c9a-9f1e-2d7b6a5c4e3f", "X", "restaurant", 53.2, -6.2)
	loc.OpeningHoursData = json.RawMessage(`{"weekday_text":["Mon: 9-5"]}`)
	set.Add(model.SourceAuthoredLocation, loc)
	// 座標が少しずれていても同じ外部IDなら捨てる
	addSavedPlaceRows(set, pinAt("X", "X", "restaurant", 53.2001, -6.2001), 3)

	ranked := RankPopular(set, nil, nil, model.PopularPinLimit)

	require.Len(t, ranked, 1)
	assert.Equal(t, loc.ID, ranked[0].ID)
	assert.NotEmpty(t, ranked[0].OpeningHoursData)
	assert.Equal(t, 0.0, *ranked[0].RecommendationScore, "saved_placesの保存数は加算しない")
}

func TestRankPopular_ScoresSavesAndPosts(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	set.Add(model.SourceAuthoredLocation, pinAt("loc-a", "", "bar", 1, 1))
	set.Add(model.SourceAuthoredLocation, pinAt("loc-b", "", "bar", 2, 2))
	set.SaveCounts["loc-a"] = 1
	set.PostCounts["loc-a"] = 3
	set.SaveCounts["loc-b"] = 2
	addSavedPlaceRows(set, pinAt("ChIJp", "ChIJp", "cafe", 3, 3), 4)

	ranked := RankPopular(set, nil, nil, model.PopularPinLimit)

	require.Len(t, ranked, 3)
	assert.Equal(t, "ChIJp", ranked[0].ID)
	assert.Equal(t, "loc-a", ranked[1].ID)
	assert.Equal(t, 2.5, *ranked[1].RecommendationScore)
	assert.Equal(t, "loc-b", ranked[2].ID)
}

func TestRankPopular_SortedDescending(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("ChIJ%02d", i)
		addSavedPlaceRows(set, pinAt(id, id, "bar", 10+float64(i)*0.01, 10), (i*7)%11+1)
	}

	ranked := RankPopular(set, nil, nil, model.PopularPinLimit)

	require.Len(t, ranked, 50)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, *ranked[i-1].RecommendationScore, *ranked[i].RecommendationScore)
	}
}

func TestRankPopular_CapAppliedBeforeCategoryFilter(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	// 上位3件はbar、4件目以降にcafeがある
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("ChIJbar%d", i)
		addSavedPlaceRows(set, pinAt(id, id, "bar", 10+float64(i)*0.01, 10), 10)
	}
	addSavedPlaceRows(set, pinAt("ChIJcafe", "ChIJcafe", "cafe", 20, 20), 1)

	categories := helper.NormalizeCategories([]string{"cafe"})
	ranked := RankPopular(set, nil, categories, 3)

	assert.Empty(t, ranked, "切り詰めてから絞り込むためcafeは残らない")

	ranked = RankPopular(set, nil, categories, 4)
	require.Len(t, ranked, 1)
	assert.Equal(t, "ChIJcafe", ranked[0].ID)
}

func TestRankPopular_CrossTableCollisionIsNotMerged(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	set.Add(model.SourceAuthoredLocation, pinAt("loc-a", "", "cafe", 5, 5))
	addSavedPlaceRows(set, pinAt("ChIJz", "ChIJz", "bar", 5, 5), 9)

	ranked := RankPopular(set, nil, nil, model.PopularPinLimit)

	require.Len(t, ranked, 1)
	assert.Equal(t, "loc-a", ranked[0].ID)
	assert.Equal(t, model.CategoryCafe, ranked[0].Category)
	assert.Equal(t, 0.0, *ranked[0].RecommendationScore)
}

func TestRankPopular_AreaFilter(t *testing.T) {
	set := model.NewCandidateSet(model.FilterPopular)
	dublin := pinAt("ChIJd", "ChIJd", "bar", 53.3, -6.2)
	dublin.City = "Dublin"
	dublin2 := pinAt("ChIJd2", "ChIJd2", "bar", 53.31, -6.21)
	dublin2.City = "Dublin 2"
	addSavedPlaceRows(set, dublin, 1)
	addSavedPlaceRows(set, dublin2, 1)

	ranked := RankPopular(set, func(pin *model.MapPin) bool {
		return helper.CityEquals(pin.City, "Dublin")
	}, nil, model.PopularPinLimit)

	require.Len(t, ranked, 1)
	assert.Equal(t, "ChIJd", ranked[0].ID)
}
