package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
)

func TestGlobalCityFilter(t *testing.T) {
	t.Run("都市名と地区名の部分一致", func(t *testing.T) {
		filter := globalCityFilter(repository.SourceQuery{Area: repository.AreaScope{City: "Berlin"}})
		assert.Equal(t, `city.ilike."*Berlin*",city.ilike."*kreuzberg*",city.ilike."*mitte*"`, filter)
	})

	t.Run("地区名は親の都市に解決する", func(t *testing.T) {
		filter := globalCityFilter(repository.SourceQuery{Area: repository.AreaScope{City: "Kreuzberg"}})
		assert.Contains(t, filter, `city.ilike."*Berlin*"`)
	})

	t.Run("ユーザーで絞り込む読み取りには付けない", func(t *testing.T) {
		filter := globalCityFilter(repository.SourceQuery{
			UserIDs: []string{"u1"},
			Area:    repository.AreaScope{City: "Berlin"},
		})
		assert.Empty(t, filter)
	})

	t.Run("境界ボックスがあれば付けない", func(t *testing.T) {
		filter := globalCityFilter(repository.SourceQuery{Area: repository.AreaScope{
			Bounds: &model.MapBounds{North: 1, South: 0, East: 1, West: 0},
			City:   "Berlin",
		}})
		assert.Empty(t, filter)
	})

	t.Run("都市名がなければ付けない", func(t *testing.T) {
		assert.Empty(t, globalCityFilter(repository.SourceQuery{}))
	})
}

func TestCityPatternFilter_EscapesSpecialCharacters(t *testing.T) {
	filter := cityPatternFilter([]string{`Washington, D.C.`, `St "John" (West)`, `100%`, `,()`})
	assert.Equal(t, `city.ilike."*Washington* D.C.*",city.ilike."*St *John* *West**",city.ilike."*100**"`, filter)
}
