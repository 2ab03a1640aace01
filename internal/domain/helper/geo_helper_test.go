package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Spotmap-App/internal/domain/model"
)

func TestParseBBox(t *testing.T) {
	bounds, err := ParseBBox("-6.35, 53.30, -6.20, 53.40")
	require.NoError(t, err)
	assert.Equal(t, &model.MapBounds{North: 53.40, South: 53.30, East: -6.20, West: -6.35}, bounds)

	assert.True(t, bounds.Contains(model.Coordinates{Lat: 53.35, Lng: -6.26}))
	assert.False(t, bounds.Contains(model.Coordinates{Lat: 53.45, Lng: -6.26}))
}

func TestParseBBox_Invalid(t *testing.T) {
	for _, bbox := range []string{
		"1,2,3",
		"a,b,c,d",
		"10,10,0,0",
		"-200,0,0,10",
		"NaN,0,1,1",
		"0,0,1,nan",
		"-Inf,0,1,1",
		"0,0,+Inf,1",
	} {
		_, err := ParseBBox(bbox)
		assert.Error(t, err, bbox)
	}
}

func TestFormatBounds(t *testing.T) {
	b := &model.MapBounds{North: 53.412345, South: 53.300001, East: -6.2, West: -6.35}
	assert.Equal(t, "53.4123,53.3000,-6.2000,-6.3500", FormatBounds(b, 4))
	assert.Empty(t, FormatBounds(nil, 4))
}

func TestBoundsWKT(t *testing.T) {
	b := &model.MapBounds{North: 1, South: 0, East: 1, West: 0}
	assert.Contains(t, BoundsWKT(b), "POLYGON")
	assert.Empty(t, BoundsWKT(nil))
}
