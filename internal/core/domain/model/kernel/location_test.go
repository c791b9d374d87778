package kernel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/pkg/errs"
)

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{name: "valid location", lat: 40.0, lng: -74.0},
		{name: "valid location at min bounds", lat: kernel.LatitudeMin, lng: kernel.LongitudeMin},
		{name: "valid location at max bounds", lat: kernel.LatitudeMax, lng: kernel.LongitudeMax},
		{name: "origin", lat: 0, lng: 0},
		{name: "latitude too small", lat: -90.0001, lng: 0, wantErr: true},
		{name: "latitude too large", lat: 90.5, lng: 0, wantErr: true},
		{name: "longitude too small", lat: 0, lng: -180.01, wantErr: true},
		{name: "longitude too large", lat: 0, lng: 181, wantErr: true},
		{name: "latitude NaN", lat: math.NaN(), lng: 0, wantErr: true},
		{name: "longitude infinite", lat: 0, lng: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := kernel.NewLocation(tt.lat, tt.lng)

			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
				assert.Error(t, loc.Validate())
				return
			}

			require.NoError(t, err)
			require.NoError(t, loc.Validate())
			assert.InDelta(t, tt.lat, loc.Lat(), 0)
			assert.InDelta(t, tt.lng, loc.Lng(), 0)
		})
	}
}

func TestNewLocation_BothAxesInvalid(t *testing.T) {
	_, err := kernel.NewLocation(100, 200)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is lat")
	assert.Contains(t, err.Error(), "is lng")
}

func TestClampedLocation(t *testing.T) {
	t.Run("clamps out of range axes", func(t *testing.T) {
		loc := kernel.ClampedLocation(90.0002, -180.3)

		require.NoError(t, loc.Validate())
		assert.InDelta(t, kernel.LatitudeMax, loc.Lat(), 0)
		assert.InDelta(t, kernel.LongitudeMin, loc.Lng(), 0)
	})

	t.Run("keeps in range axes", func(t *testing.T) {
		loc := kernel.ClampedLocation(12.5, 33.25)

		assert.InDelta(t, 12.5, loc.Lat(), 0)
		assert.InDelta(t, 33.25, loc.Lng(), 0)
	})
}

func TestLocation_Validate(t *testing.T) {
	var zero kernel.Location

	err := zero.Validate()

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
}

func TestLocation_IsEqual(t *testing.T) {
	a, _ := kernel.NewLocation(1.5, 2.5)
	b, _ := kernel.NewLocation(1.5, 2.5)
	c, _ := kernel.NewLocation(1.5, 2.6)

	equal, err := a.IsEqual(b)
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = a.IsEqual(c)
	require.NoError(t, err)
	assert.False(t, equal)

	_, err = a.IsEqual(kernel.Location{})
	require.Error(t, err)
}

func TestLocation_String(t *testing.T) {
	loc, _ := kernel.NewLocation(40, -74)

	assert.Equal(t, "Location(40.000000,-74.000000)", loc.String())
}
