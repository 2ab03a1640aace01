package testutil

import (
	"time"

	"Spotmap-App/internal/domain/model"
)

// Ptr 値のポインタを返す
func Ptr[T any](v T) *T {
	return &v
}

// Location locationsの行を作成
func Location(id, name, category, city string, lat, lng float64, createdBy string, createdAt time.Time) model.LocationRecord {
	return model.LocationRecord{
		ID:        id,
		Name:      name,
		Category:  category,
		City:      Ptr(city),
		Latitude:  Ptr(lat),
		Longitude: Ptr(lng),
		CreatedBy: createdBy,
		CreatedAt: createdAt,
	}
}

// SavedPlace saved_placesの行を作成
func SavedPlace(placeID, name, category, city string, lat, lng float64, userID string, createdAt time.Time) model.SavedPlaceRecord {
	return model.SavedPlaceRecord{
		PlaceID:       placeID,
		PlaceName:     name,
		PlaceCategory: Ptr(category),
		City:          Ptr(city),
		Coordinates:   model.PlaceCoordinates{Lat: Ptr(lat), Lng: Ptr(lng), Valid: true},
		UserID:        userID,
		CreatedAt:     createdAt,
	}
}

// SavedLink user_saved_locationsの行を作成
func SavedLink(userID string, loc model.LocationRecord, createdAt time.Time) model.UserSavedLocationRecord {
	l := loc
	return model.UserSavedLocationRecord{
		UserID:     userID,
		LocationID: loc.ID,
		CreatedAt:  createdAt,
		Location:   &l,
	}
}
