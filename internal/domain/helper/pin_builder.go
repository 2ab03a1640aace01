package helper

import (
	"time"

	"Spotmap-App/internal/domain/model"
)

// PinFromLocation はlocationsの行をピンに変換する
// 座標が欠損している場合はfalseを返す
func PinFromLocation(loc *model.LocationRecord, now time.Time) (model.MapPin, bool) {
	if loc == nil {
		return model.MapPin{}, false
	}
	coords, ok := loc.GetCoordinates()
	if !ok {
		return model.MapPin{}, false
	}
	return model.MapPin{
		ID:               loc.ID,
		Name:             loc.Name,
		Category:         NormalizeCategory(loc.Category),
		Address:          StringValue(loc.Address),
		City:             ResolveDisplayCity(StringValue(loc.City)),
		GooglePlaceID:    StringValue(loc.GooglePlaceID),
		Coordinates:      coords,
		OpeningHoursData: nullableRaw(loc.OpeningHoursData),
		Photos:           nullableRaw(loc.Photos),
		IsNew:            isNew(loc.CreatedAt, now),
		OwnerUserID:      loc.CreatedBy,
		CreatedAt:        loc.CreatedAt,
	}, true
}

// PinFromSavedLocation はuser_saved_locationsの行（location結合済み）をピンに変換する
// 所有者は保存したユーザーとする
func PinFromSavedLocation(rec *model.UserSavedLocationRecord, now time.Time) (model.MapPin, bool) {
	if rec == nil || rec.Location == nil {
		return model.MapPin{}, false
	}
	pin, ok := PinFromLocation(rec.Location, now)
	if !ok {
		return model.MapPin{}, false
	}
	pin.OwnerUserID = rec.UserID
	pin.CreatedAt = rec.CreatedAt
	pin.IsNew = isNew(rec.CreatedAt, now)
	return pin, true
}

// PinFromSavedPlace はsaved_placesの行をピンに変換する（IDは外部プレイスID）
func PinFromSavedPlace(rec *model.SavedPlaceRecord, now time.Time) (model.MapPin, bool) {
	if rec == nil || rec.PlaceID == "" {
		return model.MapPin{}, false
	}
	coords, ok := rec.Coordinates.Get()
	if !ok {
		return model.MapPin{}, false
	}
	return model.MapPin{
		ID:            rec.PlaceID,
		Name:          rec.PlaceName,
		Category:      NormalizeCategory(StringValue(rec.PlaceCategory)),
		City:          ResolveDisplayCity(StringValue(rec.City)),
		GooglePlaceID: rec.PlaceID,
		Coordinates:   coords,
		IsNew:         isNew(rec.CreatedAt, now),
		OwnerUserID:   rec.UserID,
		CreatedAt:     rec.CreatedAt,
	}, true
}

// PinFromShare はuser_location_sharesの行をピンに変換する
// 共有時の座標を優先し、なければ結合したlocationの座標を使う
func PinFromShare(rec *model.LocationShareRecord, now time.Time) (model.MapPin, bool) {
	if rec == nil {
		return model.MapPin{}, false
	}
	var pin model.MapPin
	if rec.Location != nil {
		if p, ok := PinFromLocation(rec.Location, now); ok {
			pin = p
		} else {
			pin = model.MapPin{ID: rec.Location.ID, Name: rec.Location.Name, Category: NormalizeCategory(rec.Location.Category)}
		}
	} else {
		pin = model.MapPin{ID: rec.ID, Category: model.CategoryOther}
	}
	if rec.Latitude != nil && rec.Longitude != nil {
		pin.Coordinates = model.Coordinates{Lat: *rec.Latitude, Lng: *rec.Longitude}
	}
	if pin.ID == "" {
		pin.ID = rec.ID
	}
	pin.OwnerUserID = rec.UserID
	pin.CreatedAt = rec.CreatedAt
	pin.IsNew = isNew(rec.CreatedAt, now)
	return pin, ValidCoordinates(pin.Coordinates)
}

func isNew(createdAt, now time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	return now.Sub(createdAt) < model.NewPinWindow
}

func nullableRaw(raw []byte) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
