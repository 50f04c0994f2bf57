package models

// GeoPoint is a plain lng/lat pair stored inside a document.
// The zero value (0,0) means the location was never set; callers that
// filter by distance must treat it as "always in range" so that
// un-located records are not silently hidden.
type GeoPoint struct {
	Longitude float64 `bson:"longitude" json:"longitude"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
}

func (p GeoPoint) IsUnset() bool {
	return p.Longitude == 0 && p.Latitude == 0
}
