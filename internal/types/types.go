// README: Shared value types used across modules.
package types

// ID is an opaque record identifier (hex string from the ID generator or an
// external store's object id).
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the point carries no coordinate.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
