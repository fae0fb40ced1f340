package geo

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// Cell returns the H3 cell index for a coordinate at the given
// resolution, as the canonical hex string.
func Cell(lat, lon float64, res int) (string, error) {
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 index lat=%f lon=%f res=%d: %w", lat, lon, res, err)
	}
	return c.String(), nil
}
