// Package geo abstracts the device geolocation capability. A report
// cannot be created without a fix, so callers must treat ErrUnavailable
// as a hard local stop.
package geo

import (
	"errors"
	"os"
	"strconv"

	"reportagua/internal/shared/models"
)

// ErrUnavailable means no coordinate fix could be obtained (capability
// missing, denied, or not configured).
var ErrUnavailable = errors.New("ubicacion no disponible")

// Locator yields the current position or ErrUnavailable.
type Locator interface {
	Locate() (models.Point, error)
}

// StaticLocator returns a fixed point, typically parsed from CLI flags.
type StaticLocator struct {
	Point models.Point
	Set   bool
}

func (s StaticLocator) Locate() (models.Point, error) {
	if !s.Set {
		return models.Point{}, ErrUnavailable
	}
	if !s.Point.Valid() {
		return models.Point{}, errors.New("coordenadas fuera de rango")
	}
	return s.Point, nil
}

// FromEnv reads REPORTAGUA_LAT / REPORTAGUA_LNG, the fallback fix for
// scripted use.
func FromEnv() Locator {
	latS, okLat := os.LookupEnv("REPORTAGUA_LAT")
	lngS, okLng := os.LookupEnv("REPORTAGUA_LNG")
	if !okLat || !okLng {
		return StaticLocator{}
	}
	lat, errLat := strconv.ParseFloat(latS, 64)
	lng, errLng := strconv.ParseFloat(lngS, 64)
	if errLat != nil || errLng != nil {
		return StaticLocator{}
	}
	return StaticLocator{Point: models.Point{Lat: lat, Lng: lng}, Set: true}
}
