package validate

import (
	"fmt"
	"math"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

const (
	maxLatitude  = 90.0
	maxLongitude = 180.0
)

// Location accepts a finite (latitude, longitude) pair inside geographic
// bounds and returns it unchanged.
func Location(latitude, longitude float64) (contractx.Location, error) {
	if !isFinite(latitude) || !isFinite(longitude) {
		return contractx.Location{}, fmt.Errorf("%w: coordinates must be finite", contractx.ErrInvalidLocation)
	}
	if latitude < -maxLatitude || latitude > maxLatitude {
		return contractx.Location{}, fmt.Errorf("%w: latitude %v out of range", contractx.ErrInvalidLocation, latitude)
	}
	if longitude < -maxLongitude || longitude > maxLongitude {
		return contractx.Location{}, fmt.Errorf("%w: longitude %v out of range", contractx.ErrInvalidLocation, longitude)
	}
	return contractx.Location{Latitude: latitude, Longitude: longitude}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
