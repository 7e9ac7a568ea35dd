package domain

import (
	"context"
	"log/slog"
)

// ResolvePlace turns intent.Place into a region filter using geocoder.
// If geocoder is nil, the intent already names a region, or geocoding fails,
// the intent is returned unfiltered (graceful degradation).
func ResolvePlace(ctx context.Context, intent Intent, geocoder Geocoder, logger *slog.Logger) Intent {
	if intent.Place == "" || intent.Region != nil {
		return intent
	}
	if geocoder == nil {
		logger.Debug("place ignored, geocoding disabled", "place", intent.Place)
		return intent
	}

	result, err := geocoder.ForwardGeocode(ctx, intent.Place)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"place", intent.Place,
			"error", err,
		)
		return intent
	}
	if result.Lat == 0 && result.Lon == 0 {
		logger.Debug("place not found", "place", intent.Place)
		return intent
	}

	name := result.PlaceName
	if name == "" {
		name = intent.Place
	}
	intent.Region = &Region{
		Name:   "area around " + name,
		Bounds: BoundsAround(result.Lat, result.Lon, PlaceRadiusDegrees),
	}
	return intent
}
