package weather

import (
	"time"

	"github.com/i474232898/paperdash/internal/source"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider = source.Adapter[Report]

// Location is the point the dashboard reports weather for.
type Location struct {
	Lat  float64
	Lon  float64
	Zone *time.Location
}

// TZ returns the configured zone, defaulting to UTC.
func (l Location) TZ() *time.Location {
	if l.Zone == nil {
		return time.UTC
	}
	return l.Zone
}
