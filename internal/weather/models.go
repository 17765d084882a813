package weather

import (
	"time"
)

// Icon is the coarse pictogram the dashboard draws for an hour slot.
type Icon string

const (
	IconSun   Icon = "sun"
	IconCloud Icon = "cloud"
	IconRain  Icon = "rain"
	IconSnow  Icon = "snow"
)

// Current is one provider's current-conditions block in source units (m/s, degrees, °C).
type Current struct {
	At        time.Time
	TempC     float64
	Condition string
	WindMS    float64
	WindDeg   float64
	// GustMS is nil when the provider sent no gust value.
	GustMS *float64
	UV     float64
}

// HourSample is one hourly forecast entry in source units.
// RainProb is a probability in [0, 1].
type HourSample struct {
	At       time.Time
	TempC    float64
	RainProb float64
	Icon     Icon
	GustMS   *float64
}

// Report is the normalized weather payload handed to the cache.
type Report struct {
	Provider   string    `json:"provider"`
	ObservedAt time.Time `json:"observedAt"`
	TempC      int       `json:"tempC"`
	Condition  string    `json:"condition"`
	WindKnots  int       `json:"windKnots"`
	WindDir    string    `json:"windDir"`
	GustKnots  int       `json:"gustKnots"`
	UV         int       `json:"uv"`
	// RainChance is the highest hourly rain probability over the look-ahead window, in percent.
	RainChance int    `json:"rainChance"`
	Hourly     []Hour `json:"hourly"`
}

// Hour is a display-ready forecast slot.
type Hour struct {
	At         time.Time `json:"at"`
	Label      string    `json:"label"`
	TempC      int       `json:"tempC"`
	RainChance int       `json:"rainChance"`
	Icon       Icon      `json:"icon"`
}
