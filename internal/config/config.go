package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/common"
	"github.com/i474232898/paperdash/internal/news"
)

var ErrNoLocation = errors.New("config: LATITUDE/LONGITUDE unset and no LOCATION_CITY to geocode")

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	// WeatherProviders is the provider order tried by the weather chain.
	WeatherProviders []string `validate:"min=1,dive,oneof=openweather openmeteo weatherapi"`

	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
	Timezone  string  `validate:"timezone"`
	Zone      *time.Location

	TfNSWAPIKey   string
	BusStopID     string
	MaxDepartures int `validate:"min=1,max=10"`

	CalendarURL string `validate:"omitempty,url"`
	NewsFeeds   []news.Feed

	Theme        string
	Renderer     string `validate:"oneof=auto chromium canvas"`
	ChromiumPath string
	Display      string `validate:"oneof=auto epd noop"`
	Rotate180    bool

	// Panel is the e-paper model; empty picks the one matching the theme.
	Panel string `validate:"omitempty,oneof=7in5_v2 7in5h"`

	CycleInterval time.Duration `validate:"min=1s"`
	SlowInterval  time.Duration `validate:"min=1s"`
	ErrorCooldown time.Duration `validate:"min=0"`
	SourceTimeout time.Duration `validate:"min=1s"`
	MaxStaleness  time.Duration `validate:"min=0"`
	FullClearAt   string        `validate:"omitempty,datetime=15:04"`

	PreviewPath string
	PreviewAddr string `validate:"omitempty,hostname_port"`

	// In-memory frame history retention.
	StoreMaxHistory int `validate:"min=0"`

	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `validate:"oneof=text json"`
}

// geocode resolves a city to coordinates. Swapped out in tests.
var geocode = func(apiKey, city, country string) (float64, float64, error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is read first when present.
func Load(log logrus.FieldLogger) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("config: no .env file loaded: %v", err)
	}
	return FromEnv(log)
}

// FromEnv builds the configuration from the process environment only.
func FromEnv(log logrus.FieldLogger) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.OpenWeatherAPIKey = os.Getenv("OWM_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WeatherProviders = splitList(getenvDefault("WEATHER_PROVIDERS", "openweather,openmeteo,weatherapi"))

	cfg.Timezone = getenvDefault("TIMEZONE", "Australia/Sydney")
	if cfg.Zone, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if err := loadLocation(cfg, log); err != nil {
		return nil, err
	}

	cfg.TfNSWAPIKey = os.Getenv("TFNSW_API_KEY")
	cfg.BusStopID = os.Getenv("BUS_STOP_ID")
	cfg.MaxDepartures = getenvInt("MAX_DEPARTURES", 4)

	cfg.CalendarURL = strings.TrimSpace(os.Getenv("CALENDAR_ICS_URL"))
	if strings.HasPrefix(cfg.CalendarURL, "webcal://") {
		cfg.CalendarURL = "https://" + strings.TrimPrefix(cfg.CalendarURL, "webcal://")
	}
	if common.CredentialMissing(cfg.CalendarURL) {
		cfg.CalendarURL = ""
	}

	cfg.NewsFeeds = news.DefaultFeeds
	if v, ok := os.LookupEnv("NEWS_FEEDS"); ok {
		if cfg.NewsFeeds, err = news.ParseFeeds(v); err != nil {
			return nil, fmt.Errorf("invalid NEWS_FEEDS: %w", err)
		}
	}

	cfg.Theme = getenvDefault("THEME", "mono")
	cfg.Renderer = getenvDefault("RENDERER", "auto")
	cfg.ChromiumPath = os.Getenv("CHROMIUM_PATH")
	cfg.Display = getenvDefault("DISPLAY_SINK", "auto")
	cfg.Panel = strings.ToLower(strings.TrimSpace(os.Getenv("EPD_PANEL")))
	cfg.Rotate180 = getenvBool("ROTATE_180", false)

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"CYCLE_INTERVAL", "5m", &cfg.CycleInterval},
		{"SLOW_INTERVAL", "30m", &cfg.SlowInterval},
		{"ERROR_COOLDOWN", "60s", &cfg.ErrorCooldown},
		{"SOURCE_TIMEOUT", "15s", &cfg.SourceTimeout},
		{"MAX_STALENESS", "0s", &cfg.MaxStaleness},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}
	cfg.FullClearAt = getenvDefault("FULL_CLEAR_AT", "03:00")
	if v, ok := os.LookupEnv("FULL_CLEAR_AT"); ok && strings.TrimSpace(v) == "" {
		cfg.FullClearAt = ""
	}

	cfg.PreviewPath = os.Getenv("PREVIEW_PATH")
	cfg.PreviewAddr = os.Getenv("PREVIEW_ADDR")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 12) // one hour at the default cadence

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadLocation(cfg *AppConfig, log logrus.FieldLogger) error {
	latStr, lonStr := os.Getenv("LATITUDE"), os.Getenv("LONGITUDE")
	if latStr == "" && lonStr == "" {
		city := os.Getenv("LOCATION_CITY")
		if city == "" {
			// Sydney, where the transit source lives.
			cfg.Latitude, cfg.Longitude = -33.8688, 151.2093
			return nil
		}
		key := os.Getenv("GOOGLE_GEOCODING_API_KEY")
		if common.CredentialMissing(key) {
			return fmt.Errorf("%w: GOOGLE_GEOCODING_API_KEY is required to geocode %q", ErrNoLocation, city)
		}
		lat, lon, err := geocode(key, city, os.Getenv("LOCATION_COUNTRY"))
		if err != nil {
			return fmt.Errorf("geocode %q: %w", city, err)
		}
		log.WithFields(logrus.Fields{"city": city, "lat": lat, "lon": lon}).Info("config: location geocoded")
		cfg.Latitude, cfg.Longitude = lat, lon
		return nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return fmt.Errorf("invalid LATITUDE: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return fmt.Errorf("invalid LONGITUDE: %w", err)
	}
	cfg.Latitude, cfg.Longitude = lat, lon
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
