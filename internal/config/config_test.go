package config

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/paperdash/internal/news"
)

var allKeys = []string{
	"OWM_API_KEY", "WEATHERAPI_API_KEY", "WEATHER_PROVIDERS", "LATITUDE", "LONGITUDE", "TIMEZONE",
	"LOCATION_CITY", "LOCATION_COUNTRY", "GOOGLE_GEOCODING_API_KEY", "TFNSW_API_KEY", "BUS_STOP_ID",
	"MAX_DEPARTURES", "CALENDAR_ICS_URL", "NEWS_FEEDS", "THEME", "RENDERER", "CHROMIUM_PATH",
	"DISPLAY_SINK", "EPD_PANEL", "ROTATE_180", "CYCLE_INTERVAL", "SLOW_INTERVAL", "ERROR_COOLDOWN", "SOURCE_TIMEOUT",
	"MAX_STALENESS", "FULL_CLEAR_AT", "PREVIEW_PATH", "PREVIEW_ADDR", "STORE_MAX_HISTORY", "LOG_LEVEL",
	"LOG_FORMAT",
}

// cleanEnv blanks every setting so the host environment cannot leak in.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDefaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := FromEnv(quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"openweather", "openmeteo", "weatherapi"}, cfg.WeatherProviders)
	assert.Equal(t, "Australia/Sydney", cfg.Zone.String())
	assert.InDelta(t, -33.8688, cfg.Latitude, 1e-9)
	assert.Equal(t, 4, cfg.MaxDepartures)
	assert.Equal(t, news.DefaultFeeds, cfg.NewsFeeds)
	assert.Equal(t, 5*time.Minute, cfg.CycleInterval)
	assert.Equal(t, 30*time.Minute, cfg.SlowInterval)
	assert.Equal(t, 60*time.Second, cfg.ErrorCooldown)
	assert.Equal(t, 15*time.Second, cfg.SourceTimeout)
	assert.Zero(t, cfg.MaxStaleness)
	assert.Equal(t, "03:00", cfg.FullClearAt)
	assert.Equal(t, "auto", cfg.Display)
	assert.Empty(t, cfg.Panel)
	assert.Equal(t, 12, cfg.StoreMaxHistory)
	assert.False(t, cfg.Rotate180)
}

func TestOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("WEATHER_PROVIDERS", " OpenMeteo , weatherapi")
	t.Setenv("LATITUDE", "51.5")
	t.Setenv("LONGITUDE", "-0.12")
	t.Setenv("TIMEZONE", "Europe/London")
	t.Setenv("CALENDAR_ICS_URL", "webcal://p01-caldav.icloud.com/published/2/abc")
	t.Setenv("NEWS_FEEDS", "BBC|https://feeds.bbci.co.uk/news/rss.xml")
	t.Setenv("ROTATE_180", "true")
	t.Setenv("FULL_CLEAR_AT", "04:30")
	t.Setenv("PREVIEW_ADDR", ":8080")
	t.Setenv("RENDERER", "canvas")
	t.Setenv("EPD_PANEL", " 7in5H ")

	cfg, err := FromEnv(quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"openmeteo", "weatherapi"}, cfg.WeatherProviders)
	assert.Equal(t, 51.5, cfg.Latitude)
	assert.Equal(t, "https://p01-caldav.icloud.com/published/2/abc", cfg.CalendarURL)
	require.Len(t, cfg.NewsFeeds, 1)
	assert.Equal(t, "bbc", cfg.NewsFeeds[0].Code)
	assert.True(t, cfg.Rotate180)
	assert.Equal(t, "04:30", cfg.FullClearAt)
	assert.Equal(t, "canvas", cfg.Renderer)
	assert.Equal(t, "7in5h", cfg.Panel)
}

func TestEmptyNewsFeedsDisablesNews(t *testing.T) {
	cleanEnv(t)
	t.Setenv("NEWS_FEEDS", "")

	cfg, err := FromEnv(quietLogger())
	require.NoError(t, err)
	assert.Empty(t, cfg.NewsFeeds)
}

func TestPlaceholderCalendarURLIsDropped(t *testing.T) {
	cleanEnv(t)
	t.Setenv("CALENDAR_ICS_URL", "https://calendar.google.com/<YOUR_SECRET>/basic.ics")

	cfg, err := FromEnv(quietLogger())
	require.NoError(t, err)
	assert.Empty(t, cfg.CalendarURL)
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad provider":  {"WEATHER_PROVIDERS": "accuweather"},
		"bad latitude":  {"LATITUDE": "123", "LONGITUDE": "10"},
		"bad timezone":  {"TIMEZONE": "Mars/Olympus"},
		"bad renderer":  {"RENDERER": "gpu"},
		"bad duration":  {"CYCLE_INTERVAL": "soon"},
		"bad clear at":  {"FULL_CLEAR_AT": "3am"},
		"bad calendar":  {"CALENDAR_ICS_URL": "not a url"},
		"bad log level": {"LOG_LEVEL": "loud"},
		"bad feeds":     {"NEWS_FEEDS": "just-a-name"},
		"bad panel":     {"EPD_PANEL": "2in13"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			cleanEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv(quietLogger())
			assert.Error(t, err)
		})
	}
}

func TestGeocodedLocation(t *testing.T) {
	cleanEnv(t)
	t.Setenv("LOCATION_CITY", "Wollongong")
	t.Setenv("LOCATION_COUNTRY", "Australia")
	t.Setenv("GOOGLE_GEOCODING_API_KEY", "real-key")

	orig := geocode
	t.Cleanup(func() { geocode = orig })
	geocode = func(key, city, country string) (float64, float64, error) {
		assert.Equal(t, "real-key", key)
		assert.Equal(t, "Wollongong", city)
		return -34.42, 150.89, nil
	}

	cfg, err := FromEnv(quietLogger())
	require.NoError(t, err)
	assert.Equal(t, -34.42, cfg.Latitude)
	assert.Equal(t, 150.89, cfg.Longitude)

	geocode = func(string, string, string) (float64, float64, error) { return 0, 0, errors.New("ZERO_RESULTS") }
	_, err = FromEnv(quietLogger())
	assert.ErrorContains(t, err, "ZERO_RESULTS")
}

func TestGeocodingNeedsKey(t *testing.T) {
	cleanEnv(t)
	t.Setenv("LOCATION_CITY", "Wollongong")

	_, err := FromEnv(quietLogger())
	assert.ErrorIs(t, err, ErrNoLocation)
}
