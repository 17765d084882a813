package dashboard

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/paperdash/internal/cache"
	"github.com/i474232898/paperdash/internal/calendar"
	"github.com/i474232898/paperdash/internal/facts"
	"github.com/i474232898/paperdash/internal/news"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/sysinfo"
	"github.com/i474232898/paperdash/internal/theme"
	"github.com/i474232898/paperdash/internal/transit"
	"github.com/i474232898/paperdash/internal/weather"
)

var (
	sydney, _ = time.LoadLocation("Australia/Sydney")
	// 14:05:09 Saturday 1 June 2024 in Sydney.
	now = time.Date(2024, 6, 1, 4, 5, 9, 0, time.UTC)
)

func opts() Options {
	return Options{Zone: sydney, Theme: theme.Default(), Facts: facts.NewPicker([]string{"fact"})}
}

func TestBuildFullSnapshot(t *testing.T) {
	snap := cache.Snapshot{
		Weather: source.OK(weather.Report{
			Provider: "openweather", TempC: 18, Condition: "Clouds",
			WindKnots: 19, WindDir: "E", GustKnots: 25, UV: 3, RainChance: 40,
			Hourly: []weather.Hour{{Label: "3pm", TempC: 17, RainChance: 10, Icon: weather.IconCloud}},
		}, now),
		Calendar: source.OK([]calendar.Event{{Summary: "Dentist"}}, now),
		News:     source.OK([]news.Headline{{Source: "ABC", Title: "Headline"}}, now),
		Transit:  source.OK([]transit.Departure{{Route: "333", Destination: "Bondi Beach", Due: "14:12"}}, now),
		System:   source.OK(sysinfo.Status{Hostname: "pi", Uptime: time.Hour, Load1: 0.5, MemUsedPercent: 40}, now),
	}

	c := Build(snap, now, opts())
	assert.Equal(t, "Saturday, 01 June", c.Date)
	assert.Equal(t, "14:05", c.Time)
	assert.Equal(t, "Data fetched @ 14:05:09", c.Footer)
	assert.Equal(t, "fact", c.Fact)

	assert.True(t, c.Weather.Available)
	assert.Equal(t, "18", c.Weather.Temp)
	assert.Equal(t, "19kt E", c.Weather.Wind)
	assert.Equal(t, "25kt", c.Weather.Gust)
	assert.Equal(t, "40%", c.Weather.Rain)
	require.Len(t, c.Weather.Forecast, 1)
	assert.Equal(t, Forecast{Label: "3pm", Temp: "17°", Rain: "10%", Icon: "cloud"}, c.Weather.Forecast[0])

	assert.Len(t, c.Calendar, 1)
	assert.Empty(t, c.CalendarNote)
	assert.Len(t, c.News, 1)
	assert.Equal(t, "333", c.Transit[0].Route)
	assert.Equal(t, "pi up 1h 0m | load 0.50 | mem 40%", c.System)
}

func TestBuildPendingSnapshotUsesPlaceholders(t *testing.T) {
	c := Build(cache.Snapshot{}, now, opts())

	assert.False(t, c.Weather.Available)
	assert.Equal(t, "-", c.Weather.Temp)
	assert.Equal(t, "Error", c.Weather.Desc)
	assert.Equal(t, "--", c.Weather.Wind)
	assert.Equal(t, "--", c.Weather.Gust)
	assert.Equal(t, "--", c.Weather.UV)
	assert.Equal(t, "--", c.Weather.Rain)
	assert.Empty(t, c.Weather.Forecast)

	assert.Equal(t, []transit.Departure{TransitDown}, c.Transit)
	assert.Empty(t, c.Calendar)
	assert.Equal(t, "Calendar unavailable", c.CalendarNote)
	assert.Empty(t, c.News)
	assert.Empty(t, c.System)
}

func TestBuildDisabledSources(t *testing.T) {
	snap := cache.Snapshot{
		Weather:  source.Disabled[weather.Report]("no key"),
		Transit:  source.Disabled[[]transit.Departure]("no key"),
		Calendar: source.Disabled[[]calendar.Event]("no url"),
	}
	c := Build(snap, now, opts())

	assert.Equal(t, "No Key", c.Weather.Desc)
	assert.Equal(t, []transit.Departure{{Route: "ERR", Destination: "Set API Key", Due: "--"}}, c.Transit)
	assert.Equal(t, "No calendar configured", c.CalendarNote)
}

func TestBuildFailedTransit(t *testing.T) {
	snap := cache.Snapshot{Transit: source.Failed[[]transit.Departure](errors.New("503"))}
	c := Build(snap, now, opts())
	assert.Equal(t, []transit.Departure{{Route: "--", Destination: "No services", Due: ""}}, c.Transit)
}

func TestBuildWeatherOutageBehindUnkeyedProvider(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	noKey := source.Func("openweather", func(ctx context.Context, now time.Time) source.Record[weather.Report] {
		return source.Disabled[weather.Report]("no key")
	})
	down := source.Func("openmeteo", func(ctx context.Context, now time.Time) source.Record[weather.Report] {
		return source.Failed[weather.Report](errors.New("connection refused"))
	})

	ctrl := cache.New(cache.Sources{Weather: weather.NewChain(log, noKey, down)}, cache.Options{}, log)
	c := Build(ctrl.Refresh(context.Background(), now), now, opts())

	assert.False(t, c.Weather.Available)
	assert.Equal(t, "Error", c.Weather.Desc)
}

func TestBuildIsDeterministic(t *testing.T) {
	snap := cache.Snapshot{News: source.OK([]news.Headline{{Title: "x"}}, now)}
	assert.Equal(t, Build(snap, now, opts()), Build(snap, now, opts()))
}
