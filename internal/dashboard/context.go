// Package dashboard merges a cache snapshot into the values one frame shows.
package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/i474232898/paperdash/internal/cache"
	"github.com/i474232898/paperdash/internal/calendar"
	"github.com/i474232898/paperdash/internal/facts"
	"github.com/i474232898/paperdash/internal/news"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/theme"
	"github.com/i474232898/paperdash/internal/transit"
)

const (
	missingTemp  = "-"
	missingValue = "--"
)

var (
	// TransitNoKey is shown when no transit credential is configured.
	TransitNoKey = transit.Departure{Route: "ERR", Destination: "Set API Key", Due: "--"}
	// TransitDown is shown when departures could not be fetched.
	TransitDown = transit.NoServices
)

// Forecast is one hourly slot as text.
type Forecast struct {
	Label string
	Temp  string
	Rain  string
	Icon  string
}

// Weather is the weather panel as text. Every field is filled, with
// placeholders when no report is available.
type Weather struct {
	Available bool
	Temp      string
	Desc      string
	Wind      string
	Gust      string
	UV        string
	Rain      string
	Provider  string
	Forecast  []Forecast
}

// Context is everything the renderer needs for one frame.
type Context struct {
	Date         string
	Time         string
	Weather      Weather
	Transit      []transit.Departure
	Calendar     []calendar.Event
	CalendarNote string
	News         []news.Headline
	Fact         string
	System       string
	Footer       string
	Theme        theme.Theme
}

type Options struct {
	Zone  *time.Location
	Theme theme.Theme
	Facts *facts.Picker
}

// Build is pure: the same snapshot, instant and options give the same Context.
func Build(snap cache.Snapshot, now time.Time, opts Options) Context {
	zone := opts.Zone
	if zone == nil {
		zone = time.UTC
	}
	local := now.In(zone)
	picker := opts.Facts
	if picker == nil {
		picker = facts.NewPicker(nil)
	}

	c := Context{
		Date:    local.Format("Monday, 02 January"),
		Time:    local.Format("15:04"),
		Weather: weatherPanel(snap),
		Transit: transitPanel(snap.Transit),
		Fact:    picker.OfTheHour(now),
		Footer:  "Data fetched @ " + local.Format("15:04:05"),
		Theme:   opts.Theme,
	}

	switch events, ok := snap.Calendar.Value(); {
	case !ok && snap.Calendar.Reason().Kind == source.ReasonDisabled:
		c.CalendarNote = "No calendar configured"
	case !ok:
		c.CalendarNote = "Calendar unavailable"
	case len(events) == 0:
		c.CalendarNote = "No upcoming events"
	default:
		c.Calendar = events
	}

	if headlines, ok := snap.News.Value(); ok {
		c.News = headlines
	}
	if st, ok := snap.System.Value(); ok {
		c.System = st.Line()
	}
	return c
}

func weatherPanel(snap cache.Snapshot) Weather {
	r, ok := snap.Weather.Value()
	if !ok {
		desc := "Error"
		if snap.Weather.Reason().Kind == source.ReasonDisabled {
			desc = "No Key"
		}
		return Weather{
			Temp: missingTemp,
			Desc: desc,
			Wind: missingValue,
			Gust: missingValue,
			UV:   missingValue,
			Rain: missingValue,
		}
	}

	w := Weather{
		Available: true,
		Temp:      strconv.Itoa(r.TempC),
		Desc:      r.Condition,
		Wind:      fmt.Sprintf("%dkt %s", r.WindKnots, r.WindDir),
		Gust:      fmt.Sprintf("%dkt", r.GustKnots),
		UV:        strconv.Itoa(r.UV),
		Rain:      fmt.Sprintf("%d%%", r.RainChance),
		Provider:  r.Provider,
	}
	for _, h := range r.Hourly {
		w.Forecast = append(w.Forecast, Forecast{
			Label: h.Label,
			Temp:  fmt.Sprintf("%d°", h.TempC),
			Rain:  fmt.Sprintf("%d%%", h.RainChance),
			Icon:  string(h.Icon),
		})
	}
	return w
}

func transitPanel(rec source.Record[[]transit.Departure]) []transit.Departure {
	if deps, ok := rec.Value(); ok {
		return deps
	}
	if rec.Reason().Kind == source.ReasonDisabled {
		return []transit.Departure{TransitNoKey}
	}
	return []transit.Departure{TransitDown}
}
