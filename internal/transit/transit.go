// Package transit reads live departures for one stop from the Transport for NSW
// trip planner API.
package transit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/paperdash/internal/common"
	"github.com/i474232898/paperdash/internal/fetch"
	"github.com/i474232898/paperdash/internal/source"
)

const (
	// DestinationWidth is the number of runes of a destination name that fit the panel.
	DestinationWidth = 15
	// DefaultMaxDepartures is how many rows the transit panel shows.
	DefaultMaxDepartures = 4
)

// Departure is one display-ready departure row.
type Departure struct {
	Route       string    `json:"route"`
	Destination string    `json:"destination"`
	Due         string    `json:"due"`
	At          time.Time `json:"at"`
}

// NoServices is the single row shown when nothing departs after now.
var NoServices = Departure{Route: "--", Destination: "No services", Due: ""}

// Event is one stop event as the API reports it.
type Event struct {
	DepartureTimePlanned   string `json:"departureTimePlanned"`
	DepartureTimeEstimated string `json:"departureTimeEstimated"`
	Transportation         struct {
		Number      string `json:"number"`
		Destination struct {
			Name string `json:"name"`
		} `json:"destination"`
	} `json:"transportation"`
}

type departureMonitor struct {
	StopEvents []Event `json:"stopEvents"`
}

// Adapter fetches departures for a single stop.
type Adapter struct {
	apiKey        string
	stopID        string
	baseURL       string
	zone          *time.Location
	maxDepartures int
	client        *fetch.Client
}

// New creates a new transit Adapter. zone drives the "now" comparison and the
// due-time labels.
func New(client *http.Client, apiKey, stopID string, zone *time.Location, opts ...fetch.Option) *Adapter {
	if zone == nil {
		zone = time.UTC
	}
	return &Adapter{
		apiKey:        apiKey,
		stopID:        stopID,
		baseURL:       "https://api.transport.nsw.gov.au/v1/tp/departure_mon",
		zone:          zone,
		maxDepartures: DefaultMaxDepartures,
		client:        fetch.New("tfnsw", client, opts...),
	}
}

// WithBaseURL points the adapter at another host; used by tests.
func (a *Adapter) WithBaseURL(u string) *Adapter {
	a.baseURL = u
	return a
}

// WithMaxDepartures caps the number of rows returned.
func (a *Adapter) WithMaxDepartures(n int) *Adapter {
	if n > 0 {
		a.maxDepartures = n
	}
	return a
}

func (a *Adapter) Name() string { return "transit" }

func (a *Adapter) Fetch(ctx context.Context, now time.Time) source.Record[[]Departure] {
	if common.CredentialMissing(a.apiKey) {
		return source.Disabled[[]Departure]("tfnsw api key is not configured")
	}
	if strings.TrimSpace(a.stopID) == "" {
		return source.Disabled[[]Departure]("no stop id configured")
	}

	values := url.Values{}
	values.Set("outputFormat", "rapidJSON")
	values.Set("coordOutputFormat", "EPSG:4326")
	values.Set("mode", "direct")
	values.Set("type_dm", "stop")
	values.Set("name_dm", a.stopID)
	values.Set("depArrMacro", "dep")
	values.Set("TfNSWDM", "true")

	header := http.Header{}
	header.Set("Authorization", "apikey "+a.apiKey)

	var payload departureMonitor
	if err := a.client.GetJSON(ctx, fmt.Sprintf("%s?%s", a.baseURL, values.Encode()), header, &payload); err != nil {
		return source.Failed[[]Departure](err)
	}

	deps, err := Upcoming(payload.StopEvents, now, a.zone, a.maxDepartures)
	if err != nil {
		return source.Failed[[]Departure](err)
	}
	if len(deps) == 0 {
		deps = []Departure{NoServices}
	}
	return source.OK(deps, now)
}

// Upcoming keeps events departing at or after now, in source order, up to max rows.
// The estimated time wins over the planned one; events with neither are skipped.
func Upcoming(events []Event, now time.Time, zone *time.Location, max int) ([]Departure, error) {
	nowLocal := now.In(zone)
	var out []Departure
	for _, ev := range events {
		if max > 0 && len(out) >= max {
			break
		}
		raw := ev.DepartureTimeEstimated
		if raw == "" {
			raw = ev.DepartureTimePlanned
		}
		if raw == "" {
			continue
		}
		at, err := parseDeparture(raw)
		if err != nil {
			return nil, err
		}
		local := at.In(zone)
		if local.Before(nowLocal) {
			continue
		}
		out = append(out, Departure{
			Route:       ev.Transportation.Number,
			Destination: ShortDestination(ev.Transportation.Destination.Name),
			Due:         local.Format("15:04"),
			At:          local,
		})
	}
	return out, nil
}

// ShortDestination cuts a destination at its first comma and to DestinationWidth runes.
func ShortDestination(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	return common.Truncate(strings.TrimSpace(name), DestinationWidth)
}

// parseDeparture reads RFC 3339 timestamps; a timestamp without zone is UTC.
func parseDeparture(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("transit: invalid departure time %q", s)
	}
	return t, nil
}
