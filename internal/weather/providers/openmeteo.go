package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/paperdash/internal/fetch"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/weather"
)

// OpenMeteoProvider reads Open-Meteo, which needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	loc     weather.Location
	client  *fetch.Client
}

func NewOpenMeteoProvider(client *http.Client, loc weather.Location, opts ...fetch.Option) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		loc:     loc,
		client:  fetch.New("openmeteo", client, opts...),
	}
}

// WithBaseURL points the provider at another host; used by tests.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	Current *struct {
		Time          int64    `json:"time"`
		Temperature   float64  `json:"temperature_2m"`
		WeatherCode   int      `json:"weather_code"`
		WindSpeed     float64  `json:"wind_speed_10m"`
		WindDirection float64  `json:"wind_direction_10m"`
		WindGusts     *float64 `json:"wind_gusts_10m"`
	} `json:"current"`
	Hourly struct {
		Time        []int64    `json:"time"`
		Temperature []float64  `json:"temperature_2m"`
		RainProb    []*float64 `json:"precipitation_probability"`
		WeatherCode []int      `json:"weather_code"`
		WindGusts   []*float64 `json:"wind_gusts_10m"`
		UVIndex     []*float64 `json:"uv_index"`
	} `json:"hourly"`
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, now time.Time) source.Record[weather.Report] {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(p.loc.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(p.loc.Lon, 'f', -1, 64))
	values.Set("current", "temperature_2m,weather_code,wind_speed_10m,wind_direction_10m,wind_gusts_10m")
	values.Set("hourly", "temperature_2m,precipitation_probability,weather_code,wind_gusts_10m,uv_index")
	values.Set("wind_speed_unit", "ms")
	values.Set("timeformat", "unixtime")
	values.Set("forecast_days", "2")

	var payload openMeteoPayload
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil, &payload); err != nil {
		return source.Failed[weather.Report](err)
	}
	if payload.Current == nil {
		return source.Failed[weather.Report](fmt.Errorf("openmeteo: response has no current block"))
	}

	h := payload.Hourly
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.WeatherCode) != n {
		return source.Failed[weather.Report](fmt.Errorf("openmeteo: hourly arrays have mismatched lengths"))
	}

	hours := make([]weather.HourSample, 0, n)
	for i := 0; i < n; i++ {
		s := weather.HourSample{
			At:    time.Unix(h.Time[i], 0).UTC(),
			TempC: h.Temperature[i],
			Icon:  weather.IconForWMOCode(h.WeatherCode[i]),
		}
		// Open-Meteo reports percent; missing entries stay at zero probability.
		if i < len(h.RainProb) && h.RainProb[i] != nil {
			s.RainProb = *h.RainProb[i] / 100
		}
		if i < len(h.WindGusts) {
			s.GustMS = h.WindGusts[i]
		}
		hours = append(hours, s)
	}
	hours = weather.Upcoming(hours, now)

	c := payload.Current
	cur := weather.Current{
		At:        time.Unix(c.Time, 0).UTC(),
		TempC:     c.Temperature,
		Condition: weather.DescribeWMOCode(c.WeatherCode),
		WindMS:    c.WindSpeed,
		WindDeg:   c.WindDirection,
		GustMS:    c.WindGusts,
	}
	if idx := n - len(hours); len(hours) > 0 && idx < len(h.UVIndex) && h.UVIndex[idx] != nil {
		cur.UV = *h.UVIndex[idx]
	}

	return source.OK(weather.Summarize(p.name, cur, hours, p.loc.TZ()), now)
}
