package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/paperdash/internal/common"
	"github.com/i474232898/paperdash/internal/fetch"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/weather"
)

// OpenWeatherProvider reads the OpenWeatherMap One Call 3.0 API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	loc     weather.Location
	client  *fetch.Client
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, loc weather.Location, opts ...fetch.Option) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		loc:     loc,
		client:  fetch.New("openweather", client, opts...),
	}
}

// WithBaseURL points the provider at another host; used by tests.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	ID   int    `json:"id"`
	Main string `json:"main"`
}

type owmPayload struct {
	Current *struct {
		Dt        int64          `json:"dt"`
		Temp      float64        `json:"temp"`
		UVI       float64        `json:"uvi"`
		WindSpeed float64        `json:"wind_speed"`
		WindDeg   float64        `json:"wind_deg"`
		WindGust  *float64       `json:"wind_gust"`
		Weather   []owmCondition `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt       int64          `json:"dt"`
		Temp     float64        `json:"temp"`
		Pop      float64        `json:"pop"`
		WindGust *float64       `json:"wind_gust"`
		Weather  []owmCondition `json:"weather"`
	} `json:"hourly"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, now time.Time) source.Record[weather.Report] {
	if common.CredentialMissing(p.apiKey) {
		return source.Disabled[weather.Report]("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(p.loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(p.loc.Lon, 'f', -1, 64))
	values.Set("exclude", "minutely,daily,alerts")
	values.Set("units", "metric")
	values.Set("appid", p.apiKey)

	var payload owmPayload
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil, &payload); err != nil {
		return source.Failed[weather.Report](err)
	}
	if payload.Current == nil {
		return source.Failed[weather.Report](fmt.Errorf("openweather: response has no current block"))
	}

	c := payload.Current
	cur := weather.Current{
		At:      time.Unix(c.Dt, 0).UTC(),
		TempC:   c.Temp,
		UV:      c.UVI,
		WindMS:  c.WindSpeed,
		WindDeg: c.WindDeg,
		GustMS:  c.WindGust,
	}
	if len(c.Weather) > 0 {
		cur.Condition = c.Weather[0].Main
	}

	hours := make([]weather.HourSample, 0, len(payload.Hourly))
	for _, h := range payload.Hourly {
		code := 800
		if len(h.Weather) > 0 {
			code = h.Weather[0].ID
		}
		hours = append(hours, weather.HourSample{
			At:       time.Unix(h.Dt, 0).UTC(),
			TempC:    h.Temp,
			RainProb: h.Pop,
			Icon:     weather.IconForOWMCode(code),
			GustMS:   h.WindGust,
		})
	}

	hours = weather.Upcoming(hours, now)

	return source.OK(weather.Summarize(p.name, cur, hours, p.loc.TZ()), now)
}
