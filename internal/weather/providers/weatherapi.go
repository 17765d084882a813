package providers

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
	"github.com/i474232898/paperdash/internal/weather"
)

const kphToMS = 1 / 3.6

// WeatherAPIProvider reads the WeatherAPI.com forecast endpoint.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	loc     weather.Location
	client  *fetch.Client
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, loc weather.Location, opts ...fetch.Option) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		loc:     loc,
		client:  fetch.New("weatherapi", client, opts...),
	}
}

// WithBaseURL points the provider at another host; used by tests.
func (p *WeatherAPIProvider) WithBaseURL(u string) *WeatherAPIProvider {
	p.baseURL = u
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPICondition struct {
	Text string `json:"text"`
}

type weatherAPIPayload struct {
	Current *struct {
		LastUpdatedEpoch int64               `json:"last_updated_epoch"`
		TempC            float64             `json:"temp_c"`
		WindKph          float64             `json:"wind_kph"`
		WindDegree       float64             `json:"wind_degree"`
		GustKph          *float64            `json:"gust_kph"`
		UV               float64             `json:"uv"`
		Condition        weatherAPICondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Hour []struct {
				TimeEpoch    int64               `json:"time_epoch"`
				TempC        float64             `json:"temp_c"`
				ChanceOfRain float64             `json:"chance_of_rain"`
				GustKph      *float64            `json:"gust_kph"`
				Condition    weatherAPICondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, now time.Time) source.Record[weather.Report] {
	if common.CredentialMissing(p.apiKey) {
		return source.Disabled[weather.Report]("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", fmt.Sprintf("%f,%f", p.loc.Lat, p.loc.Lon))
	values.Set("days", "2")

	var payload weatherAPIPayload
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil, &payload); err != nil {
		return source.Failed[weather.Report](err)
	}
	if payload.Current == nil {
		return source.Failed[weather.Report](fmt.Errorf("weatherapi: response has no current block"))
	}

	var hours []weather.HourSample
	for _, day := range payload.Forecast.Forecastday {
		for _, h := range day.Hour {
			hours = append(hours, weather.HourSample{
				At:       time.Unix(h.TimeEpoch, 0).UTC(),
				TempC:    h.TempC,
				RainProb: h.ChanceOfRain / 100,
				Icon:     iconForWeatherAPIText(h.Condition.Text),
				GustMS:   scaled(h.GustKph, kphToMS),
			})
		}
	}
	hours = weather.Upcoming(hours, now)

	c := payload.Current
	cur := weather.Current{
		At:        time.Unix(c.LastUpdatedEpoch, 0).UTC(),
		TempC:     c.TempC,
		Condition: mainCondition(c.Condition.Text),
		WindMS:    c.WindKph * kphToMS,
		WindDeg:   c.WindDegree,
		GustMS:    scaled(c.GustKph, kphToMS),
		UV:        c.UV,
	}

	return source.OK(weather.Summarize(p.name, cur, hours, p.loc.TZ()), now)
}

func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * factor
	return &out
}

func iconForWeatherAPIText(text string) weather.Icon {
	switch {
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard") || contains(text, "ice"):
		return weather.IconSnow
	case contains(text, "rain") || contains(text, "shower") || contains(text, "drizzle") || contains(text, "thunder"):
		return weather.IconRain
	case contains(text, "sunny") || contains(text, "clear"):
		return weather.IconSun
	default:
		return weather.IconCloud
	}
}

// mainCondition shortens WeatherAPI's descriptive text to the one-word
// vocabulary OpenWeatherMap uses for its "main" field.
func mainCondition(text string) string {
	switch {
	case text == "":
		return ""
	case contains(text, "thunder") || contains(text, "storm"):
		return "Thunderstorm"
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard"):
		return "Snow"
	case contains(text, "drizzle"):
		return "Drizzle"
	case contains(text, "rain") || contains(text, "shower"):
		return "Rain"
	case contains(text, "fog") || contains(text, "mist"):
		return "Fog"
	case contains(text, "cloud") || contains(text, "overcast"):
		return "Clouds"
	case contains(text, "sunny") || contains(text, "clear"):
		return "Clear"
	default:
		return text
	}
}

func contains(s, sub string) bool {
	return common.HasAny(strings.ToLower(s), strings.ToLower(sub))
}
