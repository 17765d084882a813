package weather

import (
	"math"
	"strings"
	"time"
)

const (
	msToKnots = 1.94384
	// RainWindow is how many hourly slots feed the rain-probability ceiling.
	RainWindow = 12
	// ForecastSlots is how many upcoming hours the dashboard shows.
	ForecastSlots = 3
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Knots converts a wind speed in m/s to whole knots.
func Knots(ms float64) int {
	return int(math.Round(ms * msToKnots))
}

// Compass maps a bearing in degrees to a 16-point compass label.
// Half-way bearings round to even, so 11.25° is "N" and 33.75° is "NE".
func Compass(deg float64) string {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return ""
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.RoundToEven(deg/22.5)) % 16
	return compassPoints[idx]
}

// RainCeiling returns the highest probability among the first window samples, in percent.
func RainCeiling(hours []HourSample, window int) int {
	if window > len(hours) {
		window = len(hours)
	}
	var peak float64
	for _, h := range hours[:window] {
		peak = math.Max(peak, h.RainProb)
	}
	return int(math.Round(peak * 100))
}

// Gust picks the first gust value present: current, then the first hourly
// sample, then the plain wind speed.
func Gust(cur Current, hours []HourSample) float64 {
	if cur.GustMS != nil {
		return *cur.GustMS
	}
	if len(hours) > 0 && hours[0].GustMS != nil {
		return *hours[0].GustMS
	}
	return cur.WindMS
}

// HourLabel renders an hour like "3pm" in loc.
func HourLabel(t time.Time, loc *time.Location) string {
	return strings.ToLower(t.In(loc).Format("3PM"))
}

// Upcoming drops hourly samples that started before the current hour.
func Upcoming(hours []HourSample, now time.Time) []HourSample {
	start := now.Truncate(time.Hour)
	for i, h := range hours {
		if !h.At.Before(start) {
			return hours[i:]
		}
	}
	return nil
}

// Summarize applies the dashboard's normalization rules to one provider's data.
// hours must be ordered by time and start at the current hour.
func Summarize(provider string, cur Current, hours []HourSample, loc *time.Location) Report {
	r := Report{
		Provider:   provider,
		ObservedAt: cur.At,
		TempC:      int(math.Round(cur.TempC)),
		Condition:  cur.Condition,
		WindKnots:  Knots(cur.WindMS),
		WindDir:    Compass(cur.WindDeg),
		GustKnots:  Knots(Gust(cur, hours)),
		UV:         int(math.Round(cur.UV)),
		RainChance: RainCeiling(hours, RainWindow),
	}
	if r.Condition == "" {
		r.Condition = "Unknown"
	}
	for i := 1; i <= ForecastSlots && i < len(hours); i++ {
		h := hours[i]
		r.Hourly = append(r.Hourly, Hour{
			At:         h.At,
			Label:      HourLabel(h.At, loc),
			TempC:      int(math.Round(h.TempC)),
			RainChance: int(math.Round(h.RainProb * 100)),
			Icon:       h.Icon,
		})
	}
	return r
}

// IconForOWMCode maps an OpenWeatherMap condition id to an icon.
func IconForOWMCode(code int) Icon {
	switch {
	case code >= 200 && code < 600:
		return IconRain
	case code >= 600 && code < 700:
		return IconSnow
	case code == 800:
		return IconSun
	default:
		return IconCloud
	}
}

// IconForWMOCode maps a WMO weather interpretation code (Open-Meteo) to an icon.
func IconForWMOCode(code int) Icon {
	switch {
	case code <= 1:
		return IconSun
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82) || code >= 95:
		return IconRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return IconSnow
	default:
		return IconCloud
	}
}

// wmoDescriptions covers the WMO weather interpretation codes Open-Meteo emits.
var wmoDescriptions = map[int]string{
	0: "Clear", 1: "Clear", 2: "Clouds", 3: "Overcast",
	45: "Fog", 48: "Fog",
	51: "Drizzle", 53: "Drizzle", 55: "Drizzle",
	61: "Rain", 63: "Rain", 65: "Rain",
	71: "Snow", 73: "Snow", 75: "Snow",
	80: "Showers", 81: "Showers", 82: "Showers",
	95: "Thunderstorm", 96: "Thunderstorm", 99: "Thunderstorm",
}

// DescribeWMOCode returns a short condition name for a WMO code.
func DescribeWMOCode(code int) string {
	if d, ok := wmoDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}
