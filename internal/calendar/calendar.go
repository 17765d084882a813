// Package calendar turns a private iCalendar feed into the next few upcoming events.
package calendar

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	ics "github.com/arran4/golang-ical"

	"github.com/i474232898/paperdash/internal/common"
	"github.com/i474232898/paperdash/internal/fetch"
	"github.com/i474232898/paperdash/internal/source"
)

const (
	// MaxEvents is the number of events the calendar panel shows.
	MaxEvents = 4
	// TitleWidth is the longest title shown untouched; longer ones are cut to
	// TitleWidth-2 runes plus "..".
	TitleWidth = 22
	allDay     = "All Day"
)

// Event is one display-ready calendar entry.
type Event struct {
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	// End is zero when the VEVENT has no DTEND or is all-day.
	End    time.Time `json:"end,omitempty"`
	AllDay bool      `json:"allDay"`
	Date   string    `json:"date"`
	Time   string    `json:"time"`
}

// Adapter downloads and parses one .ics feed.
type Adapter struct {
	url    string
	zone   *time.Location
	client *fetch.Client
}

// New creates a new calendar Adapter. Floating times are read in zone.
func New(client *http.Client, icsURL string, zone *time.Location, opts ...fetch.Option) *Adapter {
	if zone == nil {
		zone = time.UTC
	}
	return &Adapter{
		url:    strings.TrimSpace(icsURL),
		zone:   zone,
		client: fetch.New("calendar", client, opts...),
	}
}

func (a *Adapter) Name() string { return "calendar" }

func (a *Adapter) Fetch(ctx context.Context, now time.Time) source.Record[[]Event] {
	if common.CredentialMissing(a.url) {
		return source.Disabled[[]Event]("no calendar url configured")
	}
	// Apple shares calendars as webcal:// links; they are plain https underneath.
	u := a.url
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	body, err := a.client.Get(ctx, u, nil)
	if err != nil {
		return source.Failed[[]Event](err)
	}
	events, err := Parse(body, a.zone)
	if err != nil {
		return source.Failed[[]Event](err)
	}
	return source.OK(Upcoming(events, now, MaxEvents), now)
}

// Parse reads every VEVENT of an iCalendar document. Events without a readable
// DTSTART are skipped.
func Parse(doc []byte, zone *time.Location) ([]Event, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("calendar: parse: %w", err)
	}

	var out []Event
	for _, ve := range cal.Events() {
		ev, ok := convert(ve, zone)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Upcoming keeps events starting strictly after now, earliest first, at most max.
func Upcoming(events []Event, now time.Time, max int) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Start.After(now) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// ShortTitle cuts long titles and marks the cut with "..".
func ShortTitle(s string) string {
	if utf8.RuneCountInString(s) > TitleWidth {
		return common.Truncate(s, TitleWidth-2) + ".."
	}
	return s
}

func convert(ve *ics.VEvent, zone *time.Location) (Event, bool) {
	startProp := ve.GetProperty(ics.ComponentPropertyDtStart)
	if startProp == nil {
		return Event{}, false
	}
	start, isDate, err := parseStamp(startProp.Value, startProp.ICalParameters, zone)
	if err != nil {
		return Event{}, false
	}

	ev := Event{Summary: "(no title)"}
	if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil && strings.TrimSpace(p.Value) != "" {
		ev.Summary = unescape(p.Value)
	}
	ev.Summary = ShortTitle(ev.Summary)

	if isDate {
		ev.AllDay = true
		ev.Start = start
		ev.Time = allDay
		ev.Date = start.Format("Mon 02/01")
		return ev, true
	}

	ev.Start = start.In(zone)
	ev.Date = ev.Start.Format("Mon 02/01")
	ev.Time = clock(ev.Start)
	if endProp := ve.GetProperty(ics.ComponentPropertyDtEnd); endProp != nil {
		if end, endIsDate, err := parseStamp(endProp.Value, endProp.ICalParameters, zone); err == nil && !endIsDate {
			ev.End = end.In(zone)
			ev.Time += " - " + clock(ev.End)
		}
	}
	return ev, true
}

// parseStamp reads a DATE or DATE-TIME value. A trailing Z means UTC, a TZID
// parameter names the zone, anything else is floating and read in zone.
func parseStamp(value string, params map[string][]string, zone *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	isDate := len(value) == len("20060102") || firstParam(params, "VALUE") == "DATE"
	if isDate {
		t, err := time.ParseInLocation("20060102", value[:min(len(value), 8)], zone)
		return t, true, err
	}
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		return t, false, err
	}
	loc := zone
	if tzid := strings.Trim(firstParam(params, "TZID"), `"`); tzid != "" {
		if l, err := time.LoadLocation(strings.TrimPrefix(tzid, "/")); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", value, loc)
	return t, false, err
}

func firstParam(params map[string][]string, key string) string {
	for k, vs := range params {
		if strings.EqualFold(k, key) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// clock renders "3:04pm".
func clock(t time.Time) string {
	return strings.ToLower(t.Format("3:04PM"))
}

var textUnescaper = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, " ", `\N`, " ", `\\`, `\`)

func unescape(s string) string {
	return strings.TrimSpace(textUnescaper.Replace(s))
}
