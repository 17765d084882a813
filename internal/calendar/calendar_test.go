package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/paperdash/internal/source"
)

var sydney, _ = time.LoadLocation("Australia/Sydney")

func vevent(uid, summary string, lines ...string) string {
	b := strings.Builder{}
	b.WriteString("BEGIN:VEVENT\r\n")
	b.WriteString("UID:" + uid + "\r\n")
	b.WriteString("DTSTAMP:20240101T000000Z\r\n")
	if summary != "" {
		b.WriteString("SUMMARY:" + summary + "\r\n")
	}
	for _, l := range lines {
		b.WriteString(l + "\r\n")
	}
	b.WriteString("END:VEVENT\r\n")
	return b.String()
}

func calendarDoc(events ...string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" + strings.Join(events, "") + "END:VCALENDAR\r\n"
}

// now is 10:00 Saturday 1 June 2024 in Sydney.
var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func fixture() string {
	return calendarDoc(
		vevent("past", "Breakfast", "DTSTART:20240531T220000Z", "DTEND:20240531T230000Z"),
		vevent("exact", "Starts right now", "DTSTART:20240601T000000Z"),
		vevent("lunch", "Lunch with Sam", "DTSTART;TZID=Australia/Sydney:20240601T123000", "DTEND;TZID=Australia/Sydney:20240601T133000"),
		vevent("floating", "Floating call", "DTSTART:20240601T150000"),
		vevent("allday", "Mum's birthday", "DTSTART;VALUE=DATE:20240602", "DTEND;VALUE=DATE:20240603"),
		vevent("long", "Quarterly planning review with the whole team", "DTSTART:20240601T010000Z"),
		vevent("later", "Dentist", "DTSTART:20240610T230000Z"),
		vevent("broken", "No start"),
	)
}

func TestUpcomingFiltersSortsAndCaps(t *testing.T) {
	events, err := Parse([]byte(fixture()), sydney)
	require.NoError(t, err)
	assert.Len(t, events, 7, "event without DTSTART is skipped")

	got := Upcoming(events, now, MaxEvents)
	require.Len(t, got, 4)
	for i, ev := range got {
		assert.True(t, ev.Start.After(now), "%s starts at %s", ev.Summary, ev.Start)
		if i > 0 {
			assert.False(t, ev.Start.Before(got[i-1].Start))
		}
	}

	assert.Equal(t, "Quarterly planning r..", got[0].Summary)
	assert.Equal(t, "11:00am", got[0].Time)
	assert.Equal(t, "Lunch with Sam", got[1].Summary)
	assert.Equal(t, "12:30pm - 1:30pm", got[1].Time)
	assert.Equal(t, "Sat 01/06", got[1].Date)
	assert.Equal(t, "Floating call", got[2].Summary)
	assert.Equal(t, "3:00pm", got[2].Time)
	assert.Equal(t, "Mum's birthday", got[3].Summary)
	assert.True(t, got[3].AllDay)
	assert.Equal(t, "All Day", got[3].Time)
	assert.Equal(t, "Sun 02/06", got[3].Date)
}

func TestUpcomingEventStartingExactlyNowIsExcluded(t *testing.T) {
	events := []Event{{Summary: "now", Start: now}, {Summary: "later", Start: now.Add(time.Second)}}
	got := Upcoming(events, now, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "later", got[0].Summary)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Exactly twenty-two ch.", ShortTitle("Exactly twenty-two ch."))
	assert.Equal(t, "Twenty-three charact..", ShortTitle("Twenty-three characters"))
	assert.Len(t, []rune(ShortTitle("Ünïcödé títlé thät is löng")), TitleWidth)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		fmt.Fprint(w, fixture())
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL+"/basic.ics", sydney)
	rec := a.Fetch(context.Background(), now)
	events, ok := rec.Value()
	require.True(t, ok, rec.Reason().String())
	assert.Len(t, events, 4)
}

func TestFetchDisabledWithoutURL(t *testing.T) {
	a := New(http.DefaultClient, "", sydney)
	assert.Equal(t, source.ReasonDisabled, a.Fetch(context.Background(), now).Reason().Kind)
}

func TestFetchGarbageIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL, sydney)
	assert.Equal(t, source.ReasonFailed, a.Fetch(context.Background(), now).Reason().Kind)
}
