// Package news reads the top headline from a fixed list of RSS/Atom feeds.
package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/i474232898/paperdash/internal/fetch"
	"github.com/i474232898/paperdash/internal/source"
)

var errNoHeadlines = errors.New("news: no feed returned a headline")

// Feed is one configured news source.
type Feed struct {
	Name string // short label shown on the panel, e.g. "ABC"
	Code string // stable identifier used by themes for per-source styling
	URL  string
}

// DefaultFeeds are used when no feeds are configured explicitly.
var DefaultFeeds = []Feed{
	{Name: "ABC", Code: "abc", URL: "https://www.abc.net.au/news/feed/51120/rss.xml"},
	{Name: "Gdn", Code: "guardian", URL: "https://www.theguardian.com/au/rss"},
}

// Headline is the newest entry of one feed.
type Headline struct {
	Source string `json:"source"`
	Code   string `json:"code"`
	Title  string `json:"title"`
}

// ParseFeeds reads "Name|url" pairs separated by commas. The code is the
// lower-cased name. Blank entries are ignored.
func ParseFeeds(s string) ([]Feed, error) {
	var feeds []Feed
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "|")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("news: feed %q must look like Name|https://host/feed", part)
		}
		feeds = append(feeds, Feed{Name: name, Code: strings.ToLower(name), URL: url})
	}
	return feeds, nil
}

// Adapter fetches every feed in order. Each feed has its own circuit breaker
// so one dead feed does not starve the others.
type Adapter struct {
	feeds   []Feed
	clients []*fetch.Client
}

func New(client *http.Client, feeds []Feed, opts ...fetch.Option) *Adapter {
	a := &Adapter{feeds: feeds}
	for _, f := range feeds {
		a.clients = append(a.clients, fetch.New("news:"+f.Code, client, opts...))
	}
	return a
}

func (a *Adapter) Name() string { return "news" }

// Fetch skips feeds that error or are empty. It fails only when every
// configured feed did.
func (a *Adapter) Fetch(ctx context.Context, now time.Time) source.Record[[]Headline] {
	if len(a.feeds) == 0 {
		return source.Disabled[[]Headline]("no news feeds configured")
	}

	parser := gofeed.NewParser()
	var (
		out  []Headline
		errs []error
	)
	for i, f := range a.feeds {
		title, err := first(ctx, a.clients[i], parser, f.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		out = append(out, Headline{Source: f.Name, Code: f.Code, Title: title})
	}
	if len(out) == 0 {
		return source.Failed[[]Headline](errors.Join(append([]error{errNoHeadlines}, errs...)...))
	}
	return source.OK(out, now)
}

func first(ctx context.Context, client *fetch.Client, parser *gofeed.Parser, url string) (string, error) {
	body, err := client.Get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}
	for _, item := range feed.Items {
		if t := strings.TrimSpace(item.Title); t != "" {
			return t, nil
		}
	}
	return "", errors.New("feed has no entries")
}
