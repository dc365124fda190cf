// Package news fetches the AWS What's New and AWS Blog feeds and exposes
// them as the tool surface the newswire agent calls: topic search,
// announcement and blog listings, raw feed access, and article reading.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newsroom-tools/newswire/internal/httpkit"
)

// DefaultWhatsNewFeedURL is the official AWS What's New feed.
const DefaultWhatsNewFeedURL = "https://aws.amazon.com/about-aws/whats-new/recent/feed/"

// DefaultBlogFeedURL is the AWS News Blog feed.
const DefaultBlogFeedURL = "https://aws.amazon.com/blogs/aws/feed/"

// Feed is a parsed RSS or Atom feed with entries normalized into a
// common structure.
type Feed struct {
	Title   string
	Entries []Entry
}

// Entry is a single feed item. Source is empty until the service merges
// feeds and stamps each entry with where it came from.
type Entry struct {
	ID        string // <guid> (RSS) or <id> (Atom)
	Title     string
	Link      string
	Published time.Time
	Source    string
}

// rssFeed is the XML structure for RSS 2.0, which both AWS feeds use.
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

// atomFeed is the XML structure for Atom feeds.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// parseFeed parses XML data as either an Atom or RSS feed. Atom is tried
// first; its root element is unambiguous.
func parseFeed(data []byte) (*Feed, error) {
	var atom atomFeed
	if err := xml.Unmarshal(data, &atom); err == nil && atom.XMLName.Local == "feed" {
		return atomToFeed(&atom), nil
	}

	var rss rssFeed
	if err := xml.Unmarshal(data, &rss); err == nil && rss.XMLName.Local == "rss" {
		return rssToFeed(&rss), nil
	}

	return nil, fmt.Errorf("unrecognized feed format (expected RSS 2.0 or Atom)")
}

// atomToFeed normalizes a parsed Atom feed. When multiple <link> elements
// exist the one with rel="alternate" is preferred. Entry IDs fall back to
// the link when <id> is absent.
func atomToFeed(af *atomFeed) *Feed {
	f := &Feed{Title: af.Title}
	for _, e := range af.Entries {
		pub, _ := time.Parse(time.RFC3339, e.Published)
		link := atomBestLink(e.Links)
		id := e.ID
		if id == "" {
			id = link
		}
		f.Entries = append(f.Entries, Entry{
			ID:        id,
			Title:     e.Title,
			Link:      link,
			Published: pub,
		})
	}
	return f
}

func atomBestLink(links []atomLink) string {
	if len(links) == 0 {
		return ""
	}
	for _, l := range links {
		if l.Rel == "alternate" || l.Rel == "" {
			return l.Href
		}
	}
	return links[0].Href
}

// rssToFeed normalizes a parsed RSS 2.0 feed. AWS publishes pubDate with
// a numeric zone offset, but GMT-suffixed dates show up too, so both
// RFC1123 forms are accepted.
func rssToFeed(rf *rssFeed) *Feed {
	f := &Feed{Title: rf.Channel.Title}
	for _, item := range rf.Channel.Items {
		pub, _ := time.Parse(time.RFC1123Z, item.PubDate)
		if pub.IsZero() {
			pub, _ = time.Parse(time.RFC1123, item.PubDate)
		}
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		f.Entries = append(f.Entries, Entry{
			ID:        id,
			Title:     item.Title,
			Link:      item.Link,
			Published: pub,
		})
	}
	return f
}

// fetchFeed retrieves and parses a feed from the given URL.
func fetchFeed(ctx context.Context, httpClient *http.Client, feedURL string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20) // 1 MB limit

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	return parseFeed(body)
}
