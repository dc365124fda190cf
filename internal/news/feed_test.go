package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseFeed_RSS(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Recent Announcements</title>
    <item>
      <title>Amazon S3 adds a new storage class</title>
      <link>https://aws.amazon.com/about-aws/whats-new/2025/08/s3-storage-class/</link>
      <guid>whats-new-1</guid>
      <pubDate>Wed, 20 Aug 2025 17:30:00 +0000</pubDate>
    </item>
    <item>
      <title>AWS Lambda adds response streaming</title>
      <link>https://aws.amazon.com/about-aws/whats-new/2025/08/lambda-streaming/</link>
      <guid>whats-new-2</guid>
      <pubDate>Tue, 19 Aug 2025 09:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	if feed.Title != "Recent Announcements" {
		t.Errorf("Title = %q, want %q", feed.Title, "Recent Announcements")
	}
	if len(feed.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(feed.Entries))
	}
	if feed.Entries[0].ID != "whats-new-1" {
		t.Errorf("entry[0].ID = %q, want %q", feed.Entries[0].ID, "whats-new-1")
	}
	if feed.Entries[0].Link != "https://aws.amazon.com/about-aws/whats-new/2025/08/s3-storage-class/" {
		t.Errorf("entry[0].Link = %q", feed.Entries[0].Link)
	}
	if feed.Entries[0].Published.IsZero() {
		t.Error("entry[0].Published should not be zero")
	}
}

func TestParseFeed_RSSGMTDate(t *testing.T) {
	xml := `<rss version="2.0"><channel><title>T</title>
	<item><title>Entry</title><link>https://example.com/1</link>
	<pubDate>Wed, 20 Aug 2025 17:30:00 GMT</pubDate></item>
	</channel></rss>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	if feed.Entries[0].Published.IsZero() {
		t.Error("GMT-suffixed pubDate should still parse")
	}
}

func TestParseFeed_Atom(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>AWS News</title>
  <entry>
    <id>urn:entry:1</id>
    <title>First Announcement</title>
    <link href="https://example.com/1"/>
    <published>2025-08-20T12:00:00+00:00</published>
  </entry>
</feed>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	if feed.Title != "AWS News" {
		t.Errorf("Title = %q, want %q", feed.Title, "AWS News")
	}
	if len(feed.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(feed.Entries))
	}
	if feed.Entries[0].ID != "urn:entry:1" {
		t.Errorf("entry[0].ID = %q", feed.Entries[0].ID)
	}
	if feed.Entries[0].Published.IsZero() {
		t.Error("entry[0].Published should not be zero")
	}
}

func TestParseFeed_AtomMultipleLinks(t *testing.T) {
	xml := `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">
  <title>Multi-Link Feed</title>
  <entry>
    <id>entry-1</id><title>Entry</title>
    <link rel="self" href="https://example.com/self"/>
    <link rel="alternate" href="https://example.com/content"/>
    <published>2025-08-20T12:00:00Z</published>
  </entry></feed>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	// rel="alternate" wins over others.
	if feed.Entries[0].Link != "https://example.com/content" {
		t.Errorf("Link = %q, want alternate link", feed.Entries[0].Link)
	}
}

func TestParseFeed_AtomNoID(t *testing.T) {
	xml := `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">
  <title>No ID Feed</title>
  <entry>
    <title>Entry Without ID</title>
    <link href="https://example.com/fallback"/>
    <published>2025-08-20T12:00:00Z</published>
  </entry></feed>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	if feed.Entries[0].ID != "https://example.com/fallback" {
		t.Errorf("ID = %q, want link as fallback", feed.Entries[0].ID)
	}
}

func TestParseFeed_RSSNoGUID(t *testing.T) {
	xml := `<rss version="2.0"><channel><title>T</title>
	<item><title>Entry</title><link>https://example.com/1</link></item>
	</channel></rss>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	if feed.Entries[0].ID != "https://example.com/1" {
		t.Errorf("entry[0].ID = %q, want link as fallback", feed.Entries[0].ID)
	}
}

func TestParseFeed_EmptyFeed(t *testing.T) {
	xml := `<rss version="2.0"><channel><title>Empty</title></channel></rss>`

	feed, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error: %v", err)
	}
	if len(feed.Entries) != 0 {
		t.Errorf("got %d entries, want 0", len(feed.Entries))
	}
}

func TestParseFeed_Malformed(t *testing.T) {
	_, err := parseFeed([]byte("this is not xml at all"))
	if err == nil {
		t.Fatal("expected error for malformed input")
	}
	if !strings.Contains(err.Error(), "unrecognized feed format") {
		t.Errorf("error %q should mention unrecognized format", err.Error())
	}
}

func TestFetchFeed(t *testing.T) {
	rssXML := `<rss version="2.0"><channel><title>Test</title>
	<item><title>Entry 1</title><link>https://example.com/1</link>
	<guid>g1</guid><pubDate>Wed, 20 Aug 2025 12:00:00 +0000</pubDate></item>
	</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); !strings.Contains(got, "application/rss+xml") {
			t.Errorf("Accept = %q, want rss+xml", got)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssXML))
	}))
	defer srv.Close()

	feed, err := fetchFeed(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("fetchFeed() error: %v", err)
	}
	if feed.Title != "Test" {
		t.Errorf("Title = %q, want %q", feed.Title, "Test")
	}
	if len(feed.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(feed.Entries))
	}
}

func TestFetchFeed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetchFeed(context.Background(), srv.Client(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error %q should mention HTTP 404", err.Error())
	}
}
