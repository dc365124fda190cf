package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/newsroom-tools/newswire/internal/httpkit"
)

// maxArticleBytes caps how much of an article page is downloaded.
const maxArticleBytes int64 = 5 * 1024 * 1024

// defaultMaxChars limits extracted article text handed back to the model.
const defaultMaxChars = 50000

// Entry sources, stamped when feeds merge. Regional expansion filtering
// only ever applies to What's New entries.
const (
	sourceWhatsNew = "whats-new"
	sourceBlog     = "blog"
)

// Config configures a Service. Empty URLs fall back to the official
// AWS feeds.
type Config struct {
	WhatsNewFeedURL string
	BlogFeedURL     string
	Logger          *slog.Logger
}

// Service answers the AWS news tool calls. All list-style results render
// as "- title\n  link" blocks joined by blank lines, or "No results".
type Service struct {
	whatsNewURL string
	blogURL     string
	http        *http.Client
	logger      *slog.Logger
}

// NewService creates a Service. Feed and article fetches share one HTTP
// client with retries, since everything here is an idempotent GET.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	whatsNew := cfg.WhatsNewFeedURL
	if whatsNew == "" {
		whatsNew = DefaultWhatsNewFeedURL
	}
	blog := cfg.BlogFeedURL
	if blog == "" {
		blog = DefaultBlogFeedURL
	}
	return &Service{
		whatsNewURL: whatsNew,
		blogURL:     blog,
		http: httpkit.NewClient(
			httpkit.WithTimeout(30*time.Second),
			httpkit.WithRetry(2, time.Second),
			httpkit.WithLogger(logger),
		),
		logger: logger.With("component", "news"),
	}
}

// GetFeedNews returns the newest What's New entries. The max_articles
// window applies before the keyword filter: keywords narrow the newest N
// entries rather than searching the whole feed.
func (s *Service) GetFeedNews(ctx context.Context, args map[string]any) (string, error) {
	maxArticles := 10
	if n := intArg(args, "max_articles"); n > 0 {
		maxArticles = n
	}
	keywords := stringArg(args, "search_keywords")

	feed, err := fetchFeed(ctx, s.http, s.whatsNewURL)
	if err != nil {
		return "", fmt.Errorf("get_aws_feed_news: %w", err)
	}

	entries := feed.Entries
	if len(entries) > maxArticles {
		entries = entries[:maxArticles]
	}

	var results []string
	for _, e := range entries {
		if keywords != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(keywords)) {
			continue
		}
		results = append(results, formatEntry(e))
	}

	s.logger.Info("feed news served", "considered", len(entries), "returned", len(results))
	return joinOrNoResults(results), nil
}

// GetNews returns What's New and Blog entries matching a topic.
func (s *Service) GetNews(ctx context.Context, args map[string]any) (string, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("get_aws_news: topic is required")
	}

	newsType := stringArg(args, "news_type")
	if newsType == "" {
		newsType = "all"
	}
	switch newsType {
	case "all", "news", "blogs":
	default:
		return "", fmt.Errorf("get_aws_news: invalid news_type %q (valid: all, news, blogs)", newsType)
	}

	since, err := sinceArg(args)
	if err != nil {
		return "", fmt.Errorf("get_aws_news: %w", err)
	}

	entries, err := s.collect(ctx, newsType)
	if err != nil {
		return "", fmt.Errorf("get_aws_news: %w", err)
	}

	matched := filterEntries(entries, filter{
		topic:           topic,
		since:           since,
		excludeRegional: !boolArg(args, "include_regional_expansions"),
		limit:           limitArg(args),
	})

	s.logger.Info("news served", "topic", topic, "news_type", newsType, "returned", len(matched))
	return joinOrNoResults(formatEntries(matched)), nil
}

// GetAnnouncements returns only official What's New announcements for a
// topic.
func (s *Service) GetAnnouncements(ctx context.Context, args map[string]any) (string, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("get_aws_announcements: topic is required")
	}

	since, err := sinceArg(args)
	if err != nil {
		return "", fmt.Errorf("get_aws_announcements: %w", err)
	}

	entries, err := s.collect(ctx, "news")
	if err != nil {
		return "", fmt.Errorf("get_aws_announcements: %w", err)
	}

	matched := filterEntries(entries, filter{
		topic:           topic,
		since:           since,
		excludeRegional: !boolArg(args, "include_regional_expansions"),
		limit:           limitArg(args),
	})

	s.logger.Info("announcements served", "topic", topic, "returned", len(matched))
	return joinOrNoResults(formatEntries(matched)), nil
}

// GetBlogs returns only Blog posts for a topic. Blog posts are never
// treated as regional expansions.
func (s *Service) GetBlogs(ctx context.Context, args map[string]any) (string, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("get_aws_blogs: topic is required")
	}

	since, err := sinceArg(args)
	if err != nil {
		return "", fmt.Errorf("get_aws_blogs: %w", err)
	}

	entries, err := s.collect(ctx, "blogs")
	if err != nil {
		return "", fmt.Errorf("get_aws_blogs: %w", err)
	}

	matched := filterEntries(entries, filter{
		topic: topic,
		since: since,
		limit: limitArg(args),
	})

	s.logger.Info("blogs served", "topic", topic, "returned", len(matched))
	return joinOrNoResults(formatEntries(matched)), nil
}

// ReadArticle fetches one page and returns its extracted title and text.
func (s *Service) ReadArticle(ctx context.Context, args map[string]any) (string, error) {
	rawURL := stringArg(args, "url")
	if rawURL == "" {
		return "", fmt.Errorf("read_article: url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	maxChars := defaultMaxChars
	if n := intArg(args, "max_chars"); n > 0 {
		maxChars = n
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("read_article: invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("read_article: request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("read_article: page returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return "", fmt.Errorf("read_article: read response: %w", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	var title, content string
	switch {
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml"):
		title, content = extractPage(string(body))
	case utf8.Valid(body):
		content = string(body)
	default:
		return "", fmt.Errorf("read_article: %s is not a text page (%s)", rawURL, contentType)
	}

	if len(content) > maxChars {
		content = truncateUTF8(content, maxChars) + "\n\n[truncated]"
	}

	s.logger.Info("article read", "url", rawURL, "chars", len(content))
	if title != "" {
		return fmt.Sprintf("Title: %s\n\n%s", title, content), nil
	}
	return content, nil
}

// collect fetches the feeds behind a news_type and merges their entries
// newest first. When "all" is requested a single unreachable feed is
// tolerated; the call fails only when nothing could be fetched.
func (s *Service) collect(ctx context.Context, newsType string) ([]Entry, error) {
	type source struct {
		name string
		url  string
	}
	var sources []source
	if newsType == "all" || newsType == "news" {
		sources = append(sources, source{sourceWhatsNew, s.whatsNewURL})
	}
	if newsType == "all" || newsType == "blogs" {
		sources = append(sources, source{sourceBlog, s.blogURL})
	}

	var entries []Entry
	var firstErr error
	fetched := 0
	for _, src := range sources {
		feed, err := fetchFeed(ctx, s.http, src.url)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s feed: %w", src.name, err)
			}
			s.logger.Warn("feed unavailable", "feed", src.name, "error", err)
			continue
		}
		fetched++
		for i := range feed.Entries {
			feed.Entries[i].Source = src.name
		}
		entries = append(entries, feed.Entries...)
	}
	if fetched == 0 {
		return nil, firstErr
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Published.After(entries[j].Published)
	})
	return entries, nil
}

// filter narrows merged feed entries. The limit applies to matches, not
// to entries considered.
type filter struct {
	topic           string
	since           time.Time
	excludeRegional bool
	limit           int
}

func filterEntries(entries []Entry, f filter) []Entry {
	topic := strings.ToLower(f.topic)
	var out []Entry
	for _, e := range entries {
		if topic != "" && !strings.Contains(strings.ToLower(e.Title), topic) {
			continue
		}
		if !f.since.IsZero() && e.Published.Before(f.since) {
			continue
		}
		if f.excludeRegional && e.Source != sourceBlog && isRegionalExpansion(e.Title) {
			continue
		}
		out = append(out, e)
		if f.limit > 0 && len(out) >= f.limit {
			break
		}
	}
	return out
}

// regionalPhrases mark What's New titles that only announce an existing
// capability reaching more regions.
var regionalPhrases = []string{
	"now available in",
	"now generally available in",
	"available in additional",
	"additional region",
	"expands to",
}

func isRegionalExpansion(title string) bool {
	t := strings.ToLower(title)
	for _, phrase := range regionalPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

func formatEntry(e Entry) string {
	return fmt.Sprintf("- %s\n  %s", e.Title, e.Link)
}

func formatEntries(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, formatEntry(e))
	}
	return out
}

func joinOrNoResults(results []string) string {
	if len(results) == 0 {
		return "No results"
	}
	return strings.Join(results, "\n\n")
}

// --- Argument extraction helpers ---

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string) int {
	v, _ := args[key].(float64)
	return int(v)
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func limitArg(args map[string]any) int {
	if n := intArg(args, "number_of_results"); n > 0 {
		return n
	}
	return 20
}

// sinceArg parses the optional since_date argument. RFC 3339 is the
// documented form; bare dates are accepted at midnight UTC because models
// pass them anyway.
func sinceArg(args map[string]any) (time.Time, error) {
	raw := stringArg(args, "since_date")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", raw)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since_date %q (expected ISO 8601, e.g. 2025-01-01T00:00:00Z)", raw)
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
