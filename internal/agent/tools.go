package agent

import "github.com/newsroom-tools/newswire/internal/llm"

// Tools returns the static tool descriptors offered to the model on
// every round trip. The schemas mirror what the news server implements;
// descriptions are written for the model, not for humans.
func Tools() []llm.Tool {
	return []llm.Tool{
		{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        "get_aws_news",
				Description: "Returns a list of AWS news articles with announcements of new products, services, and capabilities for the specified AWS topic/service. You can filter on news type (news or blogs) and optionally specify a since date.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic": map[string]any{
							"type":        "string",
							"description": "The AWS service or topic to get news about (e.g., 's3', 'ec2', 'lambda')",
						},
						"news_type": map[string]any{
							"type":        "string",
							"enum":        []string{"all", "news", "blogs"},
							"default":     "all",
							"description": "Filter by news type: 'all', 'news', or 'blogs'",
						},
						"include_regional_expansions": map[string]any{
							"type":        "boolean",
							"default":     false,
							"description": "Include regional expansion news",
						},
						"number_of_results": map[string]any{
							"type":        "integer",
							"default":     20,
							"description": "Number of results to return",
						},
						"since_date": map[string]any{
							"type":        "string",
							"description": "ISO 8601 date string to filter news since a specific date (e.g., '2025-01-01T00:00:00Z')",
						},
					},
					"required": []string{"topic"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        "get_aws_announcements",
				Description: "Returns only official AWS News announcements (article_type=news) for the specified topic/service. Optionally include regional expansions and since date.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic": map[string]any{
							"type":        "string",
							"description": "AWS service or topic (e.g., 's3', 'ec2', 'lambda')",
						},
						"include_regional_expansions": map[string]any{
							"type":        "boolean",
							"default":     false,
							"description": "Include regional expansion announcements",
						},
						"number_of_results": map[string]any{
							"type":        "integer",
							"default":     20,
							"description": "Number of results to return",
						},
						"since_date": map[string]any{
							"type":        "string",
							"description": "ISO 8601 date string filter (e.g., '2025-01-01T00:00:00Z')",
						},
					},
					"required": []string{"topic"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        "get_aws_blogs",
				Description: "Returns only AWS Blog posts (article_type=blog) for the specified topic/service.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic": map[string]any{
							"type":        "string",
							"description": "AWS service or topic (e.g., 's3', 'ec2', 'lambda')",
						},
						"number_of_results": map[string]any{
							"type":        "integer",
							"default":     20,
							"description": "Number of results to return",
						},
						"since_date": map[string]any{
							"type":        "string",
							"description": "ISO 8601 date string filter (e.g., '2025-01-01T00:00:00Z')",
						},
					},
					"required": []string{"topic"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        "get_aws_feed_news",
				Description: "Fetches the latest AWS announcements directly from the official AWS What's New RSS feed. This provides real-time access to the most recent announcements across all AWS services.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"max_articles": map[string]any{
							"type":        "integer",
							"default":     10,
							"description": "Maximum number of articles to return",
						},
						"search_keywords": map[string]any{
							"type":        "string",
							"description": "Optional keywords to filter the feed results",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        "read_article",
				Description: "Fetches a news article or blog post by URL and returns its extracted text. Use this to answer questions about the contents of a specific announcement or post.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url": map[string]any{
							"type":        "string",
							"description": "URL of the article to fetch and extract content from",
						},
						"max_chars": map[string]any{
							"type":        "integer",
							"description": "Maximum characters of extracted text to return",
						},
					},
					"required": []string{"url"},
				},
			},
		},
	}
}
