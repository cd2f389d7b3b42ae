package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sea-travel-search/models"
)

// ContentFetcher scrapes a travel blog's search page for destination
// articles. There is no parsing model, just targeted regexes; failures are
// soft and surface as an error the chat tool reports back to the model.
type ContentFetcher struct {
	baseURL string
	client  *http.Client
}

// NewContentFetcher constructs the travel content fetcher
func NewContentFetcher(baseURL string) *ContentFetcher {
	return &ContentFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var (
	articleLinkRe = regexp.MustCompile(`(?s)<h2[^>]*class="[^"]*entry-title[^"]*"[^>]*>\s*<a[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	snippetRe     = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*entry-summary[^"]*"[^>]*>(.*?)</div>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

// SearchArticles fetches the blog search page for a query and extracts up
// to limit articles
func (f *ContentFetcher) SearchArticles(ctx context.Context, query string, limit int) ([]models.Article, error) {
	endpoint := f.baseURL + "/?s=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; sea-travel-search)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching travel content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("travel content returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	return extractArticles(string(body), limit), nil
}

// extractArticles pulls article titles, links and snippets out of the page
func extractArticles(page string, limit int) []models.Article {
	links := articleLinkRe.FindAllStringSubmatch(page, -1)
	snippets := snippetRe.FindAllStringSubmatch(page, -1)

	articles := make([]models.Article, 0, len(links))
	for i, m := range links {
		if limit > 0 && len(articles) >= limit {
			break
		}
		article := models.Article{
			URL:   m[1],
			Title: cleanHTMLText(m[2]),
		}
		if i < len(snippets) {
			article.Snippet = cleanHTMLText(snippets[i][1])
		}
		if article.Title == "" || article.URL == "" {
			continue
		}
		articles = append(articles, article)
	}
	return articles
}

func cleanHTMLText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&#8217;", "'")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.Join(strings.Fields(s), " ")
}
