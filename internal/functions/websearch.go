package functions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/m2tx/benchagent/internal/tools"
)

const (
	duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"
	browserUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	resultLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	resultLinkPattern2   = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	resultSnippetPattern = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>([^<]+(?:<[^>]+>[^<]*</[^>]+>)*[^<]*)</td>`)
	tagPattern           = regexp.MustCompile(`<[^>]+>`)
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// DuckDuckGo scrapes the lite HTML interface. All instances share a 1 QPS limit.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	interval time.Duration
}

var duckDuckGoLimit struct {
	mu   sync.Mutex
	last time.Time
}

func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &DuckDuckGo{client: client, endpoint: duckDuckGoLiteURL, interval: time.Second}
}

func (d *DuckDuckGo) wait(ctx context.Context) error {
	duckDuckGoLimit.mu.Lock()
	defer duckDuckGoLimit.mu.Unlock()

	if wait := time.Until(duckDuckGoLimit.last.Add(d.interval)); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	duckDuckGoLimit.last = time.Now()
	return nil
}

// Search returns at most maxResults hits for query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if err := d.wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	var resp *http.Response
	delay := time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = d.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseSearchResults(string(body), maxResults), nil
}

func parseSearchResults(html string, maxResults int) []SearchResult {
	matches := resultLinkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = resultLinkPattern2.FindAllStringSubmatch(html, -1)
	}
	snippets := resultSnippetPattern.FindAllStringSubmatch(html, -1)

	var results []SearchResult
	for i, m := range matches {
		link := strings.TrimSpace(m[1])
		title := cleanHTML(m[2])
		if link == "" || title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}
		results = append(results, SearchResult{Title: title, URL: link, Snippet: snippet})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results
}

func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
		"&nbsp;", " ",
	).Replace(s)
	return strings.TrimSpace(s)
}

func CreateWebSearchFunctionDeclaration(searcher *DuckDuckGo) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "web_search",
		Description: "Performs a web search based on the query and returns the top search results with their URLs.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The search query to perform.", Required: true},
			{Name: "max_results", Type: tools.TypeInteger, Description: "The maximum number of results to return.", Default: 3},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			maxResults, _ := tools.Int(args, "max_results")
			results, err := searcher.Search(ctx, tools.String(args, "query"), maxResults)
			if err != nil {
				return nil, fmt.Errorf("web_search: %w", err)
			}
			if len(results) == 0 {
				return nil, errors.New("no results found, try a less restrictive or shorter query")
			}

			formatted := make([]string, 0, len(results))
			for _, r := range results {
				formatted = append(formatted, fmt.Sprintf("[%s](%s)\n%s", r.Title, r.URL, r.Snippet))
			}
			return "## Search Results\n\n" + strings.Join(formatted, "\n\n"), nil
		},
	}
}
