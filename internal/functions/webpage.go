package functions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/tools"
)

const (
	maxPageBytes    = 5 << 20
	maxInlineOutput = 20000
)

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Page is a fetched web page rendered as markdown.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// PageFetcher downloads pages and renders HTML as markdown.
type PageFetcher struct {
	client *http.Client
	conv   *converter.Converter
}

func NewPageFetcher(client *http.Client) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PageFetcher{
		client: client,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("unsupported url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %q: http %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", rawURL, err)
	}

	page := &Page{URL: rawURL}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		page.Markdown = string(body)
		return page, nil
	}

	if m := titlePattern.FindSubmatch(body); m != nil {
		page.Title = cleanHTML(string(m[1]))
	}
	page.Markdown, err = f.conv.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", rawURL, err)
	}
	return page, nil
}

// CreateVisitWebpageFunctionDeclaration stores the visited page in kb when
// given, so it can later be queried with retrieve_knowledge. Without kb the
// markdown is returned inline.
func CreateVisitWebpageFunctionDeclaration(fetcher *PageFetcher, kb *knowledge.Base) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name: "visit_webpage",
		Description: "Visits a webpage at the given URL and reads its content as markdown. " +
			"Use it on URLs found by a search; the content is stored in the knowledge base for retrieve_knowledge.",
		Parameters: []tools.Parameter{
			{Name: "url", Type: tools.TypeString, Description: "The URL of the webpage to visit.", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			page, err := fetcher.Fetch(ctx, tools.String(args, "url"))
			if err != nil {
				return nil, fmt.Errorf("visit_webpage: %w", err)
			}
			if strings.TrimSpace(page.Markdown) == "" {
				return nil, errors.New("visit_webpage: the page has no readable content")
			}

			if kb == nil {
				return truncate(page.Markdown, maxInlineOutput), nil
			}

			added, err := kb.Ingest(ctx, knowledge.Document{
				Title:    page.Title,
				URL:      page.URL,
				Source:   page.URL,
				Text:     page.Markdown,
				Markdown: true,
			})
			if err != nil {
				return nil, fmt.Errorf("visit_webpage: %w", err)
			}
			return fmt.Sprintf("The webpage %q has been successfully visited: content has been vectorized and stored in the knowledge base (%d new chunks). Use retrieve_knowledge to query it.", page.Title, added), nil
		},
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n..._This content has been truncated._"
}
