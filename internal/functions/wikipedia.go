package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/m2tx/benchagent/internal/tools"
)

const wikipediaUserAgent = "benchagent-wikipedia/1.0"

var wikiLanguagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]+)?$`)

// Wikipedia reads articles through the MediaWiki action API.
type Wikipedia struct {
	client *http.Client
	conv   *converter.Converter
	// endpoint returns the api.php URL of a language edition.
	endpoint func(language string) string
}

func NewWikipedia(client *http.Client) *Wikipedia {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Wikipedia{
		client: client,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		endpoint: func(language string) string {
			return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
		},
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiParseResponse struct {
	Parse struct {
		Title    string `json:"title"`
		Text     string `json:"text"`
		Sections []struct {
			Index string `json:"index"`
			Line  string `json:"line"`
		} `json:"sections"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (w *Wikipedia) get(ctx context.Context, language string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint(language)+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (w *Wikipedia) search(ctx context.Context, language, query string) ([]string, error) {
	var resp wikiSearchResponse
	err := w.get(ctx, language, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"5"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (w *Wikipedia) parse(ctx context.Context, language, title string, params url.Values) (*wikiParseResponse, error) {
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("redirects", "1")

	var resp wikiParseResponse
	if err := w.get(ctx, language, params, &resp); err != nil {
		return nil, fmt.Errorf("parse %q: %w", title, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("parse %q: %s: %s", title, resp.Error.Code, resp.Error.Info)
	}
	return &resp, nil
}

// Lookup returns the lead section of the best matching article, or the named
// section when section is not empty.
func (w *Wikipedia) Lookup(ctx context.Context, query, language, section string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("query is empty")
	}
	if language == "" {
		language = "en"
	}

	titles, err := w.search(ctx, language, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "No results found. Please refine your query.", nil
	}
	title := titles[0]

	index := "0"
	if section != "" {
		page, err := w.parse(ctx, language, title, url.Values{"prop": {"sections"}})
		if err != nil {
			return "", err
		}

		index = ""
		available := make([]string, 0, len(page.Parse.Sections))
		for _, s := range page.Parse.Sections {
			line := cleanHTML(s.Line)
			available = append(available, line)
			if index == "" && strings.EqualFold(line, strings.TrimSpace(section)) {
				index = s.Index
			}
		}
		if index == "" {
			return fmt.Sprintf("Section '%s' not found in the page %q. Available sections: %s", section, title, strings.Join(available, ", ")), nil
		}
	}

	page, err := w.parse(ctx, language, title, url.Values{"prop": {"text"}, "section": {index}})
	if err != nil {
		return "", err
	}

	markdown, err := w.conv.ConvertString(page.Parse.Text)
	if err != nil {
		return "", fmt.Errorf("convert %q: %w", title, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s", page.Parse.Title, strings.TrimSpace(markdown))
	if len(titles) > 1 {
		fmt.Fprintf(&b, "\n\nOther matching pages: %s", strings.Join(titles[1:], ", "))
	}
	return b.String(), nil
}

func CreateWikipediaSearchFunctionDeclaration(w *Wikipedia) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name: "wikipedia_search",
		Description: "Searches Wikipedia for a question or topic and returns the summary of the best matching page, " +
			"or one of its sections.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The question or topic to search for on Wikipedia.", Required: true},
			{Name: "language", Type: tools.TypeString, Description: "The language edition to search, e.g. 'en' or 'fr'.", Default: "en"},
			{Name: "section", Type: tools.TypeString, Description: "The title of a specific section to extract from the page."},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			language := tools.String(args, "language")
			if !wikiLanguagePattern.MatchString(language) {
				return nil, fmt.Errorf("wikipedia_search: invalid language %q", language)
			}

			text, err := w.Lookup(ctx, tools.String(args, "query"), language, tools.String(args, "section"))
			if err != nil {
				return nil, fmt.Errorf("wikipedia_search: %w", err)
			}
			return text, nil
		},
	}
}
