package functions

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/tools"
)

const liteResultsHTML = `<table>
<tr><td><a rel="nofollow" href="https://go.dev/" class='result-link'>The Go Programming Language</a></td></tr>
<tr><td class='result-snippet'>Go is an <b>open source</b> programming language &amp; more.</td></tr>
<tr><td><a rel="nofollow" href="https://en.wikipedia.org/wiki/Go" class='result-link'>Go - Wikipedia</a></td></tr>
<tr><td class='result-snippet'>Go is a statically typed language.</td></tr>
</table>`

func TestParseSearchResults(t *testing.T) {
	results := parseSearchResults(liteResultsHTML, 5)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{
		Title:   "The Go Programming Language",
		URL:     "https://go.dev/",
		Snippet: "Go is an open source programming language & more.",
	}, results[0])

	assert.Len(t, parseSearchResults(liteResultsHTML, 1), 1)
	assert.Empty(t, parseSearchResults("<html></html>", 3))
}

func newTestDuckDuckGo(t *testing.T, handler http.HandlerFunc) *DuckDuckGo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDuckDuckGo(srv.Client())
	d.endpoint = srv.URL
	d.interval = 0
	return d
}

func TestWebSearchTool(t *testing.T) {
	var query string
	d := newTestDuckDuckGo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		query = form.Get("q")
		_, _ = io.WriteString(w, liteResultsHTML)
	})

	registry, err := tools.New([]*tools.FunctionDeclaration{CreateWebSearchFunctionDeclaration(d)})
	require.NoError(t, err)

	res := registry.Dispatch(context.Background(), model.ToolCall{ID: "1", Name: "web_search", Arguments: `{"query":"golang"}`})
	require.True(t, res.OK(), res.Content())
	assert.Equal(t, "golang", query)
	assert.Contains(t, res.Content(), "## Search Results")
	assert.Contains(t, res.Content(), "[The Go Programming Language](https://go.dev/)")
}

func TestWebSearchToolNoResults(t *testing.T) {
	d := newTestDuckDuckGo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html></html>")
	})

	registry, err := tools.New([]*tools.FunctionDeclaration{CreateWebSearchFunctionDeclaration(d)})
	require.NoError(t, err)

	res := registry.Dispatch(context.Background(), model.ToolCall{ID: "1", Name: "web_search", Arguments: `{"query":"nothing"}`})
	require.False(t, res.OK())
	assert.Equal(t, tools.FailureExecution, res.Failure.Kind)
	assert.Contains(t, res.Failure.Message, "no results found")
}
