package functions

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/tools"
)

const albumPage = `<html><head><title>Mercedes Sosa discography</title><script>var x = 1;</script></head>
<body><h1>Studio albums</h1><p>Mercedes Sosa published several studio albums between 2000 and 2009.</p></body></html>`

func TestPageFetcherConvertsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, albumPage)
	}))
	defer srv.Close()

	page, err := NewPageFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Mercedes Sosa discography", page.Title)
	assert.Contains(t, page.Markdown, "# Studio albums")
	assert.Contains(t, page.Markdown, "several studio albums")
	assert.NotContains(t, page.Markdown, "var x")

	_, err = NewPageFetcher(nil).Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestVisitWebpageThenRetrieveKnowledge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, albumPage)
	}))
	defer srv.Close()

	kb := knowledge.New(knowledge.NewMemoryStore(), knowledge.HashEmbedder{})
	registry, err := tools.New([]*tools.FunctionDeclaration{
		CreateVisitWebpageFunctionDeclaration(NewPageFetcher(srv.Client()), kb),
		CreateRetrieveKnowledgeFunctionDeclaration(kb, 0.5),
	})
	require.NoError(t, err)

	ctx := context.Background()
	res := registry.Dispatch(ctx, model.ToolCall{ID: "1", Name: "visit_webpage", Arguments: `{"url":"` + srv.URL + `"}`})
	require.True(t, res.OK(), res.Content())
	assert.Contains(t, res.Content(), "successfully visited")

	res = registry.Dispatch(ctx, model.ToolCall{ID: "2", Name: "retrieve_knowledge", Arguments: `{"query":"Mercedes Sosa studio albums","distance_threshold":0.9}`})
	require.True(t, res.OK(), res.Content())
	assert.Contains(t, res.Content(), "Mercedes Sosa published several studio albums")
	assert.Contains(t, res.Content(), srv.URL)

	res = registry.Dispatch(ctx, model.ToolCall{ID: "3", Name: "retrieve_knowledge", Arguments: `{"query":"quantum chromodynamics","distance_threshold":0.1}`})
	require.True(t, res.OK(), res.Content())
	assert.Contains(t, res.Content(), "No relevant knowledge found")
}

func TestVisitWebpageInlineWithoutKnowledge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, strings.Repeat("a", maxInlineOutput+10))
	}))
	defer srv.Close()

	decl := CreateVisitWebpageFunctionDeclaration(NewPageFetcher(srv.Client()), nil)
	out, err := decl.Call(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.(string), "_This content has been truncated._"))
}

func TestPageFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewPageFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
}
