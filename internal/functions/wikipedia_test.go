package functions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWikipedia(t *testing.T) (*Wikipedia, *[]string) {
	t.Helper()
	var paths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch q.Get("action") {
		case "query":
			if q.Get("srsearch") == "nothing at all" {
				_, _ = w.Write([]byte(`{"query":{"search":[]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"query":{"search":[{"title":"Mercedes Sosa"},{"title":"Cantora"}]}}`))
		case "parse":
			assert.Equal(t, "Mercedes Sosa", q.Get("page"))
			if q.Get("prop") == "sections" {
				_ = json.NewEncoder(w).Encode(map[string]any{"parse": map[string]any{
					"title": "Mercedes Sosa",
					"sections": []map[string]string{
						{"index": "1", "line": "Biography"},
						{"index": "2", "line": "<i>Discography</i>"},
					},
				}})
				return
			}
			text := "<p><b>Mercedes Sosa</b> was an Argentine singer.</p>"
			if q.Get("section") == "2" {
				text = "<h2>Discography</h2><ul><li>Cantora 1 (2009)</li></ul>"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"parse": map[string]any{"title": "Mercedes Sosa", "text": text}})
		default:
			http.Error(w, "bad action", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	wiki := NewWikipedia(srv.Client())
	wiki.endpoint = func(language string) string {
		return srv.URL + "/" + language + "/api.php"
	}
	return wiki, &paths
}

func TestWikipediaLookupSummary(t *testing.T) {
	wiki, paths := newTestWikipedia(t)

	text, err := wiki.Lookup(context.Background(), "mercedes sosa", "es", "")
	require.NoError(t, err)
	assert.Contains(t, text, "# Mercedes Sosa")
	assert.Contains(t, text, "**Mercedes Sosa** was an Argentine singer.")
	assert.Contains(t, text, "Other matching pages: Cantora")
	assert.Equal(t, "/es/api.php", (*paths)[0])
}

func TestWikipediaLookupSection(t *testing.T) {
	wiki, _ := newTestWikipedia(t)

	text, err := wiki.Lookup(context.Background(), "mercedes sosa", "", "discography")
	require.NoError(t, err)
	assert.Contains(t, text, "Cantora 1 (2009)")

	text, err = wiki.Lookup(context.Background(), "mercedes sosa", "en", "Awards")
	require.NoError(t, err)
	assert.Contains(t, text, "Section 'Awards' not found")
	assert.Contains(t, text, "Biography, Discography")
}

func TestWikipediaLookupNoResults(t *testing.T) {
	wiki, _ := newTestWikipedia(t)

	text, err := wiki.Lookup(context.Background(), "nothing at all", "en", "")
	require.NoError(t, err)
	assert.Equal(t, "No results found. Please refine your query.", text)
}

func TestWikipediaToolRejectsBadLanguage(t *testing.T) {
	wiki, _ := newTestWikipedia(t)
	decl := CreateWikipediaSearchFunctionDeclaration(wiki)

	_, err := decl.Call(context.Background(), map[string]any{"query": "x", "language": "evil.com/"})
	assert.Error(t, err)
}
