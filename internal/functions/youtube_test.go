package functions

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=L1vXCYZAYYM":   "L1vXCYZAYYM",
		"https://youtube.com/watch?v=L1vXCYZAYYM&t=30s": "L1vXCYZAYYM",
		"https://youtu.be/L1vXCYZAYYM":                  "L1vXCYZAYYM",
		"https://www.youtube.com/shorts/L1vXCYZAYYM":    "L1vXCYZAYYM",
		"https://m.youtube.com/embed/L1vXCYZAYYM":       "L1vXCYZAYYM",
		"L1vXCYZAYYM":                                   "L1vXCYZAYYM",
	}
	for in, want := range tests {
		got, err := videoID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"https://vimeo.com/123", "https://www.youtube.com/watch?v=short", ""} {
		_, err := videoID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseISODuration(t *testing.T) {
	d, err := parseISODuration("PT1H2M3S")
	require.NoError(t, err)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, d)

	d, err = parseISODuration("PT45S")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	_, err = parseISODuration("1:02")
	assert.Error(t, err)
}

type fakeVideoAnalyzer struct {
	url string
	err error
}

func (f *fakeVideoAnalyzer) AnalyzeVideo(_ context.Context, videoURL, question string) (string, error) {
	f.url = videoURL
	if f.err != nil {
		return "", f.err
	}
	return "three birds on screen", nil
}

func newTestYouTube(t *testing.T) *YouTube {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snippet,contentDetails", r.URL.Query().Get("part"))
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		if r.URL.Query().Get("id") != "L1vXCYZAYYM" {
			_, _ = io.WriteString(w, `{"items":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"items":[{"snippet":{"title":"Penguin Chicks","channelTitle":"Nature","description":"Brave chicks."},"contentDetails":{"duration":"PT2M1S"}}]}`)
	}))
	t.Cleanup(srv.Close)

	yt := NewYouTube(srv.Client(), "key")
	yt.endpoint = srv.URL
	return yt
}

func TestAnalyzeYoutubeVideo(t *testing.T) {
	visual := &fakeVideoAnalyzer{}
	decl := CreateAnalyzeYoutubeVideoFunctionDeclaration(newTestYouTube(t), visual)

	out, err := decl.Call(context.Background(), map[string]any{"video_url": "https://youtu.be/L1vXCYZAYYM"})
	require.NoError(t, err)
	assert.Equal(t, "Title: Penguin Chicks\nChannel: Nature\nDescription: Brave chicks.\nDuration: 121 seconds\n"+
		"Visual Analysis: three birds on screen", out)
	assert.Equal(t, "https://www.youtube.com/watch?v=L1vXCYZAYYM", visual.url)
}

func TestAnalyzeYoutubeVideoPartialSources(t *testing.T) {
	visual := &fakeVideoAnalyzer{err: errors.New("quota")}
	decl := CreateAnalyzeYoutubeVideoFunctionDeclaration(newTestYouTube(t), visual)

	out, err := decl.Call(context.Background(), map[string]any{"video_url": "https://youtu.be/L1vXCYZAYYM"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Visual Analysis")

	_, err = decl.Call(context.Background(), map[string]any{"video_url": "https://youtu.be/AAAAAAAAAAA"})
	assert.ErrorContains(t, err, "not found")
	assert.ErrorContains(t, err, "quota")

	_, err = CreateAnalyzeYoutubeVideoFunctionDeclaration(nil, nil).Call(context.Background(), map[string]any{"video_url": "L1vXCYZAYYM"})
	assert.ErrorContains(t, err, "no video source")
}
