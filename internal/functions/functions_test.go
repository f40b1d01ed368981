package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/tools"
)

func TestDefaultToolSet(t *testing.T) {
	registry, err := tools.New(Default(Deps{
		Knowledge:   knowledge.New(knowledge.NewMemoryStore(), knowledge.HashEmbedder{}),
		Transcriber: &fakeTranscriber{},
		YouTube:     NewYouTube(nil, "key"),
		CodeRunner:  &fakeRunner{},
		ChessEngine: NewChessEngine(""),
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"web_search", "visit_webpage", "retrieve_knowledge", "wikipedia_search",
		"analyze_document", "analyze_excel", "load_file", "execute_code",
		"transcribe_audio", "analyze_youtube_video", "analyze_chess", "calculator", "reverse_text", "classify_foods",
	}, registry.Names())
}

func TestDefaultToolSetWithoutOptionalDeps(t *testing.T) {
	registry, err := tools.New(Default(Deps{}))
	require.NoError(t, err)

	names := registry.Names()
	assert.NotContains(t, names, "retrieve_knowledge")
	assert.NotContains(t, names, "execute_code")
	assert.NotContains(t, names, "transcribe_audio")
	assert.NotContains(t, names, "analyze_chess")
	assert.NotContains(t, names, "analyze_youtube_video")
	assert.Contains(t, names, "visit_webpage")
}
