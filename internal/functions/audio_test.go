package functions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	mimeType string
	language string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, mimeType, language string) (string, error) {
	f.mimeType = mimeType
	f.language = language
	return "strawberries, sugar", nil
}

func TestTranscribeAudio(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))

	tr := &fakeTranscriber{}
	decl := CreateTranscribeAudioFunctionDeclaration(tr)

	out, err := decl.Call(context.Background(), map[string]any{"file_path": path, "language": "en-US"})
	require.NoError(t, err)
	assert.Equal(t, "Transcribed text: 'strawberries, sugar'", out)
	assert.Equal(t, "audio/mpeg", tr.mimeType)
	assert.Equal(t, "en-US", tr.language)

	doc := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))
	_, err = decl.Call(context.Background(), map[string]any{"file_path": doc})
	assert.ErrorContains(t, err, "unsupported audio format")
}
