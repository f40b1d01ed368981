package functions

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/m2tx/benchagent/internal/tools"
)

const maxAudioBytes = 20 << 20

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error)
}

var audioMimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"ogg":  "audio/ogg",
	"aac":  "audio/aac",
}

func audioMimeType(path string) string {
	if mt, ok := audioMimeTypes[extension(path)]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(mt, "audio/") {
		return mt
	}
	return ""
}

func CreateTranscribeAudioFunctionDeclaration(t Transcriber) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "transcribe_audio",
		Description: "Transcribes the content of an audio file (mp3, wav, m4a, flac, ogg) into text.",
		Parameters: []tools.Parameter{
			{Name: "file_path", Type: tools.TypeString, Description: "The path to the audio file to transcribe.", Required: true},
			{Name: "language", Type: tools.TypeString, Description: "The language of the audio, e.g. 'en-US'. Detected automatically when omitted."},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.String(args, "file_path")
			if err := checkFile(path); err != nil {
				return nil, err
			}

			mimeType := audioMimeType(path)
			if mimeType == "" {
				return nil, fmt.Errorf("unsupported audio format: %s", extension(path))
			}

			info, err := os.Stat(path)
			if err != nil {
				return nil, err
			}
			if info.Size() > maxAudioBytes {
				return nil, fmt.Errorf("audio file is too large: %d bytes", info.Size())
			}

			audio, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}

			text, err := t.Transcribe(ctx, audio, mimeType, tools.String(args, "language"))
			if err != nil {
				return nil, fmt.Errorf("transcribe_audio: %w", err)
			}
			return fmt.Sprintf("Transcribed text: '%s'", text), nil
		},
	}
}
