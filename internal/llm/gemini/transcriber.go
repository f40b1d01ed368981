package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Transcriber turns audio into text by sending it inline to a multimodal model.
type Transcriber struct {
	client *genai.Client
	model  string
}

func NewTranscriber(client *genai.Client, model string) *Transcriber {
	return &Transcriber{client: client, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	prompt := "Transcribe this audio verbatim. Output only the transcription."
	if language != "" {
		prompt += fmt.Sprintf(" The spoken language is %q.", language)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(audio, mimeType),
	}
	resp, err := t.client.Models.GenerateContent(ctx, t.model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", classifyError("transcribe", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: transcribe: empty transcription")
	}
	return text, nil
}
