package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// VideoAnalyzer watches public YouTube videos, which Gemini accepts as file URIs.
type VideoAnalyzer struct {
	client *genai.Client
	model  string
}

func NewVideoAnalyzer(client *genai.Client, model string) *VideoAnalyzer {
	return &VideoAnalyzer{client: client, model: model}
}

func (v *VideoAnalyzer) AnalyzeVideo(ctx context.Context, videoURL, question string) (string, error) {
	prompt := "Describe what is shown and said in this video, including any on-screen text and counts of notable objects."
	if question != "" {
		prompt += " Focus on this question: " + question
	}

	parts := []*genai.Part{
		genai.NewPartFromURI(videoURL, "video/mp4"),
		genai.NewPartFromText(prompt),
	}
	resp, err := v.client.Models.GenerateContent(ctx, v.model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", classifyError("analyze video", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: analyze video: empty response")
	}
	return text, nil
}
