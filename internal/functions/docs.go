package functions

import (
	"context"
	"fmt"

	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/tools"
)

type knowledgeResult struct {
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
	Source  string  `json:"source,omitempty"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// CreateRetrieveKnowledgeFunctionDeclaration queries the shared knowledge
// base filled by visit_webpage and the indexed documents folder. The distance
// of a result is 1 minus its cosine similarity.
func CreateRetrieveKnowledgeFunctionDeclaration(kb *knowledge.Base, defaultThreshold float64) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "retrieve_knowledge",
		Description: "Retrieves knowledge from the knowledge base (visited webpages and indexed documents) with a provided query.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The query to search for in the knowledge base.", Required: true},
			{Name: "n_results", Type: tools.TypeInteger, Description: "The number of results to return.", Default: 5},
			{Name: "distance_threshold", Type: tools.TypeNumber, Description: "The maximum distance of results, between 0 and 1.", Default: defaultThreshold},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			n, _ := tools.Int(args, "n_results")
			threshold, _ := tools.Float(args, "distance_threshold")

			matches, err := kb.Search(ctx, tools.String(args, "query"), n, float32(1-threshold))
			if err != nil {
				return nil, fmt.Errorf("retrieve_knowledge: %w", err)
			}
			if len(matches) == 0 {
				return "No relevant knowledge found. Visit a webpage first or relax distance_threshold.", nil
			}

			results := make([]knowledgeResult, 0, len(matches))
			for _, m := range matches {
				results = append(results, knowledgeResult{
					Title:   m.Title,
					URL:     m.URL,
					Source:  m.Source,
					Content: m.Text,
					Score:   m.Score,
				})
			}
			return map[string]any{"results": results}, nil
		},
	}
}
