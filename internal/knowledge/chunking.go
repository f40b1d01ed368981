package knowledge

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SplitSentences cuts text into chunks of roughly size bytes, extending each
// cut to the end of the sentence it falls in.
func SplitSentences(content string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	for start := 0; start < len(content); {
		end := len(content)
		if start+size < len(content) {
			end = sentenceEnd(content, start+size)
		}
		if c := strings.TrimSpace(content[start:end]); c != "" {
			chunks = append(chunks, c)
		}
		start = end
	}
	return chunks
}

func isSentencePunct(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// sentenceEnd moves end forward past the next run of sentence punctuation.
func sentenceEnd(s string, end int) int {
	for end < len(s) && !isSentencePunct(s[end]) {
		end++
	}
	for end < len(s) && isSentencePunct(s[end]) {
		end++
	}
	return end
}

// SplitMarkdown splits a markdown document at headings and packs consecutive
// sections into chunks of at most size bytes. Sections that are too large on
// their own are cut with SplitSentences.
func SplitMarkdown(content string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if c := strings.TrimSpace(current.String()); c != "" {
			chunks = append(chunks, c)
		}
		current.Reset()
	}

	for _, section := range splitSections(content) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		if len(section) > size {
			flush()
			chunks = append(chunks, SplitSentences(section, size)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(section) > size {
			flush()
		}
		current.WriteString(section)
	}
	flush()

	return chunks
}

// splitSections cuts source at the start of every heading line.
func splitSections(content string) []string {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	starts := []int{0}
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}

		pos := heading.Lines().At(0).Start
		for pos > 0 && source[pos-1] != '\n' {
			pos--
		}
		if pos > starts[len(starts)-1] {
			starts = append(starts, pos)
		}
		return ast.WalkSkipChildren, nil
	})

	sections := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		sections = append(sections, content[start:end])
	}
	return sections
}
