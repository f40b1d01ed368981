package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const hashDim = 512

// HashEmbedder embeds text locally by feature hashing of lowercase words.
type HashEmbedder struct{}

func (HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, hashEmbed(text))
	}
	return vectors, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, hashDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, isPunct)
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32()%hashDim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm = math.Sqrt(norm); norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func isPunct(r rune) bool {
	return strings.ContainsRune(`.,;:!?"'()[]{}<>*_#`+"`", r)
}
