package knowledge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"

	"github.com/m2tx/benchagent/internal/log"
)

const indexPattern = "**/*.{md,markdown,txt,pdf}"

// IndexDir ingests every markdown, text and pdf file under dir. A missing
// directory indexes nothing. Unreadable files are logged and skipped.
func (b *Base) IndexDir(ctx context.Context, dir string) (int, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), indexPattern)
	if err != nil {
		return 0, fmt.Errorf("knowledge: glob %q: %w", dir, err)
	}

	total := 0
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		path := filepath.Join(dir, filepath.FromSlash(rel))
		text, err := ReadText(path)
		if err != nil {
			log.Warnf("knowledge: skip %q: %v", path, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		ext := strings.ToLower(filepath.Ext(path))
		added, err := b.Ingest(ctx, Document{
			Title:    filepath.Base(path),
			Source:   path,
			Text:     text,
			Markdown: ext == ".md" || ext == ".markdown",
		})
		if err != nil {
			return total, err
		}
		total += added
	}

	log.Infof("knowledge: indexed %d new chunks from %d files in %q", total, len(matches), dir)
	return total, nil
}

// ReadText returns the text of a plain text file or the extracted text of a pdf.
func ReadText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ReadPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadPDF extracts the plain text of a pdf file.
func ReadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %q: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf %q: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf %q: %w", path, err)
	}
	return buf.String(), nil
}
