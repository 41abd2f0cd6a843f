package contract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// maxContentRunes bounds what is sent for extraction
const maxContentRunes = 60_000

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

// looksLikeHTML is true for uploaded .html files or text that opens with markup
func looksLikeHTML(filename, content string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return true
	case ".txt", ".md":
		return false
	}
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") || strings.Contains(head, "<body")
}

// normalizeContent converts HTML uploads to Markdown and truncates very long
// pages. Plain text and Markdown pass through unchanged.
func (s *Service) normalizeContent(filename, content string) (string, error) {
	if looksLikeHTML(filename, content) {
		md, err := s.markdown.ConvertString(content)
		if err != nil {
			return "", fmt.Errorf("failed to convert HTML: %w", err)
		}
		content = md
	}

	content = strings.TrimSpace(content)
	if r := []rune(content); len(r) > maxContentRunes {
		content = string(r[:maxContentRunes])
	}
	return content, nil
}
