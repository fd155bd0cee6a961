// Package markdown renders untrusted markdown to HTML.
//
// Badge criteria are author supplied, so raw HTML never reaches the output.
// Rendering happens at write time and the result is stored next to the source
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Render converts markdown to HTML. Raw HTML in the source is dropped by the
// renderer, so the output is safe to serve as-is
func Render(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var b strings.Builder
	if err := md.Convert([]byte(src), &b); err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return b.String(), nil
}
