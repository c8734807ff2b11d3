package notes

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
	markdown   = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		// the editor keeps file-reference chips as spans with data attributes
		policy.AllowAttrs("data-file-id", "data-file-name", "data-type").OnElements("span")
		policy.AllowAttrs("class").OnElements("span", "code", "pre")
	})
	return policy
}

// RenderParagraph turns paragraph content into sanitized HTML.
// Content that does not start with a tag is treated as markdown.
func RenderParagraph(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "<") {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(trimmed), &buf); err == nil {
			trimmed = strings.TrimSpace(buf.String())
		}
	}
	return Sanitize(trimmed)
}

// Sanitize strips scripts, event handlers and other unsafe markup from note HTML
func Sanitize(html string) string {
	return strings.TrimSpace(sanitizer().Sanitize(html))
}
