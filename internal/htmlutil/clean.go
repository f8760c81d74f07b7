package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts rendered markup to plain text, decoding entities and
// turning <br> into line breaks.
func ToText(s string) string {
	return strings.TrimSpace(html2text.HTML2Text(s))
}

// TextContains reports whether the visible text of markup contains needle.
// Tags and entities in the markup never produce a match on their own.
func TextContains(markup, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(ToText(markup), needle)
}
