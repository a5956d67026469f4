// Package labels turns node content into short, single-line box labels.
package labels

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

const Ellipsis = "..."

// Budget bounds a label both in runes and in estimated display width.
type Budget struct {
	MaxRunes int `yaml:"max-runes" json:"maxRunes"`
	MaxWidth int `yaml:"max-width" json:"maxWidth"`
	MinRunes int `yaml:"min-runes" json:"minRunes"`
}

// DefaultBudget fits a label into a 200 wide box.
func DefaultBudget() Budget {
	return Budget{MaxRunes: 25, MaxWidth: 140, MinRunes: 8}
}

// RuneWidth estimates the display width of r in diagram units.
func RuneWidth(r rune) int {
	switch {
	case r >= 0x4e00 && r <= 0x9fff:
		return 14
	case r >= 0xff00 && r <= 0xffef:
		return 12
	default:
		return 7
	}
}

// Width estimates the display width of s.
func Width(s string) int {
	w := 0
	for _, r := range s {
		w += RuneWidth(r)
	}
	return w
}

// PlainText renders content as Markdown and returns its visible text with
// whitespace collapsed. Content that cannot be parsed is returned with
// whitespace collapsed only.
func PlainText(content string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return collapse(content)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return collapse(content)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens plain text to the budget. Text of at most MaxRunes
// runes is kept as is; longer text is cut to MaxWidth estimated units, but
// never below MinRunes runes, and Ellipsis is appended.
func Truncate(s string, b Budget) string {
	runes := []rune(s)
	if len(runes) <= b.MaxRunes {
		return s
	}

	keep := 0
	width := 0
	for keep < len(runes) {
		w := RuneWidth(runes[keep])
		if width+w > b.MaxWidth {
			break
		}
		width += w
		keep++
	}
	if keep < b.MinRunes {
		keep = min(b.MinRunes, len(runes))
	}
	if keep >= len(runes) {
		return s
	}
	return string(runes[:keep]) + Ellipsis
}

// Label strips markup from content and truncates it to the budget.
func Label(content string, b Budget) string {
	return Truncate(PlainText(content), b)
}
