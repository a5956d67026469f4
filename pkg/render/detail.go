package render

import (
	"fmt"
	"strings"

	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

// DetailMarkdown is the Markdown document of the detail view of a box: the
// full question and answer text.
func DetailMarkdown(b flowchart.Box) string {
	var sb strings.Builder
	sb.WriteString("## Question\n\n")
	sb.WriteString(b.Question)
	sb.WriteString("\n\n## Answer\n\n")
	switch b.State {
	case flowchart.BoxLoading:
		sb.WriteString("_" + LoadingText + "_")
	case flowchart.BoxError:
		sb.WriteString("**Error:** " + b.ErrorMessage)
	case flowchart.BoxUnanswered:
		sb.WriteString("_No answer yet._")
	default:
		sb.WriteString(b.Answer)
	}
	sb.WriteString("\n")
	if b.Tokens != nil {
		fmt.Fprintf(&sb, "\n---\n\nTokens: %d in, %d out\n", b.Tokens.Input, b.Tokens.Output)
	}
	return sb.String()
}

// Markdown renders Markdown for the terminal.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer with the given glamour style ("auto" picks
// one from the terminal background) wrapping at width.
func NewMarkdown(style string, width int) (*Markdown, error) {
	styleOption := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOption = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(width))
	if err != nil {
		return nil, errors.Wrap(err, "create markdown renderer")
	}
	return &Markdown{renderer: r}, nil
}

// Render renders content. A failure is returned as inline error text
// followed by the raw content, never as an error.
func (m *Markdown) Render(content string) string {
	out, err := Contain(func() (string, error) {
		return m.renderer.Render(content)
	})
	if err != nil {
		var failure *RenderFailure
		if errors.As(err, &failure) {
			return failure.Inline() + "\n\n" + content
		}
	}
	return out
}

// Detail renders the detail view of b.
func (m *Markdown) Detail(b flowchart.Box) string {
	return m.Render(DetailMarkdown(b))
}
