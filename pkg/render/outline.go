package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Yiozolm/Knode/pkg/flowchart"
)

// Outline writes the diagram as an indented list, one box per line, in
// flattening order.
func Outline(w io.Writer, d *flowchart.Diagram) error {
	if len(d.Boxes) == 0 {
		_, err := fmt.Fprintln(w, "(empty conversation)")
		return err
	}
	for _, b := range d.Boxes {
		indent := strings.Repeat("  ", b.Level)
		if _, err := fmt.Fprintf(w, "%s- [%s] Q: %s  (%s @ %s,%s)\n",
			indent, b.State, b.QuestionLabel, b.ID, formatNum(b.X), formatNum(b.Y)); err != nil {
			return err
		}
		var line string
		switch b.State {
		case flowchart.BoxAnswered:
			line = fmt.Sprintf("A: %s  (%s)", b.AnswerLabel, b.AnswerID)
		case flowchart.BoxLoading:
			line = LoadingText
		case flowchart.BoxError:
			line = "Error: " + b.ErrorMessage
		default:
			continue
		}
		if _, err := fmt.Fprintf(w, "%s    %s\n", indent, line); err != nil {
			return err
		}
	}
	return nil
}
