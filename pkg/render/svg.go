package render

import (
	"html"
	"io"
	"math"
	"strconv"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/labels"
	"github.com/pkg/errors"
)

const (
	// OriginX and OriginY translate the diagram origin, the center of the
	// root box, into the viewport.
	OriginX = 400
	OriginY = 50
	margin  = 20

	LoadingText = "Generating answer..."
	// EmptyQuestionText stands in for a question without a label.
	EmptyQuestionText = "Q: ..."
)

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{ .Width | num }}" height="{{ .Height | num }}" data-conversation-id="{{ .ConversationID | xml }}" data-version="{{ .Version }}">
  <defs>
    <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
      <polygon points="0 0, 10 3.5, 0 7" fill="#666"/>
    </marker>
  </defs>
  <g transform="translate({{ .OriginX | num }},{{ .OriginY | num }})">
{{- range .Connectors }}
    <path class="connector" d="{{ .Path }}" data-from="{{ .From | toString | xml }}" data-to="{{ .To | toString | xml }}" stroke="#666" stroke-width="2" fill="none" marker-end="url(#arrowhead)"/>
{{- end }}
{{- range .Boxes }}
    <g class="node {{ .State }}" data-node-id="{{ .ID | toString | xml }}" data-activate="{{ .Activate | xml }}"{{ with .Explore }} data-explore="{{ . | xml }}"{{ end }}>
      <rect x="{{ .Left | num }}" y="{{ .Top | num }}" width="{{ .Width | num }}" height="{{ .Height | num }}" rx="10" ry="10" fill="{{ .Fill }}" stroke="{{ .Stroke }}" stroke-width="2"/>
      <text class="question" x="{{ .TextX | num }}" y="{{ .QuestionY | num }}" font-size="12">{{ .Question | xml }}</text>
      {{- if .Answer }}
      <text class="{{ .AnswerClass }}" x="{{ .TextX | num }}" y="{{ .AnswerY | num }}" font-size="12">{{ .Answer | xml }}</text>
      {{- end }}
    </g>
{{- end }}
  </g>
</svg>
`

var svgTmpl = template.Must(template.New("svg").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{
		"xml": html.EscapeString,
		"num": formatNum,
	}).
	Parse(svgTemplate))

type svgDocument struct {
	ConversationID   string
	Version          int64
	Width, Height    float64
	OriginX, OriginY float64
	Connectors       []flowchart.Connector
	Boxes            []svgBox
}

type svgBox struct {
	flowchart.Box
	Activate, Explore  string
	Left, Top          float64
	Width, Height      float64
	TextX              float64
	QuestionY, AnswerY float64
	Question, Answer   string
	AnswerClass        string
	Fill, Stroke       string
}

var boxColors = map[flowchart.BoxState][2]string{
	flowchart.BoxAnswered:   {"#e3f2fd", "#1976d2"},
	flowchart.BoxUnanswered: {"#f5f5f5", "#9e9e9e"},
	flowchart.BoxLoading:    {"#fff8e1", "#ffa000"},
	flowchart.BoxError:      {"#ffebee", "#d32f2f"},
}

// SVG writes d as a standalone SVG document. Box labels are the diagram's
// truncated labels; the error message of a failed box is truncated with
// budget.
func SVG(w io.Writer, d *flowchart.Diagram, budget labels.Budget) error {
	doc := svgDocument{
		ConversationID: d.ConversationID,
		Version:        d.Version,
		OriginX:        OriginX,
		OriginY:        OriginY,
		Connectors:     d.Connectors,
	}
	if len(d.Boxes) > 0 {
		// keep the default origin unless boxes would fall off the left edge
		doc.OriginX = math.Max(OriginX, margin-d.Bounds.MinX)
	}
	doc.Width = math.Max(2*OriginX, doc.OriginX+d.Bounds.MaxX+margin)
	doc.Height = doc.OriginY + d.Bounds.MaxY + margin

	cfg := d.Config
	for _, b := range d.Boxes {
		sb := svgBox{
			Box:       b,
			Activate:  string(b.Hooks.Activate),
			Explore:   string(b.Hooks.Explore),
			Left:      b.X - cfg.BoxWidth/2,
			Top:       b.Y - cfg.BoxHeight/2,
			Width:     cfg.BoxWidth,
			Height:    cfg.BoxHeight,
			TextX:     b.X - cfg.BoxWidth/2 + 10,
			QuestionY: b.Y - cfg.BoxHeight/2 + 30,
			AnswerY:   b.Y - cfg.BoxHeight/2 + 60,
			Question:  "Q: " + b.QuestionLabel,
		}
		if b.QuestionLabel == "" {
			sb.Question = EmptyQuestionText
		}
		sb.Fill, sb.Stroke = boxColors[b.State][0], boxColors[b.State][1]
		switch b.State {
		case flowchart.BoxLoading:
			sb.Answer, sb.AnswerClass = LoadingText, "loading"
		case flowchart.BoxError:
			sb.Answer, sb.AnswerClass = "Error: "+labels.Truncate(b.ErrorMessage, budget), "error"
		case flowchart.BoxAnswered:
			sb.Answer, sb.AnswerClass = "A: "+b.AnswerLabel, "answer"
		}
		doc.Boxes = append(doc.Boxes, sb)
	}

	if err := svgTmpl.Execute(w, doc); err != nil {
		return errors.Wrap(err, "render svg")
	}
	return nil
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
