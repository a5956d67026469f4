package flowchart

import (
	"math"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/labels"
)

type BoxState string

const (
	BoxAnswered   BoxState = "answered"
	BoxUnanswered BoxState = "unanswered"
	BoxLoading    BoxState = "loading"
	BoxError      BoxState = "error"
)

// Hooks name the events a renderer emits for a box. Activate opens the
// detail view of the pair; Explore, when set, is the answer id a double
// activation explores from.
type Hooks struct {
	Activate conversation.NodeID `json:"activate"`
	Explore  conversation.NodeID `json:"explore,omitempty"`
}

// Box is a laid out QA-pair ready for drawing.
type Box struct {
	ID       conversation.NodeID `json:"id"`
	AnswerID conversation.NodeID `json:"answerId,omitempty"`
	ParentID conversation.NodeID `json:"parentId,omitempty"`
	Level    int                 `json:"level"`
	X        float64             `json:"x"`
	Y        float64             `json:"y"`

	Question      string `json:"question"`
	Answer        string `json:"answer,omitempty"`
	QuestionLabel string `json:"questionLabel"`
	AnswerLabel   string `json:"answerLabel,omitempty"`

	State        BoxState                 `json:"state"`
	ErrorMessage string                   `json:"errorMessage,omitempty"`
	Tokens       *conversation.TokenUsage `json:"tokens,omitempty"`
	Hooks        Hooks                    `json:"hooks"`
}

// Bounds is the bounding rectangle of all boxes.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Diagram is the document handed to renderers. It carries no behavior.
type Diagram struct {
	ConversationID string      `json:"conversationId,omitempty"`
	Version        int64       `json:"version"`
	Config         Config      `json:"config"`
	Boxes          []Box       `json:"boxes"`
	Connectors     []Connector `json:"connectors"`
	Bounds         Bounds      `json:"bounds"`
}

type Options struct {
	Layout Config
	Labels labels.Budget
}

func DefaultOptions() Options {
	return Options{Layout: DefaultConfig(), Labels: labels.DefaultBudget()}
}

// Build flattens, lays out and labels a conversation snapshot.
func Build(cs *conversation.ConversationState, opts Options) *Diagram {
	d := &Diagram{Config: opts.Layout, Boxes: []Box{}, Connectors: []Connector{}}
	if cs == nil {
		return d
	}
	d.ConversationID = cs.ID
	d.Version = cs.Version

	pairs := Flatten(cs.Root)
	Layout(pairs, opts.Layout)
	for _, p := range pairs {
		d.Boxes = append(d.Boxes, newBox(p, opts.Labels))
	}
	if c := Connectors(pairs, opts.Layout); c != nil {
		d.Connectors = c
	}
	d.Bounds = bounds(d.Boxes, opts.Layout)
	return d
}

func newBox(p *QAPair, budget labels.Budget) Box {
	b := Box{
		ID:           p.ID,
		Level:        p.Level,
		X:            p.X,
		Y:            p.Y,
		ErrorMessage: p.ErrorMessage,
		Hooks:        Hooks{Activate: p.ID},
	}
	if p.Parent != nil {
		b.ParentID = p.Parent.ID
	}
	if p.Question != nil {
		b.Question = p.Question.Content
		b.QuestionLabel = labels.Label(p.Question.Content, budget)
	}
	if p.Answer != nil {
		b.AnswerID = p.Answer.ID
		b.Answer = p.Answer.Content
		b.AnswerLabel = labels.Label(p.Answer.Content, budget)
		b.Tokens = p.Answer.Tokens
		b.Hooks.Explore = p.Answer.ID
	}

	switch {
	case p.Loading:
		b.State = BoxLoading
	case p.Error:
		b.State = BoxError
	case p.Answer != nil:
		b.State = BoxAnswered
	default:
		b.State = BoxUnanswered
	}
	return b
}

func bounds(boxes []Box, cfg Config) Bounds {
	if len(boxes) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, box := range boxes {
		b.MinX = math.Min(b.MinX, box.X-cfg.BoxWidth/2)
		b.MaxX = math.Max(b.MaxX, box.X+cfg.BoxWidth/2)
		b.MinY = math.Min(b.MinY, box.Y-cfg.BoxHeight/2)
		b.MaxY = math.Max(b.MaxY, box.Y+cfg.BoxHeight/2)
	}
	return b
}

// Box returns the box with the given pair id.
func (d *Diagram) Box(id conversation.NodeID) (Box, bool) {
	for _, b := range d.Boxes {
		if b.ID == id {
			return b, true
		}
	}
	return Box{}, false
}
