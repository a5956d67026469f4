package flowchart

import (
	"fmt"
	"strconv"

	"github.com/Yiozolm/Knode/pkg/conversation"
)

// Config holds the geometry of the diagram.
type Config struct {
	HorizontalSpacing float64 `yaml:"horizontal-spacing" json:"horizontalSpacing"`
	VerticalSpacing   float64 `yaml:"vertical-spacing" json:"verticalSpacing"`
	// BoxHalfHeight is the vertical distance from a box center to the point
	// where connectors attach.
	BoxHalfHeight float64 `yaml:"box-half-height" json:"boxHalfHeight"`
	BoxWidth      float64 `yaml:"box-width" json:"boxWidth"`
	BoxHeight     float64 `yaml:"box-height" json:"boxHeight"`
}

func DefaultConfig() Config {
	return Config{
		HorizontalSpacing: 200,
		VerticalSpacing:   150,
		BoxHalfHeight:     60,
		BoxWidth:          200,
		BoxHeight:         100,
	}
}

// Layout assigns coordinates to pairs in place.
//
// Pairs are grouped by level in emission order. Within a level of k pairs the
// i-th gets x = -((k-1)*H)/2 + i*H, so the row is centered on x = 0, and
// every pair gets y = level*V.
func Layout(pairs []*QAPair, cfg Config) {
	byLevel := map[int][]*QAPair{}
	for _, p := range pairs {
		byLevel[p.Level] = append(byLevel[p.Level], p)
	}
	for level, row := range byLevel {
		k := float64(len(row))
		for i, p := range row {
			p.X = -((k-1)*cfg.HorizontalSpacing)/2 + float64(i)*cfg.HorizontalSpacing
			p.Y = float64(level) * cfg.VerticalSpacing
		}
	}
}

// Point is a diagram coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a cubic Bézier from Start to End.
type Curve struct {
	Start    Point `json:"start"`
	Control1 Point `json:"control1"`
	Control2 Point `json:"control2"`
	End      Point `json:"end"`
}

// ConnectorCurve joins the bottom of the parent box to the top of the child
// box with an S-shaped curve: both control points sit on the vertical
// midpoint between the two centers.
func ConnectorCurve(x1, y1, x2, y2, boxHalfHeight float64) Curve {
	mid := (y1 + y2) / 2
	return Curve{
		Start:    Point{X: x1, Y: y1 + boxHalfHeight},
		Control1: Point{X: x1, Y: mid},
		Control2: Point{X: x2, Y: mid},
		End:      Point{X: x2, Y: y2 - boxHalfHeight},
	}
}

// Path renders the curve as SVG path data.
func (c Curve) Path() string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(c.Start.X), num(c.Start.Y),
		num(c.Control1.X), num(c.Control1.Y),
		num(c.Control2.X), num(c.Control2.Y),
		num(c.End.X), num(c.End.Y))
}

// ConnectorPath returns the SVG path between two box centers.
func ConnectorPath(x1, y1, x2, y2, boxHalfHeight float64) string {
	return ConnectorCurve(x1, y1, x2, y2, boxHalfHeight).Path()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Connector links a pair to one of its exploration children.
type Connector struct {
	From  conversation.NodeID `json:"from"`
	To    conversation.NodeID `json:"to"`
	Curve Curve               `json:"curve"`
	Path  string              `json:"path"`
}

// Connectors returns one connector per (pair, exploration child) edge whose
// child pair is present in pairs. Pairs must already be laid out.
func Connectors(pairs []*QAPair, cfg Config) []Connector {
	idx := Index(pairs)
	var out []Connector
	for _, p := range pairs {
		for _, c := range p.Children {
			child, ok := idx[c.ID]
			if !ok {
				continue
			}
			curve := ConnectorCurve(p.X, p.Y, child.X, child.Y, cfg.BoxHalfHeight)
			out = append(out, Connector{From: p.ID, To: child.ID, Curve: curve, Path: curve.Path()})
		}
	}
	return out
}
