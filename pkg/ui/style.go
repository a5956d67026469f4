package ui

import (
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/charmbracelet/lipgloss"
)

type Style struct {
	Header       lipgloss.Style
	Selected     lipgloss.Style
	Unselected   lipgloss.Style
	FocusedInput lipgloss.Style
	Detail       lipgloss.Style

	States map[flowchart.BoxState]lipgloss.Style
	Status map[orchestrator.StatusKind]lipgloss.Style
}

type BorderColors struct {
	Unselected string
	Selected   string
	Focused    string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		Unselected: "#CCCCCC",
		Selected:   "#FFB6C1",
		Focused:    "#FFFF99",
	}

	darkModeColors := BorderColors{
		Unselected: "#444444",
		Selected:   "#DD7090",
		Focused:    "#DDDD77",
	}

	fg := func(light, dark string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: light, Dark: dark})
	}

	return &Style{
		Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Selected: lipgloss.NewStyle().Bold(true).
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.Selected,
				Dark:  darkModeColors.Selected,
			}),
		Unselected: lipgloss.NewStyle().PaddingLeft(1),
		FocusedInput: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.Focused,
				Dark:  darkModeColors.Focused,
			}),
		Detail: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.Unselected,
				Dark:  darkModeColors.Unselected,
			}),
		States: map[flowchart.BoxState]lipgloss.Style{
			flowchart.BoxAnswered:   fg("#1976D2", "#64B5F6"),
			flowchart.BoxUnanswered: fg("#757575", "#9E9E9E"),
			flowchart.BoxLoading:    fg("#FF8F00", "#FFCA28"),
			flowchart.BoxError:      fg("#D32F2F", "#EF5350"),
		},
		Status: map[orchestrator.StatusKind]lipgloss.Style{
			orchestrator.StatusInfo:    fg("#1976D2", "#64B5F6"),
			orchestrator.StatusSuccess: fg("#388E3C", "#81C784"),
			orchestrator.StatusError:   fg("#D32F2F", "#EF5350").Bold(true),
		},
	}
}
