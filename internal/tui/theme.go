package tui

import (
	"github.com/charmbracelet/lipgloss"

	"chatwidget/internal/widget"
)

// Theme maps the bundle's appearance tokens onto terminal styles. FontFamily
// has no terminal equivalent and is ignored; shapes pick the border set.
type Theme struct {
	TextPrimary lipgloss.AdaptiveColor
	TextMuted   lipgloss.AdaptiveColor

	Primary lipgloss.Color
	Accent  lipgloss.Color
	Error   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderDesc  lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	Launcher  lipgloss.Style
	BubbleBox lipgloss.Style

	RoleYou lipgloss.Style
	RoleBot lipgloss.Style
	Meta    lipgloss.Style

	MsgBody lipgloss.Style

	ButtonOpen     lipgloss.Style
	ButtonSelected lipgloss.Style
	ButtonDisabled lipgloss.Style

	ListItem lipgloss.Style
	ListSel  lipgloss.Style

	Pane     lipgloss.Style
	InputBox lipgloss.Style
	Footer   lipgloss.Style
	Typing   lipgloss.Style
	Alert    lipgloss.Style
}

func borderFor(shape string) lipgloss.Border {
	if shape == "square" {
		return lipgloss.NormalBorder()
	}
	return lipgloss.RoundedBorder()
}

func NewTheme(ap widget.Appearance) Theme {
	t := Theme{
		TextPrimary: lipgloss.AdaptiveColor{Light: "#1d2433", Dark: "#f2f2f2"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#4a5568", Dark: "#c7c7c7"},
		Primary:     lipgloss.Color(ap.PrimaryColor),
		Accent:      lipgloss.Color(ap.AccentColor),
		Error:       lipgloss.AdaptiveColor{Light: "#b42318", Dark: "#ff7a7a"},
		Border:      lipgloss.AdaptiveColor{Light: "#cbd5e0", Dark: "#3a3a3a"},
	}

	bubble := borderFor(ap.BubbleShape)
	button := borderFor(ap.ButtonShape)

	t.Header = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.HeaderDesc = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.TabActive = lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Underline(true)
	t.TabInactive = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.Launcher = lipgloss.NewStyle().Border(button).BorderForeground(t.Primary).Padding(0, 1).Bold(true).Foreground(t.Primary)
	t.BubbleBox = lipgloss.NewStyle().Border(bubble).BorderForeground(t.Accent).Padding(0, 1).Foreground(t.TextPrimary)

	t.RoleYou = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.RoleBot = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.Meta = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.MsgBody = lipgloss.NewStyle().Foreground(t.TextPrimary)

	t.ButtonOpen = lipgloss.NewStyle().Border(button).BorderForeground(t.Primary).Padding(0, 1).Foreground(t.TextPrimary)
	t.ButtonSelected = lipgloss.NewStyle().Border(button).BorderForeground(t.Accent).Padding(0, 1).Bold(true).Foreground(t.Accent)
	t.ButtonDisabled = lipgloss.NewStyle().Border(button).BorderForeground(t.Border).Padding(0, 1).Foreground(t.TextMuted)

	t.ListItem = lipgloss.NewStyle().Foreground(t.TextPrimary)
	t.ListSel = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)

	t.Pane = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.InputBox = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Typing = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.Alert = lipgloss.NewStyle().Bold(true).Foreground(t.Error)

	return t
}
