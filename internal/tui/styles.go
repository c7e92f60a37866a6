package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledbench/internal/version"
)

// Application branding constants
const (
	AppName   = "LEDBENCH"
	GitHubURL = "github.com/muurk/ledbench"
)

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 80
	MaxContentWidth  = 140
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
	BorderColor    = lipgloss.Color("#7D56F4")
	HighlightColor = lipgloss.Color("#43BF6D")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	OKStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)

	FailStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	WarnStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// PaneStyle frames a titled side panel
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)

	// ActivePaneStyle frames the panel that has focus
	ActivePaneStyle = PaneStyle.
			BorderForeground(HighlightColor)
)

// RenderTitle renders a section title
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderSubtitle renders a subtitle with consistent styling
func RenderSubtitle(text string) string {
	return SubtitleStyle.Render(text)
}

// BuildHeaderContent creates header content with app name and a status
// string on the right
func BuildHeaderContent(status string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " " + version.Get().Version)

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(status)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps a screen in the full-terminal frame:
// header, content and a help footer pinned to the bottom.
//
// Content starts at row 3 and column 1 of the terminal; mouse hit testing
// relies on that.
func RenderApplicationContainer(content, status, footerText string, terminalWidth, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight < 10 {
		terminalHeight = 10
	}

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1).
		Render(BuildHeaderContent(status))

	footer := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1).
		Foreground(SubtleColor).
		Render(footerText)

	body := lipgloss.NewStyle().
		Width(terminalWidth - 4).
		Height(terminalHeight - 2 - lipgloss.Height(header) - lipgloss.Height(footer)).
		MaxHeight(terminalHeight - 2 - lipgloss.Height(header) - lipgloss.Height(footer)).
		Render(content)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// ContentOrigin is the terminal cell where screen content starts
const (
	ContentOriginX = 1
	ContentOriginY = 3
)
