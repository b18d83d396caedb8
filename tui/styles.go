// Package tui provides the interactive terminal UI.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/stsysd/tudu/model"
)

// Priority tier colors, matching the CLI palette.
const (
	colorCritical = "#e06c75"
	colorHigh     = "#e5c07b"
	colorMedium   = "#61afef"
	colorLow      = "#98c379"
	colorMuted    = "245"
	colorAccent   = "12"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorAccent)).
			MarginLeft(1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted))

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingRight(1).
			Width(28)

	sidebarTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color(colorAccent)).
				Align(lipgloss.Center).
				Width(26)

	projectStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	projectSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				PaddingLeft(1).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	projectStatsStyle = lipgloss.NewStyle().
				Italic(true).
				PaddingLeft(3).
				Foreground(lipgloss.Color(colorMuted))

	taskStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	taskSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Background(lipgloss.Color("236"))

	taskDoneStyle = lipgloss.NewStyle().
			Strikethrough(true).
			Italic(true).
			Foreground(lipgloss.Color(colorMuted))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginLeft(1).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			MarginLeft(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorLow)).
			MarginLeft(1)

	dialogStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color(colorAccent)).
				MarginBottom(1)

	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true)
)

// priorityStyle returns the render style for a priority tier.
func priorityStyle(p model.Priority) lipgloss.Style {
	switch p {
	case model.PriorityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCritical))
	case model.PriorityHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorHigh))
	case model.PriorityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorMedium))
	case model.PriorityLow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorLow))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	}
}
