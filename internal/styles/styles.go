// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorRed    = lipgloss.Color("#f7768e")
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorPurple = lipgloss.Color("#bb9af7")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
	ColorBg     = lipgloss.Color("#1a1b26")
)

// Banner is the title shown in the TUI header.
const Banner = "◉ msgscope"

// BannerStyle styles the header banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// TabStyle styles an inactive view tab.
var TabStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Padding(0, 1)

// ActiveTabStyle styles the active view tab.
var ActiveTabStyle = lipgloss.NewStyle().
	Foreground(ColorBg).
	Background(ColorBlue).
	Bold(true).
	Padding(0, 1)

// LabelStyle styles form field labels.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorPurple).
	Width(10)

// FocusedLabelStyle styles the label of the focused form field.
var FocusedLabelStyle = LabelStyle.
	Foreground(ColorBlue).
	Bold(true)

// ErrorToastStyle styles failure toasts.
var ErrorToastStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorRed).
	Padding(0, 1)

// InfoToastStyle styles informational toasts.
var InfoToastStyle = ErrorToastStyle.
	Foreground(ColorGreen).
	BorderForeground(ColorGreen)

// StatusStyle styles the status line below the results.
var StatusStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// FormTheme returns the huh theme used by CLI prompts.
func FormTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Title = t.Focused.Title.Foreground(ColorBlue).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorGray)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorRed)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorRed)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorGray)
	return t
}
