// Package tui implements the Bubble Tea TUI for msgscope.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/msgscope/internal/styles"
)

var (
	bannerStyle = styles.BannerStyle.
			PaddingLeft(1).
			PaddingBottom(1)

	tabBarStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingBottom(1)

	formStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	// Border around the results pane, blue while it has focus.
	resultsStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.ColorGray)

	focusedResultsStyle = resultsStyle.
				BorderForeground(styles.ColorBlue)

	statusStyle = styles.StatusStyle.
			PaddingLeft(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(styles.ColorBlue)

	emptyStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			Italic(true).
			Padding(1, 2)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Foreground(styles.ColorPurple).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorGray).
		BorderBottom(true)
	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorBlue).
		Bold(false)
	return s
}

func helpStyles() help.Styles {
	gray := lipgloss.NewStyle().Foreground(styles.ColorGray)
	return help.Styles{
		Ellipsis:       gray,
		ShortKey:       gray,
		ShortDesc:      gray,
		ShortSeparator: gray,
		FullKey:        gray,
		FullDesc:       gray,
		FullSeparator:  gray,
	}
}
