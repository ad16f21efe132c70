// Package ui provides the lipgloss styles and widgets shared by the
// storygear commands.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Warn    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#f0883e"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Status lipgloss.Style
	Story  lipgloss.Style
	Image  lipgloss.Style
	Error  lipgloss.Style
	Help   lipgloss.Style
	Meter  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Status: lipgloss.NewStyle().Foreground(t.Dim).Italic(true),
		Story:  lipgloss.NewStyle(),
		Image:  lipgloss.NewStyle().Foreground(t.Primary).Italic(true),
		Error:  lipgloss.NewStyle().Foreground(t.Warn).Bold(true),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Meter:  lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// VolumeBar renders a level in [0, 1] as a fixed-width block meter.
func VolumeBar(v float64, width int) string {
	if width <= 0 {
		return ""
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	filled := int(v*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ImageNote renders the inline placeholder shown for an image unit.
func ImageNote(mimeType string, size int) string {
	return fmt.Sprintf("[illustration %s, %d bytes]", mimeType, size)
}
