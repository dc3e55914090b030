// Package render draws the pieces of the interactive editor: header, filter
// rows, status line and the image preview.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/errors"
)

const (
	// ListWidth is the width of the filter column.
	ListWidth       = 30
	cursorSymbol    = "▸"
	activeSymbol    = "●"
	truncatedSuffix = "…"
)

// HeaderState defines the inputs needed to render the header.
type HeaderState struct {
	Step    int
	Steps   int
	Width   int
	Height  int
	Pending int
	Spinner string
}

// FilterRowState defines the inputs needed to render a filter row.
type FilterRowState struct {
	Name      string
	Parameter *int
	Selected  bool
	Active    bool
}

// Header renders the title line.
func Header(state HeaderState) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ansiColorNumber(colors.Blue)))

	title := "pixedit"
	if state.Steps == 0 {
		title += "  no image loaded"
	} else {
		title += fmt.Sprintf("  step %d/%d  %dx%d", state.Step, state.Steps, state.Width, state.Height)
	}
	if state.Pending > 0 {
		title += fmt.Sprintf("  %s processing %d", state.Spinner, state.Pending)
	}
	return headerStyle.Render(title)
}

// FilterRow renders a single filter entry.
func FilterRow(state FilterRowState) string {
	rowStyle := lipgloss.NewStyle().Width(ListWidth)
	if state.Selected {
		rowStyle = rowStyle.Background(lipgloss.Color(ansiColorNumber(colors.Blue))).Foreground(lipgloss.Color("0"))
	}

	marker := " "
	if state.Selected {
		marker = cursorSymbol
	}
	active := " "
	if state.Active {
		active = activeSymbol
	}
	label := state.Name
	if state.Parameter != nil {
		label = fmt.Sprintf("%s (%d)", state.Name, *state.Parameter)
	}
	row := fmt.Sprintf("%s%s %s", marker, active, label)
	return rowStyle.Render(truncate(row, ListWidth))
}

// StatusLine renders the latest user-facing message.
func StatusLine(text string, kind errors.MessageType) string {
	if text == "" {
		return ""
	}
	var color, prefix string
	switch kind {
	case errors.MessageTypeError:
		color, prefix = colors.Red, "✗ "
	case errors.MessageTypeWarning:
		color, prefix = colors.Yellow, "⚠ "
	case errors.MessageTypeSuccess:
		color, prefix = colors.Green, "✓ "
	default:
		color, prefix = colors.Cyan, ""
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(color)))
	return style.Render(prefix + text)
}

// Placeholder renders the empty preview area.
func Placeholder(text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true).Render(text)
}

func truncate(value string, width int) string {
	if width <= 0 || utf8.RuneCountInString(value) <= width {
		return value
	}
	return string([]rune(value)[:width-1]) + truncatedSuffix
}

// ansiColorNumber extracts the color number from an ANSI escape sequence.
// Example: "\033[0;34m" -> "34"
func ansiColorNumber(ansi string) string {
	if len(ansi) < 2 {
		return ""
	}
	lastSemicolon := strings.LastIndex(ansi, ";")
	if lastSemicolon == -1 {
		return ""
	}
	return ansi[lastSemicolon+1 : len(ansi)-1]
}
