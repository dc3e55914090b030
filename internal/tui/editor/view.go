package editor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cristianoliveira/pixedit/internal/tui/render"
)

// View renders the editor.
func (m *Model) View() string {
	w, h := m.session.SurfaceSize()
	header := render.Header(render.HeaderState{
		Step:    m.session.Cursor() + 1,
		Steps:   len(m.session.History()),
		Width:   w,
		Height:  h,
		Pending: m.pending,
		Spinner: m.spinner.View(),
	})

	active := m.session.ActiveFilter()
	params := m.session.Parameters()
	rows := make([]string, 0, len(m.filters))
	for i, id := range m.filters {
		row := render.FilterRowState{Name: string(id), Selected: i == m.cursor, Active: id == active}
		if v, ok := params[id]; ok {
			row.Parameter = &v
		}
		rows = append(rows, render.FilterRow(row))
	}
	list := strings.Join(rows, "\n")

	bodyHeight := max(m.height-chromeLines, len(m.filters))
	previewCols := max(m.width-render.ListWidth-2, 1)
	preview := render.Placeholder(previewPlaceholder)
	if m.surface != nil {
		preview = render.Preview(m.surface, previewCols, bodyHeight)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", preview)

	status := ""
	if msg, ok := m.errorHandler.GetLatest(); ok {
		status = render.StatusLine(msg.Text, msg.Type)
	}

	return strings.Join([]string{header, body, status, m.help.View(m.keys)}, "\n")
}
