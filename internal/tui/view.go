package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/tasklet/internal/core/styles"
	"github.com/colonyops/tasklet/internal/render"
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(m.title))
	b.WriteString("\n")

	if m.deps.View.Offline() {
		b.WriteString(styles.BannerStyle.Render(styles.IconOffline + " 오프라인 상태입니다."))
		b.WriteString("\n\n")
	}

	inputStyle := styles.InputStyle
	if m.focus == focusInput {
		inputStyle = styles.FocusedStyle
	}
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n\n")

	rows := m.deps.View.Rows()
	if len(rows) == 0 {
		b.WriteString(styles.MutedStyle.Render("No tasks yet"))
		b.WriteString("\n")
	}
	for i, row := range rows {
		b.WriteString(m.renderRow(i, row))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) renderRow(i int, row render.Row) string {
	cursor := "  "
	if m.focus == focusList && i == m.cursor {
		cursor = styles.CursorStyle.Render(styles.IconCursor) + " "
	}

	mark := styles.IconUnchecked
	text := styles.TaskStyle.Render(row.Text)
	if row.Checked {
		mark = styles.IconChecked
		text = styles.DoneStyle.Render(row.Text)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		cursor,
		mark+" ",
		text,
		" "+styles.IDStyle.Render(fmt.Sprintf("#%d", row.ID)),
	)
}

func (m *Model) help() string {
	if m.focus == focusInput {
		return "enter add • tab list • ctrl+c quit"
	}
	return "↑/↓ move • space toggle • d delete • tab input • q quit"
}
