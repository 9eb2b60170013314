// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8A8A8A")).
			Width(14)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8A33D"))
)

// field is a label/value pair of a details block.
type field struct {
	label string
	value string
}

// printDetails writes a title followed by aligned label/value rows.
func printDetails(w io.Writer, title string, fields []field) {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(f.label), infoStyle.Render(f.value)))
		sb.WriteString("\n")
	}
	fmt.Fprintf(w, "%s\n\n%s", titleStyle.Render(title), sb.String())
}
