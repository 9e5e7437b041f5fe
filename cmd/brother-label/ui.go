package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
)

const (
	iconSuccess = "✓"
	columnGap   = 2
)

// printTable prints rows under headers in fixed-width columns. The first
// column is rendered as a key, the rest as values.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	fmt.Fprintln(w, renderRow(headers, widths, func(int) lipgloss.Style { return styleHeader }))
	for _, row := range rows {
		fmt.Fprintln(w, renderRow(row, widths, func(i int) lipgloss.Style {
			if i == 0 {
				return styleKey
			}
			return styleValue
		}))
	}
}

func renderRow(cells []string, widths []int, style func(int) lipgloss.Style) string {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		s := style(i)
		// 最終列は幅を揃えない
		if i < len(cells)-1 {
			s = s.Width(widths[i] + columnGap)
		}
		parts = append(parts, s.Render(cell))
	}
	return strings.TrimRight(strings.Join(parts, ""), " ")
}

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, styleSuccess.Render(iconSuccess)+" "+msg)
}
