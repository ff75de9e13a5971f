package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var tableHeader = []string{"Project", "Tags", "Notes", "Date", "Start", "End", "Elapsed", "Estimate", "Velocity"}

var (
	borderColor = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	totalsStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// tableRenderer draws a bordered table with a totals footer
type tableRenderer struct{}

func (tableRenderer) Render(w io.Writer, r *Report) error {
	rows := r.Rows()
	data := make([][]string, 0, len(rows)+1)
	for _, row := range rows {
		data = append(data, []string{
			row.Project, row.Tags, row.Notes, row.Date, row.Start, row.End,
			row.Elapsed, row.Estimate, formatVelocity(row.Velocity, 1),
		})
	}

	elapsed, estimate := r.FormattedTotals()
	data = append(data, []string{
		"Total", "", "", "", "", "", elapsed, estimate, formatVelocity(r.Totals.Velocity, 2),
	})
	totalsRow := len(data) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(tableHeader...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch row {
			case table.HeaderRow:
				return headerStyle
			case totalsRow:
				return totalsStyle
			default:
				return cellStyle
			}
		})

	from, to := r.DateRange()
	if _, err := fmt.Fprintf(w, "%s - %s\n", from, to); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// formatVelocity renders an undefined velocity as "-"
func formatVelocity(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}
