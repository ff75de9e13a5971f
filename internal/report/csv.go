package report

import (
	"bufio"
	"io"
	"strings"
)

var csvHeader = []string{"Project", "Tags", "Date", "Start", "End", "Elapsed"}

// csvRenderer writes one line per frame and no totals
type csvRenderer struct{}

func (csvRenderer) Render(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	writeCSVLine(bw, csvHeader)
	for _, row := range r.Rows() {
		writeCSVLine(bw, []string{row.Project, row.Tags, row.Date, row.Start, row.End, row.Elapsed})
	}

	return bw.Flush()
}

// writeCSVLine quotes any field containing the delimiter, a quote, a backslash or
// whitespace. encoding/csv only quotes on leading spaces, so "12:00 pm" would
// come out bare.
func writeCSVLine(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if !csvNeedsQuotes(field) {
			w.WriteString(field)
			continue
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func csvNeedsQuotes(field string) bool {
	return strings.ContainsAny(field, ",\"\\ \t\r\n")
}
