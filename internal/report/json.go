package report

import (
	"encoding/json"
	"io"
)

type jsonReport struct {
	DateRange jsonDateRange `json:"date_range"`
	Frames    []jsonRow     `json:"frames"`
	Totals    jsonTotals    `json:"totals"`
}

type jsonDateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type jsonRow struct {
	Project  string   `json:"Project"`
	Tags     string   `json:"Tags"`
	Notes    string   `json:"Notes"`
	Date     string   `json:"Date"`
	Start    string   `json:"Start"`
	End      string   `json:"End"`
	Elapsed  string   `json:"Elapsed"`
	Estimate string   `json:"Estimate"`
	Velocity *float64 `json:"Velocity"`
}

type jsonTotals struct {
	Elapsed  string   `json:"Elapsed"`
	Estimate string   `json:"Estimate"`
	Velocity *float64 `json:"Velocity"`
}

// jsonRenderer writes the whole report as one indented object. Undefined
// velocities are encoded as null.
type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, r *Report) error {
	from, to := r.DateRange()
	elapsed, estimate := r.FormattedTotals()

	out := jsonReport{
		DateRange: jsonDateRange{From: from, To: to},
		Frames:    make([]jsonRow, 0, len(r.Frames)),
		Totals: jsonTotals{
			Elapsed:  elapsed,
			Estimate: estimate,
			Velocity: r.Totals.Velocity,
		},
	}
	for _, row := range r.Rows() {
		out.Frames = append(out.Frames, jsonRow(row))
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(out)
}
