package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownFormat is returned for a format name that has no renderer
var ErrUnknownFormat = errors.New("unknown report format")

// Format selects a renderer
type Format int

const (
	FormatTable Format = iota
	FormatCSV
	FormatJSON
)

var formatNames = map[Format]string{
	FormatTable: "table",
	FormatCSV:   "csv",
	FormatJSON:  "json",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a format name (case-insensitive) to a Format
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownFormat, name, strings.Join(FormatNames(), ", "))
}

// FormatNames lists the accepted format names
func FormatNames() []string {
	return []string{FormatTable.String(), FormatCSV.String(), FormatJSON.String()}
}

// Renderer serializes a report
type Renderer interface {
	Render(w io.Writer, r *Report) error
}

// RendererFor returns the renderer for f
func RendererFor(f Format) (Renderer, error) {
	switch f {
	case FormatCSV:
		return csvRenderer{}, nil
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatTable:
		return tableRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
}

// Render writes the report to w in format f
func (r *Report) Render(w io.Writer, f Format) error {
	renderer, err := RendererFor(f)
	if err != nil {
		return err
	}
	return renderer.Render(w, r)
}
