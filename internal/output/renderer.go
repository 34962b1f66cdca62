package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// Renderer writes a decoded report to an output stream.
type Renderer interface {
	Render(r *model.Report) error
}

// utf8BOM prefixes text reports, matching the reference decoder's files.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ---------------------------------------------------------------------------
// Text Renderer (reference-compatible report)
// ---------------------------------------------------------------------------

// TextRenderer writes the canonical text report.
type TextRenderer struct {
	w   io.Writer
	bom bool
}

// NewTextRenderer returns a Renderer producing the reference text format.
// withBOM prepends the UTF-8 byte order mark, as the official files carry.
func NewTextRenderer(w io.Writer, withBOM bool) *TextRenderer {
	return &TextRenderer{w: w, bom: withBOM}
}

func (r *TextRenderer) Render(report *model.Report) error {
	if r.bom {
		if _, err := r.w.Write(utf8BOM); err != nil {
			return err
		}
	}
	for _, line := range FormatReport(report) {
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer writes the whole report as one JSON document.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONRenderer{enc: enc}
}

func (r *JSONRenderer) Render(report *model.Report) error {
	return r.enc.Encode(report)
}

// ---------------------------------------------------------------------------
// CSV Renderer (tabular output for spreadsheets/plotting)
// ---------------------------------------------------------------------------

// CSVRenderer writes one row per entry, error-log entries included.
type CSVRenderer struct {
	w *csv.Writer
}

func NewCSVRenderer(w io.Writer) *CSVRenderer {
	return &CSVRenderer{w: csv.NewWriter(w)}
}

func (r *CSVRenderer) Render(report *model.Report) error {
	if err := r.w.Write([]string{"entry", "time", "type", "event", "conditions"}); err != nil {
		return err
	}
	write := func(entries []model.Entry) error {
		for _, e := range entries {
			row := []string{
				strconv.Itoa(e.Line),
				e.Time,
				fmt.Sprintf("0x%02x", e.Type),
				e.Event,
				e.Conditions,
			}
			if err := r.w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write(report.Entries); err != nil {
		return err
	}
	if err := write(report.ErrorEntries); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// ---------------------------------------------------------------------------
// Warning display (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleNote  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// RenderWarnings prints the recoverable conditions from a decode pass with
// severity-based colors. Truncation is the loudest: it means part of the log
// was not decoded.
func RenderWarnings(w io.Writer, warnings []model.Warning) {
	for _, warn := range warnings {
		tag := styleWarn.Render("WARN ")
		if warn.Kind == model.WarnTruncatedEntry {
			tag = styleError.Render("TRUNC")
		}
		fmt.Fprintf(w, "%s %s %s\n", tag, styleNote.Render(string(warn.Kind)), warn.Message)
	}
}
