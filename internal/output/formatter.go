package output

import (
	"fmt"
	"strings"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// The column layout below reproduces the official decoder's report text
// byte-for-byte, so existing tooling can diff old and new output.

const headerDivider = "+--------+----------------------+--------------------------+----------------------------------"

const columnHeader = " Entry    Time of Log            Event                      Conditions"

// FormatReport renders a report as the canonical text lines: metadata block
// first, then one line per decoded event-log entry.
func FormatReport(r *model.Report) []string {
	lines := []string{
		"Zero " + string(r.Kind) + " log",
		"",
	}
	for _, f := range r.Header {
		lines = append(lines, fmt.Sprintf("%-18s %s", f.Name, f.Value))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Printing %d of %d log entries..", len(r.Entries), len(r.Entries)),
		"",
		columnHeader,
		headerDivider,
	)
	for _, e := range r.Entries {
		if r.Revision == model.Rev2 {
			lines = append(lines, FormatGen3Entry(e))
		} else {
			lines = append(lines, FormatEntry(e))
		}
	}
	lines = append(lines, "")
	return lines
}

// FormatEntry renders one entry line: zero-padded line number, right-aligned
// timestamp, event label padded to the conditions column.
func FormatEntry(e model.Entry) string {
	prefix := fmt.Sprintf(" %05d", e.Line) + fmt.Sprintf("     %19s", e.Time)
	switch {
	case e.Conditions == "":
		return prefix + "   " + e.Event
	case strings.Contains(e.Conditions, "???"):
		return prefix + "   " + e.Event + " ???"
	default:
		return prefix + fmt.Sprintf("   %-25s  %s", e.Event, e.Conditions)
	}
}

// FormatGen3Entry renders a Gen3 entry line: conditions in parentheses, the
// uninterpreted trailing bytes bracketed at the end.
func FormatGen3Entry(e model.Entry) string {
	prefix := fmt.Sprintf(" %05d", e.Line) + fmt.Sprintf("     %19s", e.Time)
	if e.Conditions != "" {
		return prefix + fmt.Sprintf("   %-25s  (%s) [%s]", e.Event, e.Conditions, e.Uninterpreted)
	}
	return prefix + "   " + e.Event + " [" + e.Uninterpreted + "]"
}
