package model

// UnitKind identifies which control unit produced a log dump.
type UnitKind string

const (
	UnitMBB     UnitKind = "MBB"
	UnitBMS     UnitKind = "BMS"
	UnitUnknown UnitKind = "Unknown Type"
)

// FormatRevision is the on-disk layout revision, resolved once per file by
// the section locator. Offsets of the static metadata fields and the width
// of the entry-count field depend on it.
type FormatRevision int

const (
	Rev0 FormatRevision = iota // original Gen2 layout
	Rev1                       // Gen2 2019+ layout
	Rev2                       // Gen3 layout (fencepost-delimited entries)
)

func (r FormatRevision) String() string {
	switch r {
	case Rev0:
		return "rev0"
	case Rev1:
		return "rev1"
	case Rev2:
		return "rev2"
	default:
		return "unknown"
	}
}

// HeaderField is one static metadata line, in reference output order.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Entry represents a single decoded log entry.
type Entry struct {
	Line       int    `json:"line"`
	Type       byte   `json:"type"`
	Timestamp  uint32 `json:"timestamp"`  // raw little-endian word from the wire
	Time       string `json:"time"`       // rendered per the reference conventions
	Event      string `json:"event"`      // type label, possibly with inline values
	Conditions string `json:"conditions"` // ordered field=value text, empty if none
	Unknown    bool   `json:"unknown"`    // true for the raw-hex fallback
	Source     string `json:"source,omitempty"`

	// Uninterpreted holds the hex dump of a Gen3 entry's trailing binary
	// block; empty for Gen2 entries.
	Uninterpreted string `json:"uninterpreted,omitempty"`
}

// WarnKind classifies the recoverable conditions from the error taxonomy.
type WarnKind string

const (
	WarnSectionNotFound  WarnKind = "section_not_found"
	WarnTruncatedEntry   WarnKind = "truncated_entry"
	WarnUnknownEntryType WarnKind = "unknown_entry_type"
	WarnEscapeDecode     WarnKind = "escape_decode"
	WarnHeaderMetadata   WarnKind = "header_metadata"
	WarnTimestampRange   WarnKind = "timestamp_range"
)

// Warning is a non-fatal condition surfaced alongside the decoded output.
type Warning struct {
	Kind    WarnKind `json:"kind"`
	Message string   `json:"message"`
}

// Report is the full result of decoding one dump: static metadata, the
// decoded entry streams, and any recoverable warnings. It is computed in one
// pass and never mutated afterwards.
type Report struct {
	Kind         UnitKind       `json:"kind"`
	Revision     FormatRevision `json:"revision"`
	Header       []HeaderField  `json:"header"`
	BuildDate    string         `json:"build_date,omitempty"`
	FirstRunDate string         `json:"first_run_date,omitempty"`
	Entries      []Entry        `json:"entries"`
	ErrorEntries []Entry        `json:"error_entries,omitempty"`
	ClaimedCount int            `json:"claimed_count"`
	Warnings     []Warning      `json:"warnings,omitempty"`
}
