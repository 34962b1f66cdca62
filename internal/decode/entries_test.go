package decode

import (
	"strings"
	"testing"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// keyOnEntry is a complete key-state frame: header, length 8, type 0x09,
// timestamp 0x59682f00 little-endian, payload 0x01 (key on).
var keyOnEntry = []byte{0xb2, 0x08, 0x09, 0x00, 0x2f, 0x68, 0x59, 0x01}

func TestParseEntriesSingle(t *testing.T) {
	entries, warnings := parseEntries(keyOnEntry, "dump.bin", DefaultUTCOffsetSeconds)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.Line != 1 {
		t.Errorf("expected line 1, got %d", e.Line)
	}
	if e.Type != 0x09 {
		t.Errorf("expected type 0x09, got 0x%02x", e.Type)
	}
	if e.Timestamp != 0x59682f00 {
		t.Errorf("expected timestamp 0x59682f00, got 0x%08x", e.Timestamp)
	}
	// 1500000000 epoch seconds rendered at the default GMT-7.
	if e.Time != "07/13/2017 19:40:00" {
		t.Errorf("expected time '07/13/2017 19:40:00', got %q", e.Time)
	}
	if e.Event != "Key On " {
		t.Errorf("expected event 'Key On ', got %q", e.Event)
	}
	if e.Conditions != "" {
		t.Errorf("expected empty conditions, got %q", e.Conditions)
	}
	if e.Source != "dump.bin" {
		t.Errorf("expected source 'dump.bin', got %q", e.Source)
	}
}

func TestParseEntriesEscapedTimestamp(t *testing.T) {
	// Timestamp 0x000000b2 has a byte needing the escape pair 0xfe 0x4d;
	// the declared length counts wire bytes, so the frame grows by one.
	stream := []byte{0xb2, 0x09, 0x09, 0xfe, 0x4d, 0x00, 0x00, 0x00, 0x00}
	entries, warnings := parseEntries(stream, "", 0)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Timestamp != 0xb2 {
		t.Errorf("expected timestamp 0xb2, got 0x%08x", entries[0].Timestamp)
	}
	// Sub-0x1000 timestamps render as the raw number.
	if entries[0].Time != "178" {
		t.Errorf("expected time '178', got %q", entries[0].Time)
	}
	if entries[0].Event != "Key Off" {
		t.Errorf("expected event 'Key Off', got %q", entries[0].Event)
	}
}

func TestParseEntriesStopsAtBadBoundary(t *testing.T) {
	stream := append(append([]byte{}, keyOnEntry...), 0x00, 0x00, 0x00)
	entries, warnings := parseEntries(stream, "", 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry before the bad boundary, got %d", len(entries))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Kind != model.WarnTruncatedEntry {
		t.Errorf("expected truncated_entry warning, got %s", warnings[0].Kind)
	}
}

func TestParseEntriesDeclaredLengthPastEnd(t *testing.T) {
	stream := []byte{0xb2, 0x20, 0x09}
	entries, warnings := parseEntries(stream, "", 0)
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnTruncatedEntry {
		t.Fatalf("expected a single truncated_entry warning, got %v", warnings)
	}
}

func TestParseEntriesUnknownType(t *testing.T) {
	// Two entries of the same undocumented type: one warning, not two.
	frame := []byte{0xb2, 0x0a, 0x77, 0x00, 0x10, 0x00, 0x00, 0x01, 0x02, 0x03}
	stream := append(append([]byte{}, frame...), frame...)
	entries, warnings := parseEntries(stream, "", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 deduplicated warning, got %v", warnings)
	}
	if warnings[0].Kind != model.WarnUnknownEntryType {
		t.Errorf("expected unknown_entry_type warning, got %s", warnings[0].Kind)
	}
	if !strings.Contains(warnings[0].Message, "0x77") {
		t.Errorf("expected type code in message, got %q", warnings[0].Message)
	}

	e := entries[0]
	if !e.Unknown {
		t.Error("expected unknown flag for undocumented type code")
	}
	if e.Event != "0x77 0x01 0x02 0x03" {
		t.Errorf("expected hex fallback event, got %q", e.Event)
	}
	if !strings.Contains(e.Conditions, "???") {
		t.Errorf("expected ??? marker in conditions, got %q", e.Conditions)
	}
}

func TestParseEntriesShortPayloadDecodesToZeros(t *testing.T) {
	// A riding-status frame with no payload at all: every field reads zero.
	stream := []byte{0xb2, 0x07, 0x2c, 0x00, 0x10, 0x00, 0x00}
	entries, _ := parseEntries(stream, "", 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Event != "Riding" {
		t.Errorf("expected event 'Riding', got %q", entries[0].Event)
	}
	if !strings.Contains(entries[0].Conditions, "Vpack:  0.000V") {
		t.Errorf("expected zeroed pack voltage, got %q", entries[0].Conditions)
	}
}

func TestFormatTimestampRawBelowThreshold(t *testing.T) {
	if got := formatTimestamp(0xfff, DefaultUTCOffsetSeconds); got != "4095" {
		t.Errorf("expected '4095', got %q", got)
	}
	if got := formatTimestamp(0, DefaultUTCOffsetSeconds); got != "0" {
		t.Errorf("expected '0', got %q", got)
	}
}

func TestFormatTimestampOffset(t *testing.T) {
	// Same instant, one hour apart.
	utc := formatTimestamp(1500000000, 0)
	if utc != "07/14/2017 02:40:00" {
		t.Errorf("expected UTC render, got %q", utc)
	}
	shifted := formatTimestamp(1500000000, -3600)
	if shifted != "07/14/2017 01:40:00" {
		t.Errorf("expected shifted render, got %q", shifted)
	}
}
