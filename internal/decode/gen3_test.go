package decode

import (
	"strings"
	"testing"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// gen3Dump builds a Gen3-layout MBB dump: signature, fencepost bytes in the
// header, VIN at its Gen3 offset, and two fencepost-framed entries. The
// header bytes at 0x0a-0x0c themselves form the first fencepost match, so the
// counter there is set to the first entry's value.
func gen3Dump() []byte {
	buf := make([]byte, 0x13d)
	copy(buf, "MBB")
	buf[0x0a], buf[0x0b], buf[0x0c] = 0xaa, 0x04, 0xcc
	copy(buf[0x029:], "538ZFAZ33FCK12345")

	// Entry 0: timestamp 1700000000 big-endian, counter 0x04.
	copy(buf[0xfc:], []byte{0x65, 0x53, 0xf1, 0x00, 0xaa, 0x04, 0xcc})
	copy(buf[0x103:], "Charging Continue. ChargeState: 4")

	// Entry 1: timestamp 1700000100, counter 0x05, trailing data block.
	copy(buf[0x124:], []byte{0x65, 0x53, 0xf1, 0x64, 0xaa, 0x05, 0xcc})
	copy(buf[0x12b:], "Batt SOC = 66%")
	copy(buf[0x139:], []byte{0x00, 0xb2, 0x12, 0x34})
	return buf
}

// gen3Frame wraps message text in the on-disk entry shape: big-endian
// timestamp, fencepost, text.
func gen3Frame(text string) []byte {
	return append([]byte{0x65, 0x53, 0xf1, 0x00, 0xaa, 0x04, 0xcc}, text...)
}

func TestGen3NextValue(t *testing.T) {
	cases := []struct{ in, want byte }{
		{0x01, 0x02},
		{0xfd, 0xff}, // 0xfe is skipped
		{0xff, 0x01}, // wraps past 0x00
	}
	for _, c := range cases {
		if got := gen3NextValue(c.in); got != c.want {
			t.Errorf("gen3NextValue(0x%02x) = 0x%02x, want 0x%02x", c.in, got, c.want)
		}
	}
}

func TestGen3Frames(t *testing.T) {
	frames := gen3Frames(gen3Dump())
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	// Each frame starts four bytes before its fencepost so the timestamp
	// rides along.
	if len(frames[0]) != 40 {
		t.Errorf("expected frame 0 length 40, got %d", len(frames[0]))
	}
	if !strings.Contains(string(frames[0]), "Charging Continue") {
		t.Errorf("expected first entry text in frame 0, got %q", frames[0])
	}
	if !strings.Contains(string(frames[1]), "Batt SOC") {
		t.Errorf("expected second entry text in frame 1, got %q", frames[1])
	}
}

func TestParseGen3(t *testing.T) {
	entries, warnings := parseGen3(gen3Dump(), "dump.bin", DefaultUTCOffsetSeconds)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	e := entries[0]
	if e.Line != 0 {
		t.Errorf("expected zero-based line numbers, got first line %d", e.Line)
	}
	if e.Timestamp != 1700000000 {
		t.Errorf("expected timestamp 1700000000, got %d", e.Timestamp)
	}
	if e.Time != "11/14/2023 15:13:20" {
		t.Errorf("expected time '11/14/2023 15:13:20', got %q", e.Time)
	}
	if e.Event != "Charging Continue" {
		t.Errorf("expected event 'Charging Continue', got %q", e.Event)
	}
	if e.Conditions != "ChargeState: 4" {
		t.Errorf("expected conditions 'ChargeState: 4', got %q", e.Conditions)
	}
	if e.Uninterpreted != "" {
		t.Errorf("expected no trailing block, got %q", e.Uninterpreted)
	}
	if e.Source != "dump.bin" {
		t.Errorf("expected source 'dump.bin', got %q", e.Source)
	}

	e = entries[1]
	if e.Line != 1 {
		t.Errorf("expected line 1, got %d", e.Line)
	}
	if e.Event != "Batt SOC" || e.Conditions != "66%" {
		t.Errorf("expected 'Batt SOC' / '66%%', got %q / %q", e.Event, e.Conditions)
	}
	if e.Uninterpreted != "0x12 0x34" {
		t.Errorf("expected trailing block '0x12 0x34', got %q", e.Uninterpreted)
	}
}

func TestParseGen3TooShort(t *testing.T) {
	entries, warnings := parseGen3(make([]byte, 8), "", 0)
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnSectionNotFound {
		t.Fatalf("expected a single section_not_found warning, got %v", warnings)
	}
}

func TestParseGen3TimestampRange(t *testing.T) {
	buf := gen3Dump()
	// Knock the first entry's timestamp down to 1: decodable, but far outside
	// the plausible window for a Gen3 bike.
	copy(buf[0xfc:0x100], []byte{0x00, 0x00, 0x00, 0x01})

	entries, warnings := parseGen3(buf, "", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if warnings[0].Kind != model.WarnTimestampRange {
		t.Errorf("expected timestamp_range warning, got %s", warnings[0].Kind)
	}
	if !strings.Contains(warnings[0].Message, "out of normal range") {
		t.Errorf("unexpected warning message %q", warnings[0].Message)
	}
}

func TestParseGen3EntryHeuristics(t *testing.T) {
	cases := []struct {
		text       string
		event      string
		conditions string
	}{
		{"Riding", "Riding", ""},
		{"Module 01 Opening Contactor: precharge timeout", "Module 01 Opening Contactor", "precharge timeout"},
		{"Batt SOC = 66%", "Batt SOC", "66%"},
		{"I_(Batt: 2, Motor: 3)A", "Current", "I_Batt: 2A, I_Motor: 3A"},
		{"SOC changed from 50 to 60", "SOC changed", "from: 50, to: 60"},
		{"Contactor drive (On)", "Contactor drive", "On"},
		{"Fault. Old: 0x05 New: 0x07", "Fault", "old: 101, new: 111"},
		{"Cell check. V_(min: 3.4, max: 3.6)V,", "Cell check", "V_min: 3.4V, V_max: 3.6V"},
		{"Charger status. Mode CC, Limit 10A", "Charger status", "Mode: CC, Limit: 10A"},
	}
	for _, c := range cases {
		e := parseGen3Entry(gen3Frame(c.text), 0)
		if e.Event != c.event {
			t.Errorf("%q: expected event %q, got %q", c.text, c.event, e.Event)
		}
		if e.Conditions != c.conditions {
			t.Errorf("%q: expected conditions %q, got %q", c.text, c.conditions, e.Conditions)
		}
	}
}

func TestBitStringsPadsToCommonWidth(t *testing.T) {
	oldBits, newBits := bitStrings("0x2", "0x10")
	if oldBits != "00010" || newBits != "10000" {
		t.Errorf("expected padded bit strings, got %q / %q", oldBits, newBits)
	}
}

func TestFileGen3Dump(t *testing.T) {
	report, err := File(gen3Dump(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Kind != model.UnitMBB {
		t.Errorf("expected MBB, got %s", report.Kind)
	}
	if report.Revision != model.Rev2 {
		t.Errorf("expected revision 2, got %d", report.Revision)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
	if report.ClaimedCount != 2 || len(report.Entries) != 2 {
		t.Fatalf("expected 2 entries claimed and decoded, got %d/%d",
			report.ClaimedCount, len(report.Entries))
	}

	var vin string
	for _, h := range report.Header {
		if h.Name == "VIN" {
			vin = h.Value
		}
	}
	if vin != "538ZFAZ33FCK12345" {
		t.Errorf("expected VIN from the Gen3 offset, got %q", vin)
	}

	// Default GMT-7 rendering applies to Gen3 entries too.
	if report.Entries[0].Time != "11/14/2023 15:13:20" {
		t.Errorf("expected default-offset time, got %q", report.Entries[0].Time)
	}
}
