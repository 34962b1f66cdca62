package decode

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// buildMBBDump assembles a synthetic rev0 MBB dump: signature, static
// metadata, date sections, and event/error log regions holding key-state
// entries.
func buildMBBDump() []byte {
	buf := make([]byte, 0x600)
	copy(buf, "MBB")
	copy(buf[0x2a:], "08/01/2015 10:00:00")
	copy(buf[0x200:], "538ZM1715")
	copy(buf[0x240:], "538ZFAZ33FCK12345")
	buf[0x27b] = 39 // firmware rev
	buf[0x27d] = 3  // board rev
	copy(buf[0x27f:], "DS")

	copy(buf[0x400:], magicBuildDate)
	copy(buf[0x404:], "May  5 2015 12:00:00")
	copy(buf[0x430:], magicFirstRun)
	copy(buf[0x434:], "08/01/2015 10:30:00")

	// Event log: two entries, contiguous.
	copy(buf[0x460:], magicEventLog)
	putU32(buf, 0x464, 0x480) // end
	putU32(buf, 0x468, 0x470) // start
	buf[0x46c] = 2            // count (16-bit in rev0)
	copy(buf[0x470:], keyOnEntry)
	keyOff := []byte{0xb2, 0x08, 0x09, 0x64, 0x00, 0x00, 0x00, 0x00}
	copy(buf[0x478:], keyOff)

	// Error log: one entry.
	copy(buf[0x500:], magicErrorLog)
	putU32(buf, 0x504, 0x518) // end
	putU32(buf, 0x508, 0x510) // start
	buf[0x50c] = 1
	copy(buf[0x510:], keyOnEntry)
	return buf
}

func putU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

func TestFileEndToEnd(t *testing.T) {
	report, err := File(buildMBBDump(), Options{Source: "dump.bin"})
	if err != nil {
		t.Fatal(err)
	}

	if report.Kind != model.UnitMBB {
		t.Errorf("expected MBB, got %s", report.Kind)
	}
	if report.Revision != model.Rev0 {
		t.Errorf("expected rev0, got %s", report.Revision)
	}
	if report.ClaimedCount != 2 {
		t.Errorf("expected claimed count 2, got %d", report.ClaimedCount)
	}
	if len(report.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(report.Entries))
	}
	if len(report.ErrorEntries) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(report.ErrorEntries))
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}

	first := report.Entries[0]
	if first.Event != "Key On " || first.Time != "07/13/2017 19:40:00" {
		t.Errorf("unexpected first entry: %+v", first)
	}
	second := report.Entries[1]
	if second.Event != "Key Off" || second.Time != "100" {
		t.Errorf("unexpected second entry: %+v", second)
	}
	if second.Line != 2 {
		t.Errorf("expected line 2, got %d", second.Line)
	}
}

func TestFileDeterministic(t *testing.T) {
	data := buildMBBDump()
	a, err := File(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := File(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two decodes of the same dump differ")
	}
}

func TestFileBadSignature(t *testing.T) {
	_, err := File(make([]byte, 0x100), Options{})
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestFileDeclaredKindFallback(t *testing.T) {
	// Signature region zeroed out, but the caller knows it is an MBB dump.
	buf := buildMBBDump()
	buf[0], buf[1], buf[2] = 0, 0, 0

	report, err := File(buf, Options{Kind: model.UnitMBB})
	if err != nil {
		t.Fatal(err)
	}
	if report.Kind != model.UnitMBB {
		t.Errorf("expected declared kind to apply, got %s", report.Kind)
	}
	if len(report.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(report.Entries))
	}
}

func TestFileUTCOffsetApplied(t *testing.T) {
	report, err := File(buildMBBDump(), Options{UTCOffsetSeconds: -3600})
	if err != nil {
		t.Fatal(err)
	}
	if report.Entries[0].Time != "07/14/2017 01:40:00" {
		t.Errorf("expected GMT-1 render, got %q", report.Entries[0].Time)
	}
}

func BenchmarkFile(b *testing.B) {
	data := buildMBBDump()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := File(data, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
