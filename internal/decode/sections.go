package decode

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// Section magics: four repeated nibble-pattern bytes marking each region.
var (
	magicBuildDate = []byte{0xa0, 0xa0, 0xa0, 0xa0}
	magicFirstRun  = []byte{0xa1, 0xa1, 0xa1, 0xa1}
	magicEventLog  = []byte{0xa2, 0xa2, 0xa2, 0xa2}
	magicErrorLog  = []byte{0xa3, 0xa3, 0xa3, 0xa3}
)

const (
	vinLength = 17
	vinPrefix = "538"
)

// isVIN reports whether s looks like a Zero VIN.
func isVIN(s string) bool {
	return isPrintable(s) && len(s) == vinLength && strings.HasPrefix(s, vinPrefix)
}

// LogSection describes an event or error log region: addresses are absolute
// file offsets, Count is the declared (advisory) entry count.
type LogSection struct {
	Start     int
	End       int
	DataBegin int
	Count     int
}

// Sections is everything the locator extracts from a dump: the unit kind,
// the resolved format revision, ordered header metadata, and the log region
// boundaries.
type Sections struct {
	Kind         model.UnitKind
	Revision     model.FormatRevision
	Header       []model.HeaderField
	BuildDate    string
	FirstRunDate string
	EventLog     *LogSection
	ErrorLog     *LogSection
	Warnings     []model.Warning
}

func (s *Sections) warnf(kind model.WarnKind, format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, model.Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// DetectKind probes the 3-byte ASCII unit signature. The primary location is
// offset 0; some dumps carry a prefix and place it at 0x0d instead.
func DetectKind(buf []byte) model.UnitKind {
	for _, off := range []int{0x000, 0x00d} {
		sig := pbuf(buf).str(off, 3)
		if len(sig) == 3 && isPrintable(sig) {
			switch model.UnitKind(sig) {
			case model.UnitMBB:
				return model.UnitMBB
			case model.UnitBMS:
				return model.UnitBMS
			}
		}
	}
	return model.UnitUnknown
}

// Locate validates the signature, resolves the format revision, reads the
// static header metadata, and finds the log section boundaries. Only a
// missing event log region is fatal downstream; everything else degrades to
// a warning.
func Locate(buf []byte, kind model.UnitKind) *Sections {
	s := &Sections{Kind: kind}
	b := pbuf(buf)

	switch kind {
	case model.UnitMBB:
		locateMBBHeader(b, s)
	case model.UnitBMS:
		locateBMSHeader(b, s)
	}

	s.BuildDate = dateSection(buf, magicBuildDate)
	s.FirstRunDate = dateSection(buf, magicFirstRun)

	if s.Revision == model.Rev2 {
		// Gen3 entries are located by the fencepost walk, not section magics.
		return s
	}

	s.EventLog = locateLogSection(buf, magicEventLog, s.Revision)
	if s.EventLog == nil {
		// Degraded dumps have been seen without the event log header; fall
		// back to the first entry marker and treat the remainder as the
		// section.
		if first := bytes.IndexByte(buf, entryHeader); first >= 0 {
			s.EventLog = &LogSection{Start: first, End: len(buf), DataBegin: first}
			s.warnf(model.WarnSectionNotFound, "event log header missing, scanning from 0x%x", first)
		} else {
			s.warnf(model.WarnSectionNotFound, "event log section not found")
		}
	}
	s.ErrorLog = locateLogSection(buf, magicErrorLog, s.Revision)
	if s.ErrorLog == nil {
		s.warnf(model.WarnSectionNotFound, "error log section not found")
	}
	return s
}

// locateMBBHeader resolves the MBB layout revision by probing the VIN field
// at its known per-revision offsets, then reads the static metadata for the
// resolved layout.
func locateMBBHeader(b pbuf, s *Sections) {
	vin0 := b.str(0x240, vinLength)
	vin1 := b.str(0x252, vinLength)
	vin2 := b.str(0x029, vinLength)

	var modelOffset int
	vin := vin0
	switch {
	case isVIN(vin0):
		s.Revision = model.Rev0
		s.addHeader("Serial number", b.str(0x200, 21))
		s.addHeader("VIN", vin0)
		s.addHeader("Firmware rev.", strconv.Itoa(int(b.u16(0x27b))))
		s.addHeader("Board rev.", strconv.Itoa(int(b.u16(0x27d))))
		modelOffset = 0x27f
	case isVIN(vin1):
		s.Revision = model.Rev1
		vin = vin1
		s.addHeader("Serial number", b.str(0x210, 13))
		s.addHeader("VIN", vin1)
		s.addHeader("Firmware rev.", strconv.Itoa(int(b.u16(0x266))))
		s.addHeader("Board rev.", strconv.Itoa(int(b.u16(0x268))))
		modelOffset = 0x26b
	case isVIN(vin2):
		s.Revision = model.Rev2
		vin = vin2
		s.addHeader("Serial number", b.str(0x03c, 13))
		s.addHeader("VIN", vin2)
		s.addHeader("Firmware rev.", b.str(0x06b, 7))
		s.addHeader("Board rev.", b.str(0x05c, 8))
		modelOffset = 0x019
	default:
		s.warnf(model.WarnHeaderMetadata, "unknown MBB log layout")
		s.addHeader("VIN", vin0)
		modelOffset = 0x27f
	}
	if !isPrintable(vin) {
		s.warnf(model.WarnHeaderMetadata, "VIN unreadable")
	}
	s.addHeader("Model", b.str(modelOffset, 3))
	s.addHeader("Initial date", b.str(0x2a, 20))
}

// locateBMSHeader resolves the BMS layout from the version byte at 0x04.
func locateBMSHeader(b pbuf, s *Sections) {
	switch code := b.u8(0x4); code {
	case 0xb6:
		s.Revision = model.Rev0
	case 0xde:
		s.Revision = model.Rev1
	case 0x79:
		s.Revision = model.Rev2
	default:
		s.warnf(model.WarnHeaderMetadata, "unknown BMS log layout code 0x%02x", code)
	}
	s.addHeader("Initial date", b.str(0x12, 20))
	switch s.Revision {
	case model.Rev0:
		s.addHeader("BMS serial number", b.str(0x300, 21))
		s.addHeader("Pack serial number", b.str(0x320, 8))
	case model.Rev1:
		s.addHeader("Pack serial number", b.str(0x331, 8))
	case model.Rev2:
		s.addHeader("BMS serial number", b.str(0x038, 13))
		s.addHeader("Pack serial number", b.str(0x06c, 7))
	}
}

func (s *Sections) addHeader(name, value string) {
	s.Header = append(s.Header, model.HeaderField{Name: name, Value: value})
}

// dateSection returns the 20-byte ASCII date string following a date-section
// magic, or "" when the magic is absent.
func dateSection(buf []byte, magic []byte) string {
	idx := bytes.Index(buf, magic)
	if idx < 0 {
		return ""
	}
	return pbuf(buf).str(idx+len(magic), 20)
}

// locateLogSection finds a log-region magic and reads its little-endian
// boundary words: end address, start address, declared entry count. Offsets
// have shifted across firmware revisions, so the magic is scanned for rather
// than read at a fixed position. The count word is 16 bits wide in the rev0
// layout and 32 bits from rev1 on; entry data begins 0x10 past the magic in
// either case.
func locateLogSection(buf []byte, magic []byte, rev model.FormatRevision) *LogSection {
	idx := bytes.Index(buf, magic)
	if idx < 0 {
		return nil
	}
	b := pbuf(buf)
	sec := &LogSection{
		End:       int(b.u32(idx + 0x4)),
		Start:     int(b.u32(idx + 0x8)),
		DataBegin: idx + 0x10,
	}
	if rev == model.Rev0 {
		sec.Count = int(b.u16(idx + 0xc))
	} else {
		sec.Count = int(b.u32(idx + 0xc))
	}
	return sec
}
