package decode

import (
	"fmt"
	"time"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// The MBB's serial console reports times at GMT-7; the reference output
// follows that convention, so it is the default here too.
const DefaultUTCOffsetSeconds = -7 * 60 * 60

// zeroTimeLayout matches the reference decoder's timestamp rendering.
const zeroTimeLayout = "01/02/2006 15:04:05"

// Entries below this length cannot carry a type code and timestamp.
const minEntryLength = 2

// Hard ceiling on entries per section; the ring cannot hold more than one
// minimal entry per byte.
const maxEntries = RingCapacity

// parseEntries walks the logical stream, producing one decoded entry per
// 0xb2 frame. A byte other than 0xb2 at an entry boundary means the stream
// has run into stale or corrupt data: iteration stops there and everything
// decoded so far is returned along with a truncation warning. The declared
// count is advisory; the stream boundary always wins.
func parseEntries(stream []byte, source string, utcOffset int) ([]model.Entry, []model.Warning) {
	var entries []model.Entry
	var warnings []model.Warning
	warnf := func(kind model.WarnKind, format string, args ...interface{}) {
		warnings = append(warnings, model.Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	seenUnknown := make(map[byte]bool)
	pos := 0
	for pos < len(stream) && len(entries) < maxEntries {
		if stream[pos] != entryHeader {
			warnf(model.WarnTruncatedEntry,
				"unexpected byte 0x%02x at entry boundary 0x%x, stopping", stream[pos], pos)
			break
		}
		if pos+1 >= len(stream) {
			warnf(model.WarnTruncatedEntry, "stream ends after entry header at 0x%x", pos)
			break
		}
		length := int(stream[pos+1])
		if length < minEntryLength {
			warnf(model.WarnTruncatedEntry, "entry at 0x%x declares length %d, stopping", pos, length)
			break
		}
		if pos+length > len(stream) {
			warnf(model.WarnTruncatedEntry,
				"entry at 0x%x declares length %d past end of section", pos, length)
			break
		}

		// The header and length bytes are literal; everything from the type
		// code on is escaped.
		unescaped, cut := Unescape(stream[pos+2 : pos+length])
		if cut {
			warnf(model.WarnEscapeDecode, "entry at 0x%x ends on a lone escape marker", pos)
		}
		p := pbuf(unescaped)
		typ := p.u8(0)
		ts := p.u32(0x01)
		rec := decodeRecord(typ, p.tail(0x05))
		if rec.Unknown && !seenUnknown[typ] {
			seenUnknown[typ] = true
			warnf(model.WarnUnknownEntryType, "unknown entry type 0x%02x", typ)
		}

		entries = append(entries, model.Entry{
			Line:       len(entries) + 1,
			Type:       typ,
			Timestamp:  ts,
			Time:       formatTimestamp(ts, utcOffset),
			Event:      rec.Event,
			Conditions: rec.Conditions,
			Unknown:    rec.Unknown,
			Source:     source,
		})
		pos += length
	}
	return entries, warnings
}

// formatTimestamp renders the 32-bit timestamp word. Values at or below
// 0xfff come from an early format revision whose encoding is not a direct
// epoch translation; those are passed through as the raw number, exactly as
// the reference decoder does.
func formatTimestamp(ts uint32, utcOffset int) string {
	if ts <= 0xfff {
		return fmt.Sprintf("%d", ts)
	}
	t := time.Unix(int64(ts)+int64(utcOffset), 0).UTC()
	return t.Format(zeroTimeLayout)
}
