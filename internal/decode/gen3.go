package decode

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// Gen3 dumps do not use the 0xb2 frame scheme. Entries are delimited by
// three-byte fenceposts whose outer bytes come from the dump header (offsets
// 0x0a and 0x0c) and whose middle byte is a counter that steps by one per
// entry, skipping 0x00 and 0xfe. The four bytes preceding a fencepost are the
// entry's big-endian timestamp; the text payload follows it.

// gen3DataFencepost separates an entry's text from its trailing binary block.
var gen3DataFencepost = []byte{0x00, 0xb2}

// Fencepost gaps larger than this mean the counter byte was part of
// unrelated data, not the next entry.
const gen3MaxEntryLength = 256

func gen3NextValue(v byte) byte {
	v++
	switch v {
	case 0xfe:
		v = 0xff
	case 0x00:
		v = 0x01
	}
	return v
}

// gen3Fencepost finds the next [b0, value, b2] sequence at or after start.
func gen3Fencepost(buf []byte, b0, value, b2 byte, start int) int {
	for i := start; i+2 < len(buf); i++ {
		if buf[i] == b0 && buf[i+1] == value && buf[i+2] == b2 {
			return i
		}
	}
	return -1
}

// gen3FirstFencepost finds the first [b0, ?, b2] sequence with any counter
// byte other than 0x0a.
func gen3FirstFencepost(buf []byte, b0, b2 byte) int {
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == b0 && buf[i+2] == b2 && buf[i+1] != 0x0a {
			return i
		}
	}
	return -1
}

// gen3Frames slices the raw dump into per-entry payloads by walking the
// fencepost counter. Each payload starts four bytes before its fencepost so
// the timestamp rides along.
func gen3Frames(buf []byte) [][]byte {
	if len(buf) < 0x0d {
		return nil
	}
	b0, b2 := buf[0x0a], buf[0x0c]

	eventStart := gen3FirstFencepost(buf, b0, b2)
	if eventStart < 0 {
		return nil
	}
	current := buf[eventStart+1]

	var frames [][]byte
	for eventStart < len(buf) {
		if next := gen3Fencepost(buf, b0, current, b2, eventStart+1); next >= 0 {
			eventStart = next
		}
		nextVal := gen3NextValue(current)
		eventEnd := gen3Fencepost(buf, b0, nextVal, b2, eventStart+1)
		for eventEnd < 0 || eventEnd-eventStart > gen3MaxEntryLength {
			nextVal = gen3NextValue(nextVal)
			eventEnd = gen3Fencepost(buf, b0, nextVal, b2, eventStart+1)
			if nextVal == current {
				break
			}
		}

		begin := eventStart - 4
		if begin < 0 {
			begin = 0
		}
		if eventEnd >= 0 {
			end := eventEnd - 4
			if end < begin {
				end = begin
			}
			frames = append(frames, buf[begin:end])
		} else {
			frames = append(frames, buf[begin:])
		}

		current = nextVal
		if eventEnd < 0 || eventEnd >= len(buf) {
			break
		}
	}
	return frames
}

// Gen3 timestamps outside this window are treated as suspect, not fatal.
var (
	gen3MinTimestamp = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
)

var (
	gen3ParenPattern   = regexp.MustCompile(`^([^()]+) \(([^()]+)\)`)
	gen3CurrentPattern = regexp.MustCompile(`^(I_)\((.*)\)(.*)`)
	gen3VoltagePattern = regexp.MustCompile(`^(V_)\((.*)\)(.*)`)
	gen3FromToPattern  = regexp.MustCompile(`^(.*) to (.*)`)
	gen3OldNewPattern  = regexp.MustCompile(`Old: (0x[0-9a-fA-F]+) New: (0x[0-9a-fA-F]+)`)
)

// kvPair keeps split-out condition fields in their original order.
type kvPair struct {
	key   string
	value string
}

// parseGen3 decodes the fencepost-delimited entry stream of a Gen3 dump.
// Line numbers start at zero, following the reference output.
func parseGen3(buf []byte, source string, utcOffset int) ([]model.Entry, []model.Warning) {
	frames := gen3Frames(buf)
	if frames == nil {
		return nil, []model.Warning{{
			Kind:    model.WarnSectionNotFound,
			Message: "no entry fenceposts found",
		}}
	}

	maxTimestamp := time.Now().AddDate(1, 0, 0)
	var entries []model.Entry
	var warnings []model.Warning
	for i, frame := range frames {
		e := parseGen3Entry(frame, utcOffset)
		e.Line = i
		e.Source = source

		at := time.Unix(int64(e.Timestamp), 0)
		if !at.After(gen3MinTimestamp) || !at.Before(maxTimestamp) {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnTimestampRange,
				Message: fmt.Sprintf("entry %d timestamp out of normal range: %s", i, e.Time),
			})
		}
		entries = append(entries, e)
	}
	return entries, warnings
}

// parseGen3Entry splits one frame into timestamp, event text, conditions,
// and the uninterpreted trailing block. Gen3 entries carry their conditions
// as free text, so the split is heuristic: sentence boundaries, "key: value"
// and "key = value" forms, "from X to Y" transitions, and the firmware's
// I_(...)/V_(...) measurement lists.
func parseGen3Entry(frame []byte, utcOffset int) model.Entry {
	p := pbuf(frame)
	ts := uint32(p.at(0))<<24 | uint32(p.at(1))<<16 | uint32(p.at(2))<<8 | uint32(p.at(3))

	msg := strings.TrimSpace(p.str(7, len(frame)-7))
	event := msg
	cond := ""
	var fields []kvPair

	switch {
	case len(msg) < 2:
		// Nothing interpretable; the hex block below still shows the bytes.
	case strings.Contains(msg, ". "):
		sentences := strings.Split(msg, ". ")
		cond = sentences[len(sentences)-1]
		if len(sentences) > 2 {
			event = strings.Join(sentences[:len(sentences)-1], ". ")
		} else {
			event = sentences[0]
		}
	case strings.HasPrefix(msg, "I_("):
		if m := gen3CurrentPattern.FindStringSubmatch(msg); m != nil {
			event = "Current"
			fields = append(fields, splitMeasurements(m[1], m[2], m[3])...)
		}
	case strings.Contains(msg, ": "):
		parts := strings.SplitN(msg, ": ", 2)
		event, cond = parts[0], parts[1]
	case strings.Contains(msg, " = "):
		parts := strings.SplitN(msg, " = ", 2)
		event, cond = parts[0], parts[1]
	case strings.Contains(msg, " from ") && strings.Contains(msg, " to "):
		parts := strings.SplitN(msg, " from ", 2)
		event = parts[0]
		if m := gen3FromToPattern.FindStringSubmatch(parts[1]); m != nil {
			fields = append(fields, kvPair{"from", m[1]}, kvPair{"to", m[2]})
		}
	default:
		if m := gen3ParenPattern.FindStringSubmatch(msg); m != nil {
			event, cond = m[1], m[2]
		}
	}

	switch {
	case strings.HasPrefix(cond, "V_("):
		if m := gen3VoltagePattern.FindStringSubmatch(cond); m != nil {
			fields = append(fields, splitMeasurements(m[1], m[2], strings.TrimRight(m[3], ","))...)
		}
	case strings.Contains(cond, "Old: ") && strings.Contains(cond, "New: "):
		if m := gen3OldNewPattern.FindStringSubmatch(cond); m != nil {
			oldBits, newBits := bitStrings(m[1], m[2])
			fields = append(fields, kvPair{"old", oldBits}, kvPair{"new", newBits})
		}
	case strings.Contains(cond, ", "):
		for _, part := range strings.Split(cond, ", ") {
			part = strings.TrimSpace(part)
			if k, v, ok := strings.Cut(part, ": "); ok {
				fields = append(fields, kvPair{k, v})
			} else if words := strings.Split(part, " "); len(words) == 2 {
				fields = append(fields, kvPair{words[0], words[1]})
			} else {
				fields = append(fields, kvPair{part, ""})
			}
		}
	}

	conditions := cond
	if len(fields) > 0 {
		parts := make([]string, len(fields))
		for i, f := range fields {
			if f.key != "" && f.value != "" {
				parts[i] = f.key + ": " + f.value
			} else if f.key != "" {
				parts[i] = f.key
			} else {
				parts[i] = f.value
			}
		}
		conditions = strings.Join(parts, ", ")
	}

	uninterpreted := ""
	if idx := bytes.Index(frame, gen3DataFencepost); idx >= 0 && idx+2 < len(frame) {
		uninterpreted = hexBytes(frame[idx+2:])
	}

	return model.Entry{
		Timestamp:     ts,
		Time:          formatTimestamp(ts, utcOffset),
		Event:         event,
		Conditions:    conditions,
		Uninterpreted: uninterpreted,
	}
}

// splitMeasurements expands a measurement list like "I_(Batt: 2, Motor: 3)A"
// into prefixed key/value pairs with the unit suffix re-attached.
func splitMeasurements(prefix, list, suffix string) []kvPair {
	var fields []kvPair
	for _, part := range strings.Split(list, ", ") {
		if k, v, ok := strings.Cut(part, ": "); ok {
			fields = append(fields, kvPair{prefix + k, v + suffix})
		}
	}
	return fields
}

// bitStrings renders two hex words as binary, zero-padded to a common width
// when they differ.
func bitStrings(oldHex, newHex string) (string, string) {
	oldInt, _ := strconv.ParseUint(strings.TrimPrefix(oldHex, "0x"), 16, 64)
	newInt, _ := strconv.ParseUint(strings.TrimPrefix(newHex, "0x"), 16, 64)
	oldBits := strconv.FormatUint(oldInt, 2)
	newBits := strconv.FormatUint(newInt, 2)
	if len(oldBits) != len(newBits) {
		width := len(oldBits)
		if len(newBits) > width {
			width = len(newBits)
		}
		oldBits = fmt.Sprintf("%0*b", width, oldInt)
		newBits = fmt.Sprintf("%0*b", width, newInt)
	}
	return oldBits, newBits
}
