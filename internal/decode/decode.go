// Package decode implements the binary decoding engine for Zero MBB and BMS
// diagnostic log dumps: section location, ring-buffer reconstruction, escape
// decoding, entry iteration, and per-type field decoding. It operates on a
// byte buffer and performs no I/O of its own.
package decode

import (
	"errors"
	"fmt"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// ErrBadSignature is the one fatal condition: the dump carries no
// recognizable unit signature, so nothing can be decoded.
var ErrBadSignature = errors.New("unrecognized unit signature")

// Options control a decode pass.
type Options struct {
	// Kind overrides signature auto-detection, for unlabeled dumps whose
	// unit is known from context (e.g. the filename).
	Kind model.UnitKind
	// UTCOffsetSeconds shifts rendered timestamps; zero means the default
	// GMT-7 convention of the reference output.
	UTCOffsetSeconds int
	// Source is an optional origin tag carried on each entry.
	Source string
}

// File decodes one complete dump in a single pass. All recoverable
// conditions degrade to warnings on the returned report; only a missing
// signature is an error.
func File(data []byte, opts Options) (*model.Report, error) {
	// Signature first; the declared kind only covers dumps whose signature
	// region was not captured.
	kind := DetectKind(data)
	if kind == model.UnitUnknown && opts.Kind != "" {
		kind = opts.Kind
	}
	if kind != model.UnitMBB && kind != model.UnitBMS {
		return nil, fmt.Errorf("%w at offset 0x000", ErrBadSignature)
	}

	utcOffset := opts.UTCOffsetSeconds
	if utcOffset == 0 {
		utcOffset = DefaultUTCOffsetSeconds
	}

	sec := Locate(data, kind)
	report := &model.Report{
		Kind:         kind,
		Revision:     sec.Revision,
		Header:       sec.Header,
		BuildDate:    sec.BuildDate,
		FirstRunDate: sec.FirstRunDate,
		Warnings:     sec.Warnings,
	}

	if sec.Revision == model.Rev2 {
		// Gen3 dumps carry a fencepost-delimited entry stream instead of the
		// 0xb2 framing; there is no declared count, so the claimed count is
		// what the fencepost walk found.
		entries, warns := parseGen3(data, opts.Source, utcOffset)
		report.Entries = entries
		report.ClaimedCount = len(entries)
		report.Warnings = append(report.Warnings, warns...)
		return report, nil
	}

	if sec.EventLog != nil {
		report.ClaimedCount = sec.EventLog.Count
		stream := Unwrap(data, sec.EventLog.Start, sec.EventLog.End, sec.EventLog.DataBegin, len(data))
		entries, warns := parseEntries(stream, opts.Source, utcOffset)
		report.Entries = entries
		report.Warnings = append(report.Warnings, warns...)
	}
	if sec.ErrorLog != nil {
		stream := Unwrap(data, sec.ErrorLog.Start, sec.ErrorLog.End, sec.ErrorLog.DataBegin, len(data))
		entries, warns := parseEntries(stream, opts.Source, utcOffset)
		report.ErrorEntries = entries
		report.Warnings = append(report.Warnings, warns...)
	}
	return report, nil
}
