package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

// Stats holds a point-in-time snapshot of decode metrics.
type Stats struct {
	Uptime        string           `json:"uptime"`
	TotalEntries  int64            `json:"total_entries"`
	FilesDecoded  int64            `json:"files_decoded"`
	EventCounts   map[string]int64 `json:"event_counts"`
	UnknownTypes  []string         `json:"unknown_types"`
	UnknownCount  int64            `json:"unknown_count"`
	WarningCount  int64            `json:"warning_count"`
	DroppedEvents int64            `json:"dropped_events"`
}

// Aggregator tallies decoded entries across runs: counts per event type and
// the unknown type codes seen, so undocumented firmware behavior is easy to
// spot and report.
type Aggregator struct {
	mu           sync.RWMutex
	startTime    time.Time
	totalEntries int64
	filesDecoded int64
	eventCounts  map[string]int64
	unknownTypes map[byte]struct{}
	unknownCount int64
	warningCount int64
	dropped      func() int64
	entries      <-chan model.Entry
}

// New creates an Aggregator. entries may be nil for one-shot use; droppedFn
// provides the hub's live drop counter (nil means zero).
func New(entries <-chan model.Entry, droppedFn func() int64) *Aggregator {
	if droppedFn == nil {
		droppedFn = func() int64 { return 0 }
	}
	return &Aggregator{
		startTime:    time.Now(),
		eventCounts:  make(map[string]int64),
		unknownTypes: make(map[byte]struct{}),
		dropped:      droppedFn,
		entries:      entries,
	}
}

// RecordReport tallies a whole decode pass at once.
func (a *Aggregator) RecordReport(r *model.Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filesDecoded++
	a.warningCount += int64(len(r.Warnings))
	for _, e := range r.Entries {
		a.recordLocked(e)
	}
}

// Record tallies one decoded entry.
func (a *Aggregator) Record(e model.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordLocked(e)
}

func (a *Aggregator) recordLocked(e model.Entry) {
	a.totalEntries++
	if e.Unknown {
		a.unknownCount++
		a.unknownTypes[e.Type] = struct{}{}
		return
	}
	a.eventCounts[e.Event]++
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int64, len(a.eventCounts))
	for k, v := range a.eventCounts {
		counts[k] = v
	}
	types := make([]string, 0, len(a.unknownTypes))
	for t := range a.unknownTypes {
		types = append(types, hexType(t))
	}
	sort.Strings(types)

	return Stats{
		Uptime:        time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEntries:  a.totalEntries,
		FilesDecoded:  a.filesDecoded,
		EventCounts:   counts,
		UnknownTypes:  types,
		UnknownCount:  a.unknownCount,
		WarningCount:  a.warningCount,
		DroppedEvents: a.dropped(),
	}
}

// Start consumes entries from the subscription channel until the context is
// cancelled or the channel closes.
func (a *Aggregator) Start(ctx context.Context) {
	if a.entries == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-a.entries:
			if !ok {
				return
			}
			a.Record(e)
		}
	}
}

const hexDigits = "0123456789abcdef"

func hexType(t byte) string {
	return string([]byte{'0', 'x', hexDigits[t>>4], hexDigits[t&0xf]})
}
