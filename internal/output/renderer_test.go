package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		Kind: model.UnitMBB,
		Header: []model.HeaderField{
			{Name: "VIN", Value: "538ZFAZ33FCK12345"},
		},
		Entries: []model.Entry{
			{Line: 1, Type: 0x09, Time: "07/13/2017 19:40:00", Event: "Key On "},
			{Line: 2, Type: 0x09, Time: "100", Event: "Key Off"},
		},
		ErrorEntries: []model.Entry{
			{Line: 1, Type: 0x09, Time: "101", Event: "Key On "},
		},
	}
}

func TestTextRendererBOM(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextRenderer(&buf, true).Render(sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte{0xef, 0xbb, 0xbf}) {
		t.Error("expected UTF-8 BOM prefix")
	}
	if !strings.Contains(buf.String(), "Zero MBB log") {
		t.Error("expected report banner")
	}
}

func TestTextRendererNoBOM(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextRenderer(&buf, false).Render(sampleReport()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Zero MBB log\n") {
		t.Errorf("expected bare banner first, got %q", buf.String()[:20])
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONRenderer(&buf).Render(sampleReport()); err != nil {
		t.Fatal(err)
	}

	var decoded model.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Kind != model.UnitMBB {
		t.Errorf("expected MBB kind, got %s", decoded.Kind)
	}
	if len(decoded.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(decoded.Entries))
	}
	if len(decoded.ErrorEntries) != 1 {
		t.Errorf("expected 1 error entry, got %d", len(decoded.ErrorEntries))
	}
}

func TestCSVRenderer(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVRenderer(&buf).Render(sampleReport()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Header row, two event entries, one error entry.
	if len(lines) != 4 {
		t.Fatalf("expected 4 rows, got %d: %q", len(lines), lines)
	}
	if lines[0] != "entry,time,type,event,conditions" {
		t.Errorf("unexpected header row: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,07/13/2017 19:40:00,0x09,") {
		t.Errorf("unexpected first row: %q", lines[1])
	}
}

func TestRenderWarnings(t *testing.T) {
	var buf bytes.Buffer
	RenderWarnings(&buf, []model.Warning{
		{Kind: model.WarnTruncatedEntry, Message: "entry at 0x10 truncated"},
		{Kind: model.WarnHeaderMetadata, Message: "VIN unreadable"},
	})

	out := buf.String()
	if !strings.Contains(out, "TRUNC") {
		t.Error("expected TRUNC tag for truncation")
	}
	if !strings.Contains(out, "WARN") {
		t.Error("expected WARN tag for metadata warning")
	}
	if !strings.Contains(out, "VIN unreadable") {
		t.Error("expected warning message text")
	}
}
