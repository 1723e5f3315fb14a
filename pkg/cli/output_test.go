package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func testTable() *Table {
	return &Table{
		Headers: []string{"outcome", "status"},
		Rows: [][]string{
			{"success", "200"},
			{"timeout", "504"},
		},
	}
}

func TestTextFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, testTable()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "OUTCOME") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Index(lines[1], "200") != strings.Index(lines[2], "504") {
		t.Errorf("columns are not aligned:\n%s", buf.String())
	}
}

func TestTextFormatterValue(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "pruned 3 records"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "pruned 3 records\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestJSONFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, testTable()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[1]["outcome"] != "timeout" || got[1]["status"] != "504" {
		t.Errorf("records = %v", got)
	}
}

func TestJSONFormatterStruct(t *testing.T) {
	var buf bytes.Buffer
	data := struct {
		Version string `json:"version"`
	}{Version: "1.0.0"}
	if err := (&JSONFormatter{}).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != `{"version":"1.0.0"}` {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTableRecordsShortRow(t *testing.T) {
	table := &Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}
	recs := table.Records()
	if len(recs) != 1 || recs[0]["a"] != "1" {
		t.Errorf("Records() = %v", recs)
	}
	if _, ok := recs[0]["b"]; ok {
		t.Error("missing cell should be absent")
	}
}
