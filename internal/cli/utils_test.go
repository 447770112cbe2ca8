package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/orieg/edu-policy-navigator-sub001/internal/lookup"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "small rural districts",
		QueryTime: 42,
		Total:     2,
		Results: []*models.SearchResult{
			{
				ID:    "district-0661259",
				Text:  "Pacific Elementary is a single-school district on the San Mateo coast.",
				Score: 0.9312,
				Rank:  1,
				Document: &models.Document{
					ID:    "district-0661259",
					Text:  "Pacific Elementary is a single-school district on the San Mateo coast.",
					Attrs: map[string]interface{}{"name": "Pacific Elementary"},
				},
			},
			{
				ID:    "district-0661175",
				Text:  "La Honda-Pescadero Unified serves a large rural attendance area.",
				Score: 0.8974,
				Rank:  2,
				Document: &models.Document{
					ID:    "district-0661175",
					Text:  "La Honda-Pescadero Unified serves a large rural attendance area.",
					Attrs: map[string]interface{}{"name": "La Honda-Pescadero Unified"},
				},
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d, want query=%q query_time=%d",
			decoded.Query, decoded.QueryTime, response.Query, response.QueryTime)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].ID != "district-0661259" {
		t.Errorf("decoded results: want two results starting with district-0661259, got %+v", decoded.Results)
	}
}

func TestWriteSearchResults_JSON_empty(t *testing.T) {
	response := &models.SearchResponse{Query: "q", Results: nil}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("empty response JSON decode: %v", err)
	}
	if decoded.Total != 0 || len(decoded.Results) != 0 {
		t.Errorf("expected empty result set, got total=%d results=%d", decoded.Total, len(decoded.Results))
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 results", "42ms", "Rank: 1", "district-0661259", "Pacific Elementary", "Rank: 2", "La Honda-Pescadero Unified"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatalf("WriteSearchResults(compact): %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("compact output: want 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 4 {
		t.Fatalf("compact line: want 4 tab fields, got %d: %q", len(fields), lines[0])
	}
	if fields[0] != "1" || fields[2] != "district-0661259" || fields[3] != "Pacific Elementary" {
		t.Errorf("unexpected compact line: %q", lines[0])
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchOutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"", OutputText, false},
		{"json", OutputJSON, false},
		{"compact", OutputCompact, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteLookupResults_suggestions(t *testing.T) {
	var buf bytes.Buffer
	err := WriteLookupResults(&buf, nil, []string{"pescadero", "pacifica"}, OutputText)
	if err != nil {
		t.Fatalf("WriteLookupResults: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No matches") || !strings.Contains(out, "Did you mean: pescadero, pacifica") {
		t.Errorf("suggestion output wrong:\n%s", out)
	}
}

func TestWriteLookupResults_text(t *testing.T) {
	results := []*lookup.Result{
		{ID: "district-0661175", Name: "La Honda-Pescadero Unified", Score: 1.5},
	}
	var buf bytes.Buffer
	if err := WriteLookupResults(&buf, results, nil, OutputText); err != nil {
		t.Fatalf("WriteLookupResults: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 1 matches") || !strings.Contains(out, "La Honda-Pescadero Unified") {
		t.Errorf("lookup text output wrong:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this is longer than ten", 10, "this is lo..."},
		{"no limit", 0, "no limit"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three four", 2); got != "one two..." {
		t.Errorf("TruncateWords = %q", got)
	}
	if got := TruncateWords("one two", 5); got != "one two" {
		t.Errorf("TruncateWords under limit = %q", got)
	}
}
