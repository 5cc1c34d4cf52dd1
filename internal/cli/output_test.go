package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query: "felines",
		Hits: []models.RetrievedHit{
			{
				Document: models.Document{
					ID:       "cat",
					Content:  "cats are small felines",
					Metadata: map[string]string{"source": "/docs/cat.txt"},
				},
				Score: 0.9731,
			},
		},
		Total: 1,
	}
}

func TestWriteSearchResultsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"1 result(s)", "felines", "cat", "0.9731", "/docs/cat.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResultsCompact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("compact output has %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "cat") {
		t.Errorf("compact line missing id: %q", lines[0])
	}
}

func TestWriteSearchResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output not parseable: %v", err)
	}
	if decoded.Total != 1 || decoded.Hits[0].Document.ID != "cat" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestParseFormat(t *testing.T) {
	for _, ok := range []string{"text", "compact", "json"} {
		if _, err := ParseFormat(ok); err != nil {
			t.Errorf("ParseFormat(%q) = %v", ok, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteOutcome(t *testing.T) {
	var buf bytes.Buffer
	WriteOutcome(&buf, ingest.Outcome{
		Attempted: 3,
		Succeeded: 2,
		Failures: []ingest.FileError{
			{Path: "/docs/bad.pdf", Err: errors.New("open PDF: broken")},
		},
	})
	out := buf.String()
	if !strings.Contains(out, "2/3") || !strings.Contains(out, "/docs/bad.pdf") {
		t.Errorf("outcome output:\n%s", out)
	}
}
