package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
	"github.com/desertthunder/trackdl/internal/tasks"
)

func sampleDownloads() []*models.Download {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return []*models.Download{
		models.RestoreDownload("row-1", 1, created, nil, models.Download{
			TrackID:    "0000000000000000ABC123",
			ResolvedID: "0000000000000000ABC123",
			Title:      "Song One",
			Artists:    "Artist One, Artist Two",
			Album:      "Album One",
			Format:     "OGG_VORBIS_320",
			Sink:       "file",
			Path:       "/music/Artist One, Artist Two - Song One [ABC123].ogg",
			Bytes:      2048,
		}),
		models.RestoreDownload("row-2", 2, created.Add(time.Minute), nil, models.Download{
			TrackID:    "0000000000000000DEF456",
			ResolvedID: "0000000000000000XYZ789",
			Title:      "Song, \"Two\"",
			Artists:    "Artist Three",
			Album:      "Album Two",
			Format:     "OGG_VORBIS_160",
			Sink:       "process",
			Bytes:      3 * 1024 * 1024,
		}),
	}
}

func TestHistoryExporters(t *testing.T) {
	t.Run("HistoryToCSV", func(t *testing.T) {
		data, err := HistoryToCSV(sampleDownloads())
		if err != nil {
			t.Fatalf("HistoryToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Sequence,Track ID,Resolved ID,Title,Artists,Album,Format,Sink,Path,Bytes,Created At") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Artist One, Artist Two"`) {
			t.Errorf("CSV should quote fields with commas, got: %s", output)
		}
		if !strings.Contains(output, `"Song, ""Two"""`) {
			t.Errorf("CSV should escape quotes, got: %s", output)
		}
		if !strings.Contains(output, "2025-03-14T09:26:53Z") {
			t.Errorf("CSV missing RFC3339 timestamp, got: %s", output)
		}

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 3 {
			t.Errorf("expected header plus 2 rows, got %d lines", len(lines))
		}
	})

	t.Run("HistoryToJSON", func(t *testing.T) {
		data, err := HistoryToJSON(sampleDownloads())
		if err != nil {
			t.Fatalf("HistoryToJSON failed: %v", err)
		}

		var records []HistoryRecord
		if err := json.Unmarshal(data, &records); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[1].ResolvedID != "0000000000000000XYZ789" {
			t.Errorf("expected resolved id to survive export, got %q", records[1].ResolvedID)
		}
		if records[0].Sequence != 1 || records[0].ID != "row-1" {
			t.Errorf("unexpected identity fields: %+v", records[0])
		}
		if strings.Contains(string(data), `"path": ""`) {
			t.Errorf("empty path should be omitted")
		}
	})

	t.Run("HistoryToText", func(t *testing.T) {
		data, err := HistoryToText(sampleDownloads())
		if err != nil {
			t.Fatalf("HistoryToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Song One", "Album Two", "2.0 KiB", "3.0 MiB", "process"} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q, got:\n%s", want, output)
			}
		}
		if !strings.Contains(output, "╭") {
			t.Errorf("expected rounded table borders, got:\n%s", output)
		}
	})

	t.Run("HistoryToText empty", func(t *testing.T) {
		data, err := HistoryToText(nil)
		if err != nil {
			t.Fatalf("HistoryToText failed: %v", err)
		}
		if string(data) != "No downloads recorded.\n" {
			t.Errorf("unexpected empty output: %q", data)
		}
	})
}

func TestHistory(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{name: "default is text", format: "", want: "╭"},
		{name: "text", format: FormatText, want: "Song One"},
		{name: "csv", format: FormatCSV, want: "Sequence,Track ID"},
		{name: "json", format: FormatJSON, want: `"track_id": "0000000000000000ABC123"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := History(tt.format, sampleDownloads())
			if err != nil {
				t.Fatalf("History(%q) failed: %v", tt.format, err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("History(%q) missing %q, got:\n%s", tt.format, tt.want, data)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := History("yaml", sampleDownloads())
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRenderTable(t *testing.T) {
	t.Run("pads short rows", func(t *testing.T) {
		out := RenderTable([]string{"A", "B", "C"}, [][]string{{"only"}}, nil)
		if !strings.Contains(out, "only") {
			t.Errorf("missing cell, got:\n%s", out)
		}
		if strings.Count(strings.Split(out, "\n")[3], "│") != 4 {
			t.Errorf("expected padded row with 3 columns, got:\n%s", out)
		}
	})

	t.Run("no headers", func(t *testing.T) {
		if out := RenderTable(nil, [][]string{{"x"}}, nil); out != "" {
			t.Errorf("expected empty output, got %q", out)
		}
	})
}

func TestSummaryToText(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		out := string(SummaryToText(&tasks.RunResult{Planned: 2, Delivered: 2, Skipped: 1, Bytes: 4096}))
		if !strings.Contains(out, "Delivered: 2/2 (4.0 KiB)") {
			t.Errorf("unexpected summary:\n%s", out)
		}
		if strings.Contains(out, "╭") {
			t.Errorf("summary without failures should not render a table:\n%s", out)
		}
	})

	t.Run("failures", func(t *testing.T) {
		result := &tasks.RunResult{
			Planned: 1,
			Failed:  2,
			Failures: []tasks.Failure{
				{Line: 3, Input: "garbage", Err: shared.ErrExtraction},
				{Input: "A - B [C].ogg", Err: errors.New("helper exited with status 1")},
			},
		}
		out := string(SummaryToText(result))
		for _, want := range []string{"Failed: 2", "garbage", "helper exited with status 1", "╭"} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q, got:\n%s", want, out)
			}
		}
	})
}

func TestPlanToText(t *testing.T) {
	items := []models.WorkItem{{Filename: "A - One [x].ogg"}, {Filename: "B - Two [y].ogg"}}
	report := &tasks.PlanReport{Planned: 2, Skipped: []string{"C - Three [z].ogg"}}

	out := string(PlanToText(items, report))
	if !strings.Contains(out, "1. A - One [x].ogg\n2. B - Two [y].ogg") {
		t.Errorf("unexpected listing:\n%s", out)
	}
	if !strings.Contains(out, "Planned: 2, already downloaded: 1, failed: 0") {
		t.Errorf("unexpected totals:\n%s", out)
	}
}
