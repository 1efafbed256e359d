// package formatter renders download history and run summaries (CSV, JSON, text tables)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
	"github.com/desertthunder/trackdl/internal/tasks"
)

// Supported history formats
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// HistoryRecord is the exported view of a [models.Download].
type HistoryRecord struct {
	Sequence   int       `json:"sequence"`
	ID         string    `json:"id"`
	TrackID    string    `json:"track_id"`
	ResolvedID string    `json:"resolved_id"`
	Title      string    `json:"title"`
	Artists    string    `json:"artists"`
	Album      string    `json:"album"`
	Format     string    `json:"format"`
	Sink       string    `json:"sink"`
	Path       string    `json:"path,omitempty"`
	Bytes      int64     `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewHistoryRecords converts stored downloads to their exported form.
func NewHistoryRecords(downloads []*models.Download) []HistoryRecord {
	records := make([]HistoryRecord, 0, len(downloads))
	for _, d := range downloads {
		records = append(records, HistoryRecord{
			Sequence:   d.Sequence(),
			ID:         d.ID(),
			TrackID:    d.TrackID,
			ResolvedID: d.ResolvedID,
			Title:      d.Title,
			Artists:    d.Artists,
			Album:      d.Album,
			Format:     d.Format,
			Sink:       d.Sink,
			Path:       d.Path,
			Bytes:      d.Bytes,
			CreatedAt:  d.CreatedAt(),
		})
	}
	return records
}

// History renders downloads in the named format: text, csv or json.
func History(format string, downloads []*models.Download) ([]byte, error) {
	switch format {
	case FormatText, "":
		return HistoryToText(downloads)
	case FormatCSV:
		return HistoryToCSV(downloads)
	case FormatJSON:
		return HistoryToJSON(downloads)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want text, csv or json)", shared.ErrInvalidArgument, format)
	}
}

// HistoryToCSV converts downloads to CSV with columns: Sequence, Track ID, Resolved ID, Title, Artists, Album, Format, Sink, Path, Bytes, Created At
func HistoryToCSV(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Track ID", "Resolved ID", "Title", "Artists", "Album", "Format", "Sink", "Path", "Bytes", "Created At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range NewHistoryRecords(downloads) {
		record := []string{
			strconv.Itoa(r.Sequence),
			r.TrackID,
			r.ResolvedID,
			r.Title,
			r.Artists,
			r.Album,
			r.Format,
			r.Sink,
			r.Path,
			strconv.FormatInt(r.Bytes, 10),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToJSON converts downloads to an indented JSON array.
func HistoryToJSON(downloads []*models.Download) ([]byte, error) {
	data, err := json.MarshalIndent(NewHistoryRecords(downloads), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return append(data, '\n'), nil
}

// HistoryToText converts downloads to a table.
func HistoryToText(downloads []*models.Download) ([]byte, error) {
	if len(downloads) == 0 {
		return []byte("No downloads recorded.\n"), nil
	}

	headers := []string{"#", "Artists", "Title", "Album", "Format", "Sink", "Size", "Downloaded"}
	rows := make([][]string, 0, len(downloads))
	for _, r := range NewHistoryRecords(downloads) {
		rows = append(rows, []string{
			strconv.Itoa(r.Sequence),
			r.Artists,
			r.Title,
			r.Album,
			r.Format,
			r.Sink,
			humanize.IBytes(uint64(r.Bytes)),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	aligns := []ColumnAlignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft}
	return []byte(RenderTable(headers, rows, aligns) + "\n"), nil
}

// PlanToText lists planned work items.
func PlanToText(items []models.WorkItem, report *tasks.PlanReport) []byte {
	var buf bytes.Buffer
	for i, item := range items {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Filename))
	}
	if report != nil {
		buf.WriteString(fmt.Sprintf("\nPlanned: %d, already downloaded: %d, failed: %d\n", report.Planned, len(report.Skipped), len(report.Failures)))
	}
	return buf.Bytes()
}

// SummaryToText renders the outcome of a batch run, listing failures in a table.
func SummaryToText(result *tasks.RunResult) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Delivered: %d/%d (%s)\n", result.Delivered, result.Planned, humanize.IBytes(uint64(result.Bytes))))
	buf.WriteString(fmt.Sprintf("Skipped: %d\n", result.Skipped))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	if result.Elapsed > 0 {
		buf.WriteString(fmt.Sprintf("Elapsed: %s\n", result.Elapsed.Round(time.Millisecond)))
	}

	if len(result.Failures) > 0 {
		rows := make([][]string, 0, len(result.Failures))
		for _, f := range result.Failures {
			line := "-"
			if f.Line > 0 {
				line = strconv.Itoa(f.Line)
			}
			rows = append(rows, []string{line, f.Input, f.Err.Error()})
		}
		buf.WriteString("\n")
		buf.WriteString(RenderTable([]string{"Line", "Input", "Error"}, rows, []ColumnAlignment{AlignRight}))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}
