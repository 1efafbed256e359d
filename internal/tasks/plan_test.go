package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
	tu "github.com/desertthunder/trackdl/internal/testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name    string
		artists []string
		title   string
		token   string
		want    string
	}{
		{name: "Single Artist", artists: []string{"Artist"}, title: "Song", token: "ABC123", want: "Artist - Song [ABC123].ogg"},
		{name: "Several Artists", artists: []string{"A", "B", "C"}, title: "Song", token: "ABC123", want: "A, B, C - Song [ABC123].ogg"},
		{name: "No Artists", artists: nil, title: "Song", token: "ABC123", want: " - Song [ABC123].ogg"},
		{name: "Padded Token Is Compacted", artists: []string{"Artist"}, title: "Song", token: "0000000000000000ABC123", want: "Artist - Song [ABC123].ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.artists, tt.title, models.MustParseID(tt.token), "ogg")
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPlanner(t *testing.T) {
	ctx := context.Background()

	newPlanner := func(f *fixture, dir string, continueOnError bool) *Planner {
		return NewPlanner(f.resolver(), PlannerOpts{OutputDir: dir, ContinueOnError: continueOnError}, nil)
	}

	t.Run("Builds Work Items", func(t *testing.T) {
		f := newFixture(t)
		dir := t.TempDir()
		f.track("ABC123", "Song", true)
		f.track("DEF456", "Other/Song?", true)

		input := "spotify:track:ABC123\n\n   \nhttps://open.spotify.com/track/DEF456?si=x\n"
		items, report, err := newPlanner(f, dir, false).Plan(ctx, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 || report.Planned != 2 || report.Lines != 2 {
			t.Fatalf("expected 2 items from 2 lines, got %d items, report %+v", len(items), report)
		}

		first := items[0]
		if first.ID != models.MustParseID("ABC123") || first.Title() != "Song" {
			t.Errorf("unexpected first item %+v", first)
		}
		if first.Album != "Album" || len(first.Artists) != 1 || first.Artists[0] != "Artist" {
			t.Errorf("unexpected artists/album %v %q", first.Artists, first.Album)
		}
		if first.Path != filepath.Join(dir, "Artist - Song [ABC123].ogg") {
			t.Errorf("unexpected path %q", first.Path)
		}
		if items[1].Filename != "Artist - Other_Song_ [DEF456].ogg" {
			t.Errorf("expected sanitized filename, got %q", items[1].Filename)
		}
	})

	t.Run("Alternative Keeps Requested ID In Filename", func(t *testing.T) {
		f := newFixture(t)
		f.track("ABC123", "Song", false, "ALT1")
		f.track("ALT1", "Song", true)

		items, _, err := newPlanner(f, t.TempDir(), false).Plan(ctx, strings.NewReader("spotify:track:ABC123"), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if items[0].ID != models.MustParseID("ABC123") || items[0].Track.ID != models.MustParseID("ALT1") {
			t.Errorf("expected requested id ABC123 and resolved id ALT1, got %s / %s", items[0].ID, items[0].Track.ID)
		}
		if !strings.HasSuffix(items[0].Filename, "[ABC123].ogg") {
			t.Errorf("unexpected filename %q", items[0].Filename)
		}
	})

	t.Run("Skips Existing Files", func(t *testing.T) {
		f := newFixture(t)
		dir := t.TempDir()
		f.track("ABC123", "Song", true)
		f.track("DEF456", "Other", true)
		tu.MustWriteFile(t, filepath.Join(dir, "Artist - Song [ABC123].ogg"), []byte("done"))

		progress := make(chan ProgressUpdate, 16)
		items, report, err := newPlanner(f, dir, false).Plan(ctx, strings.NewReader("spotify:track:ABC123\nspotify:track:DEF456"), progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 1 || items[0].Title() != "Other" {
			t.Fatalf("expected only the missing track, got %v", items)
		}
		if len(report.Skipped) != 1 {
			t.Errorf("expected 1 skipped path, got %v", report.Skipped)
		}

		close(progress)
		var skipped int
		for u := range progress {
			if u.Phase == Skipped {
				skipped++
			}
		}
		if skipped != 1 {
			t.Errorf("expected 1 skip update, got %d", skipped)
		}
	})

	t.Run("No Deduplication Across Lines", func(t *testing.T) {
		f := newFixture(t)
		f.track("ABC123", "Song", true)

		input := "spotify:track:ABC123\nhttps://open.spotify.com/track/ABC123"
		items, _, err := newPlanner(f, t.TempDir(), false).Plan(ctx, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 || items[0].Path != items[1].Path {
			t.Errorf("expected the same track queued twice, got %d items", len(items))
		}
	})

	t.Run("Fail Fast", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
			want  error
		}{
			{name: "Malformed Link", input: "spotify:track:ABC123\nnot a link\nspotify:track:ABC123", want: shared.ErrExtraction},
			{name: "Unknown Track", input: "spotify:track:ABC123\nspotify:track:nope", want: shared.ErrCatalogUnavailable},
			{name: "Unavailable Track", input: "spotify:track:GONE", want: shared.ErrNoAvailableAlternative},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				f.track("ABC123", "Song", true)
				f.track("GONE", "Song", false)

				items, report, err := newPlanner(f, t.TempDir(), false).Plan(ctx, strings.NewReader(tt.input), nil)
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
				if items != nil {
					t.Errorf("expected no items, got %d", len(items))
				}
				if report == nil {
					t.Fatal("expected a report")
				}
			})
		}
	})

	t.Run("Continue On Error", func(t *testing.T) {
		f := newFixture(t)
		f.track("ABC123", "Song", true)
		f.track("GONE", "Song", false)

		input := "garbage\nspotify:track:GONE\nspotify:track:ABC123"
		items, report, err := newPlanner(f, t.TempDir(), true).Plan(ctx, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}
		if len(report.Failures) != 2 {
			t.Fatalf("expected 2 failures, got %v", report.Failures)
		}
		if report.Failures[0].Line != 1 || !errors.Is(report.Failures[0].Err, shared.ErrExtraction) {
			t.Errorf("unexpected first failure %+v", report.Failures[0])
		}
		if report.Failures[1].Line != 2 || !errors.Is(report.Failures[1].Err, shared.ErrNoAvailableAlternative) {
			t.Errorf("unexpected second failure %+v", report.Failures[1])
		}
	})

	t.Run("Custom Extension", func(t *testing.T) {
		f := newFixture(t)
		f.track("ABC123", "Song", true)

		p := NewPlanner(f.resolver(), PlannerOpts{OutputDir: t.TempDir(), Extension: ".oga"}, nil)
		items, _, err := p.Plan(ctx, strings.NewReader("spotify:track:ABC123"), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if items[0].Filename != "Artist - Song [ABC123].oga" {
			t.Errorf("unexpected filename %q", items[0].Filename)
		}
	})
}
