package repositories

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// Every pooled connection would otherwise get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestDownload(token, title string) *models.Download {
	item := models.WorkItem{
		ID:       models.MustParseID(token),
		Track:    &models.Track{ID: models.MustParseID(token), Name: title},
		Artists:  []string{"Artist", "Guest"},
		Album:    "Album",
		Filename: title + ".ogg",
		Path:     filepath.Join("out", title+".ogg"),
	}
	return models.NewDownload(item, models.OggVorbis320, "file", 1024)
}

func TestDownloadRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newTestDownload("ABC123", "Song")

		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}
		if d.ID() == "" {
			t.Error("download ID should be set after creation")
		}
		if d.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", d.Sequence())
		}

		other := newTestDownload("DEF456", "Other")
		if err := repo.Create(other); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}
		if other.Sequence() != 2 {
			t.Errorf("expected sequence 2, got %d", other.Sequence())
		}
	})

	t.Run("Create Invalid", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newTestDownload("ABC123", "Song")
		d.Sink = ""

		if err := repo.Create(d); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newTestDownload("ABC123", "Song")
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		got, err := repo.Get(d.ID())
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}
		if got.TrackID != "0000000000000000ABC123" || got.Title != "Song" || got.Artists != "Artist, Guest" {
			t.Errorf("unexpected download %+v", got)
		}
		if got.Format != "OGG_VORBIS_320" || got.Bytes != 1024 || got.Sequence() != 1 {
			t.Errorf("unexpected download %+v", got)
		}
		if got.CreatedAt().IsZero() || got.DeletedAt() != nil {
			t.Errorf("unexpected timestamps %v %v", got.CreatedAt(), got.DeletedAt())
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		if _, err := repo.Get("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetByTrackID Returns Latest", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		first := newTestDownload("ABC123", "Song")
		second := newTestDownload("ABC123", "Song")
		second.Sink = "process"
		for _, d := range []*models.Download{first, second} {
			if err := repo.Create(d); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}

		got, err := repo.GetByTrackID(models.MustParseID("ABC123").Base62())
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}
		if got.ID() != second.ID() {
			t.Errorf("expected latest download %s, got %s", second.ID(), got.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newTestDownload("ABC123", "Song")
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		d.Path = "moved.ogg"
		if err := repo.Update(d); err != nil {
			t.Fatalf("failed to update download: %v", err)
		}

		got, _ := repo.Get(d.ID())
		if got.Path != "moved.ogg" {
			t.Errorf("expected updated path, got %q", got.Path)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		d := newTestDownload("ABC123", "Song")
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if err := repo.Delete(d.ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}
		if _, err := repo.Get(d.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected deleted download to be hidden, got %v", err)
		}
		if err := repo.Delete(d.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}
		if err := repo.Update(d); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected update of deleted row to fail, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		a := newTestDownload("AAA", "A")
		b := newTestDownload("BBB", "B")
		b.Sink = "process"
		c := newTestDownload("CCC", "C")
		for _, d := range []*models.Download{a, b, c} {
			if err := repo.Create(d); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}
		if err := repo.Delete(c.ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{name: "All", criteria: nil, want: []string{"A", "B"}},
			{name: "By Sink", criteria: map[string]any{"sink": "process"}, want: []string{"B"}},
			{name: "By Track", criteria: map[string]any{"track_id": models.MustParseID("AAA").Base62()}, want: []string{"A"}},
			{name: "By Format", criteria: map[string]any{"format": "MP3_96"}, want: nil},
			{name: "Limit", criteria: map[string]any{"limit": 1}, want: []string{"A"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list downloads: %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("expected %d downloads, got %d", len(tt.want), len(got))
				}
				for i, d := range got {
					if d.Title != tt.want[i] {
						t.Errorf("position %d: expected %s, got %s", i, tt.want[i], d.Title)
					}
				}
			})
		}
	})
}

func TestHistoryRecorder(t *testing.T) {
	repo := NewDownloadRepository(setupTestDB(t))
	recorder := NewHistoryRecorder(repo)

	for range 2 {
		if err := recorder.RecordDownload(newTestDownload("ABC123", "Song")); err != nil {
			t.Fatalf("failed to record download: %v", err)
		}
	}

	all, err := repo.List(nil)
	if err != nil {
		t.Fatalf("failed to list downloads: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected both deliveries recorded, got %d", len(all))
	}

	bad := newTestDownload("ABC123", "")
	if err := recorder.RecordDownload(bad); err == nil {
		t.Error("expected an error for an invalid record")
	}
}
