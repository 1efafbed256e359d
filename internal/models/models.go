// package models defines the data model for the track download pipeline
package models

import (
	"fmt"
	"time"
)

// FileFormat names one encoding of a track's audio.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	OggVorbis96
	OggVorbis160
	OggVorbis320
	MP3_256
	MP3_320
	MP3_160
	MP3_96
	MP3_160Enc
	AAC24
	AAC48
	FLAC
)

var formatNames = map[FileFormat]string{
	OggVorbis96:  "OGG_VORBIS_96",
	OggVorbis160: "OGG_VORBIS_160",
	OggVorbis320: "OGG_VORBIS_320",
	MP3_256:      "MP3_256",
	MP3_320:      "MP3_320",
	MP3_160:      "MP3_160",
	MP3_96:       "MP3_96",
	MP3_160Enc:   "MP3_160_ENC",
	AAC24:        "AAC_24",
	AAC48:        "AAC_48",
	FLAC:         "FLAC_FLAC",
}

// ParseFileFormat maps a wire name such as "OGG_VORBIS_320" to a [FileFormat].
func ParseFileFormat(name string) (FileFormat, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown file format %q", name)
}

func (f FileFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// Representation is one encoded variant of a track: the format tag and the file it lives in.
type Representation struct {
	Format FileFormat
	File   FileID
}

// Track is the catalog metadata of a single track.
//
// Obtained once per lookup and never mutated afterwards.
type Track struct {
	ID           ID
	Name         string
	Artists      []ID
	Album        ID
	Available    bool
	Alternatives []ID
	Files        map[FileFormat]FileID
	DurationMS   int
}

// Artist is the subset of artist metadata the pipeline uses.
type Artist struct {
	ID   ID
	Name string
}

// Album is the subset of album metadata the pipeline uses.
type Album struct {
	ID   ID
	Name string
}

// WorkItem is a fully resolved track waiting to be fetched.
//
// ID is the identifier taken from the input link; Track may be an alternative with a different ID.
type WorkItem struct {
	ID       ID
	Track    *Track
	Artists  []string
	Album    string
	Filename string // sanitized "<artists> - <title> [<id>].<ext>"
	Path     string // Filename joined with the output directory
}

// Title returns the resolved track name.
func (w WorkItem) Title() string {
	if w.Track == nil {
		return ""
	}
	return w.Track.Name
}

// Download is a history record of a delivered [WorkItem].
type Download struct {
	id         string
	sequence   int
	TrackID    string
	ResolvedID string
	Title      string
	Artists    string
	Album      string
	Format     string
	Sink       string
	Path       string
	Bytes      int64
	createdAt  time.Time
	deletedAt  *time.Time
}

// NewDownload builds a history record for item delivered through sink.
func NewDownload(item WorkItem, format FileFormat, sink string, size int64) *Download {
	d := &Download{
		TrackID:   item.ID.Base62(),
		Title:     item.Title(),
		Album:     item.Album,
		Format:    format.String(),
		Sink:      sink,
		Path:      item.Path,
		Bytes:     size,
		createdAt: time.Now().UTC(),
	}
	if item.Track != nil {
		d.ResolvedID = item.Track.ID.Base62()
	}
	for i, a := range item.Artists {
		if i > 0 {
			d.Artists += ", "
		}
		d.Artists += a
	}
	return d
}

// RestoreDownload rebuilds a stored record. Used by repositories when scanning rows.
func RestoreDownload(id string, sequence int, createdAt time.Time, deletedAt *time.Time, d Download) *Download {
	d.id = id
	d.sequence = sequence
	d.createdAt = createdAt
	d.deletedAt = deletedAt
	return &d
}

func (d *Download) ID() string                { return d.id }
func (d *Download) Sequence() int             { return d.sequence }
func (d *Download) CreatedAt() time.Time      { return d.createdAt }
func (d *Download) UpdatedAt() time.Time      { return d.createdAt }
func (d *Download) DeletedAt() *time.Time     { return d.deletedAt }
func (d *Download) SetID(id string)           { d.id = id }
func (d *Download) SetSequence(seq int)       { d.sequence = seq }
func (d *Download) SetDeletedAt(t *time.Time) { d.deletedAt = t }

// Validate checks the required fields of a history record.
func (d *Download) Validate() error {
	if d.TrackID == "" {
		return fmt.Errorf("download track id is required")
	}
	if d.Title == "" {
		return fmt.Errorf("download title is required")
	}
	if d.Sink == "" {
		return fmt.Errorf("download sink is required")
	}
	return nil
}

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

var _ Model = (*Download)(nil)
