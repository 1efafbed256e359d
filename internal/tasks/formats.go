package tasks

import (
	"fmt"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

// FormatTiers is the download preference order, highest quality first.
var FormatTiers = []models.FileFormat{
	models.OggVorbis320,
	models.OggVorbis160,
	models.OggVorbis96,
}

// SelectFormat returns the first tier of [FormatTiers] present in files.
func SelectFormat(files map[models.FileFormat]models.FileID) (models.Representation, error) {
	for _, format := range FormatTiers {
		if file, ok := files[format]; ok {
			return models.Representation{Format: format, File: file}, nil
		}
	}
	return models.Representation{}, fmt.Errorf("%w: %d formats offered", shared.ErrNoCompatibleFormat, len(files))
}
