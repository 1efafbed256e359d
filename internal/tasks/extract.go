package tasks

import (
	"fmt"
	"regexp"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

// linkPatterns are tried in order; the first one that matches decides the token.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`spotify:track:([[:alnum:]]+)`),
	regexp.MustCompile(`open\.spotify\.com/track/([[:alnum:]]+)`),
}

// ExtractID pulls the track identifier out of a track URI or web link.
//
// Patterns are unanchored, so surrounding text such as query strings is ignored.
func ExtractID(link string) (models.ID, error) {
	for _, re := range linkPatterns {
		m := re.FindStringSubmatch(link)
		if m == nil {
			continue
		}
		id, err := models.ParseID(m[1])
		if err != nil {
			return models.ID{}, fmt.Errorf("%w: %q: %w", shared.ErrExtraction, link, err)
		}
		return id, nil
	}
	return models.ID{}, fmt.Errorf("%w: %q", shared.ErrExtraction, link)
}
