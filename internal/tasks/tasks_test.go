package tasks

import (
	"crypto/sha1"
	"testing"
	"time"

	"github.com/desertthunder/trackdl/internal/audio"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	tu "github.com/desertthunder/trackdl/internal/testing"
)

const testTick = 5 * time.Millisecond

var (
	artistID = models.MustParseID("art1")
	albumID  = models.MustParseID("alb1")
	testKey  = audio.Key{0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6, 0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c}
)

// fixture wires a fake session to a reactor with one artist and one album registered.
type fixture struct {
	reactor *reactor.Reactor
	session *tu.FakeSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := reactor.New(64)
	t.Cleanup(r.Close)

	session := tu.NewFakeSession(r)
	session.AddArtist(artistID, "Artist")
	session.AddAlbum(albumID, "Album")
	return &fixture{reactor: r, session: session}
}

// track registers a track by token. Alternatives are given as tokens.
func (f *fixture) track(token, name string, available bool, alternatives ...string) *models.Track {
	track := &models.Track{
		ID:        models.MustParseID(token),
		Name:      name,
		Artists:   []models.ID{artistID},
		Album:     albumID,
		Available: available,
		Files:     make(map[models.FileFormat]models.FileID),
	}
	for _, alt := range alternatives {
		track.Alternatives = append(track.Alternatives, models.MustParseID(alt))
	}
	f.session.AddTrack(track)
	return track
}

// file attaches an encrypted payload to track in the given format.
func (f *fixture) file(track *models.Track, format models.FileFormat, payload []byte) models.FileID {
	id := models.FileID(sha1.Sum([]byte(track.ID.Base62() + format.String())))
	track.Files[format] = id
	f.session.AddFile(id, testKey, payload)
	return id
}

func (f *fixture) resolver() *Resolver {
	return NewResolver(f.session, f.reactor, testTick, nil)
}

func (f *fixture) engine(opts EngineOpts) *Engine {
	opts.PollInterval = testTick
	return NewEngine(f.session, f.reactor, opts)
}
