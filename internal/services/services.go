// package services defines the catalog & transport [Session] used by the download pipeline
package services

import (
	"context"
	"io"

	"github.com/desertthunder/trackdl/internal/audio"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
)

// Session is an authenticated connection to the catalog, key and file services.
//
// Every operation returns a [reactor.Future] that only resolves while the session's reactor is being
// driven. Implementations must not resolve futures from other goroutines.
type Session interface {
	// Track requests the metadata of a single track.
	Track(ctx context.Context, id models.ID) *reactor.Future[*models.Track]

	// Artist requests artist metadata.
	Artist(ctx context.Context, id models.ID) *reactor.Future[*models.Artist]

	// Album requests album metadata.
	Album(ctx context.Context, id models.ID) *reactor.Future[*models.Album]

	// AudioKey requests the decryption key for file of track.
	AudioKey(ctx context.Context, track models.ID, file models.FileID) *reactor.Future[audio.Key]

	// OpenFile opens a sequential byte stream over an encrypted file.
	//
	// Reads on the stream block until the reactor delivers the next chunk, so the stream must be
	// read from a goroutine other than the one driving the reactor.
	OpenFile(ctx context.Context, file models.FileID) *reactor.Future[io.ReadCloser]

	// Close releases the session's connections.
	Close() error
}
