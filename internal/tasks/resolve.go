package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/services"
	"github.com/desertthunder/trackdl/internal/shared"
)

// Resolver turns track identifiers into playable track metadata.
type Resolver struct {
	session services.Session
	reactor *reactor.Reactor
	tick    time.Duration
	logger  *log.Logger
}

// NewResolver creates a Resolver that drives r in ticks of tick while waiting for session lookups.
func NewResolver(session services.Session, r *reactor.Reactor, tick time.Duration, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{session: session, reactor: r, tick: tick, logger: logger}
}

// Resolve returns the metadata for id, or for the first available alternative when id itself is unavailable.
func (r *Resolver) Resolve(ctx context.Context, id models.ID) (*models.Track, error) {
	r.logger.Debug("getting track", "id", id)

	track, err := reactor.Run(ctx, r.reactor, r.session.Track(ctx, id), r.tick)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrCatalogUnavailable, err)
	}
	if track.Available {
		return track, nil
	}

	r.logger.Warn("track is not available, finding alternative", "id", id)
	for _, altID := range track.Alternatives {
		alt, err := reactor.Run(ctx, r.reactor, r.session.Track(ctx, altID), r.tick)
		if err != nil {
			return nil, fmt.Errorf("%w: alternative %s: %w", shared.ErrCatalogUnavailable, altID, err)
		}
		if alt.Available {
			r.logger.Warn("found track alternative", "id", id, "alternative", alt.ID)
			return alt, nil
		}
	}

	return nil, fmt.Errorf("%w: track %s (%d alternatives)", shared.ErrNoAvailableAlternative, id, len(track.Alternatives))
}

// ResolveArtists looks up every artist of track in order. The first failed lookup aborts the call.
func (r *Resolver) ResolveArtists(ctx context.Context, track *models.Track) ([]string, error) {
	names := make([]string, 0, len(track.Artists))
	for _, id := range track.Artists {
		artist, err := reactor.Run(ctx, r.reactor, r.session.Artist(ctx, id), r.tick)
		if err != nil {
			return nil, fmt.Errorf("%w: artist %s: %w", shared.ErrCatalogUnavailable, id, err)
		}
		names = append(names, artist.Name)
	}
	return names, nil
}

// ResolveAlbumName looks up the album name of track.
func (r *Resolver) ResolveAlbumName(ctx context.Context, track *models.Track) (string, error) {
	album, err := reactor.Run(ctx, r.reactor, r.session.Album(ctx, track.Album), r.tick)
	if err != nil {
		return "", fmt.Errorf("%w: album %s: %w", shared.ErrCatalogUnavailable, track.Album, err)
	}
	return album.Name, nil
}
