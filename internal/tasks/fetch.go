package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/trackdl/internal/audio"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/services"
	"github.com/desertthunder/trackdl/internal/shared"
)

// Fetcher downloads and decrypts a single representation.
type Fetcher struct {
	session services.Session
	reactor *reactor.Reactor
	tick    time.Duration
	logger  *log.Logger
}

// NewFetcher creates a Fetcher that drives r in ticks of tick.
func NewFetcher(session services.Session, r *reactor.Reactor, tick time.Duration, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{session: session, reactor: r, tick: tick, logger: logger}
}

// Fetch returns the decrypted payload of rep with the vendor header removed.
//
// trackID must be the id of the resolved track, which differs from the requested id when an
// alternative was picked.
func (f *Fetcher) Fetch(ctx context.Context, trackID models.ID, rep models.Representation) ([]byte, error) {
	key, err := reactor.Run(ctx, f.reactor, f.session.AudioKey(ctx, trackID, rep.File), f.tick)
	if err != nil {
		return nil, fmt.Errorf("%w: track %s: %w", shared.ErrKeyRequest, trackID, err)
	}

	stream, err := reactor.Run(ctx, f.reactor, f.session.OpenFile(ctx, rep.File), f.tick)
	if err != nil {
		return nil, fmt.Errorf("%w: file %s: %w", shared.ErrStreamOpen, rep.File, err)
	}

	start := time.Now()
	data, err := f.drain(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("%w: file %s: %w", shared.ErrStreamRead, rep.File, err)
	}
	f.logger.Debug("stream drained", "file", rep.File, "size", humanize.IBytes(uint64(len(data))), "took", time.Since(start).Round(time.Millisecond))

	plain, err := audio.Decrypt(key, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDecrypt, err)
	}
	if len(plain) < audio.HeaderSize {
		return nil, fmt.Errorf("%w: file %s is %d bytes, shorter than its %d byte header", shared.ErrDecrypt, rep.File, len(plain), audio.HeaderSize)
	}
	return audio.StripHeader(plain), nil
}

// drain reads stream to the end on a worker goroutine while this goroutine keeps turning the reactor.
// The worker owns the buffer until its result is posted back.
func (f *Fetcher) drain(ctx context.Context, stream io.ReadCloser) ([]byte, error) {
	read := reactor.Spawn(f.reactor, func() ([]byte, error) {
		return io.ReadAll(stream)
	})

	data, err := reactor.Run(ctx, f.reactor, read, f.tick)
	stream.Close()
	return data, err
}
