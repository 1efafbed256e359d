// HTTP implementation of [Session]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/trackdl/internal/audio"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/shared"
)

// DefaultChunkSize is the byte length of a single ranged file request.
const DefaultChunkSize = 128 * 1024

// TrackResponse is the wire form of a track lookup.
type TrackResponse struct {
	GID          models.ID                `json:"gid"`
	Name         string                   `json:"name"`
	Artists      []models.ID              `json:"artists"`
	Album        models.ID                `json:"album"`
	Available    bool                     `json:"available"`
	Alternatives []models.ID              `json:"alternatives"`
	Files        map[string]models.FileID `json:"files"`
	DurationMS   int                      `json:"duration_ms"`
}

// NameResponse is the wire form of artist and album lookups.
type NameResponse struct {
	Name string `json:"name"`
}

// KeyResponse is the wire form of an audio key.
type KeyResponse struct {
	Key string `json:"key"`
}

// HTTPSession implements [Session] over the catalog's HTTP API.
type HTTPSession struct {
	reactor    *reactor.Reactor
	baseURL    string
	chunkSize  int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewHTTPSession creates a session that issues requests through client. The client is expected to
// carry authentication already; see [Connect].
func NewHTTPSession(r *reactor.Reactor, cfg shared.CatalogConfig, client *http.Client, logger *log.Logger) *HTTPSession {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	return &HTTPSession{
		reactor:    r,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		chunkSize:  chunk,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Connect authenticates with the password grant and resolves to a ready session.
func Connect(ctx context.Context, r *reactor.Reactor, cfg shared.CatalogConfig, creds shared.CredentialsConfig, logger *log.Logger) *reactor.Future[*HTTPSession] {
	if creds.Username == "" || creds.Password == "" {
		return reactor.Ready[*HTTPSession](nil, shared.ErrMissingCredentials)
	}

	return reactor.Spawn(r, func() (*HTTPSession, error) {
		conf := &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.ResolvedTokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}

		base := &http.Client{Timeout: cfg.Timeout()}
		authCtx := context.WithValue(ctx, oauth2.HTTPClient, base)

		token, err := conf.PasswordCredentialsToken(authCtx, creds.Username, creds.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}

		client := conf.Client(authCtx, token)
		client.Timeout = cfg.Timeout()
		return NewHTTPSession(r, cfg, client, logger), nil
	})
}

// Track implements [Session].
func (s *HTTPSession) Track(ctx context.Context, id models.ID) *reactor.Future[*models.Track] {
	return reactor.Spawn(s.reactor, func() (*models.Track, error) {
		var resp TrackResponse
		if err := s.getJSON(ctx, "/v1/tracks/"+id.Base62(), &resp); err != nil {
			return nil, fmt.Errorf("track %s: %w", id, err)
		}
		return resp.toTrack(id, s.logger), nil
	})
}

// Artist implements [Session].
func (s *HTTPSession) Artist(ctx context.Context, id models.ID) *reactor.Future[*models.Artist] {
	return reactor.Spawn(s.reactor, func() (*models.Artist, error) {
		var resp NameResponse
		if err := s.getJSON(ctx, "/v1/artists/"+id.Base62(), &resp); err != nil {
			return nil, fmt.Errorf("artist %s: %w", id, err)
		}
		return &models.Artist{ID: id, Name: resp.Name}, nil
	})
}

// Album implements [Session].
func (s *HTTPSession) Album(ctx context.Context, id models.ID) *reactor.Future[*models.Album] {
	return reactor.Spawn(s.reactor, func() (*models.Album, error) {
		var resp NameResponse
		if err := s.getJSON(ctx, "/v1/albums/"+id.Base62(), &resp); err != nil {
			return nil, fmt.Errorf("album %s: %w", id, err)
		}
		return &models.Album{ID: id, Name: resp.Name}, nil
	})
}

// AudioKey implements [Session].
func (s *HTTPSession) AudioKey(ctx context.Context, track models.ID, file models.FileID) *reactor.Future[audio.Key] {
	return reactor.Spawn(s.reactor, func() (audio.Key, error) {
		var resp KeyResponse
		if err := s.getJSON(ctx, "/v1/keys/"+track.Base62()+"/"+file.Hex(), &resp); err != nil {
			return audio.Key{}, fmt.Errorf("key %s/%s: %w", track, file, err)
		}
		return audio.ParseKey(resp.Key)
	})
}

// OpenFile implements [Session]. The first chunk is fetched before the future resolves.
func (s *HTTPSession) OpenFile(ctx context.Context, file models.FileID) *reactor.Future[io.ReadCloser] {
	return reactor.Spawn(s.reactor, func() (io.ReadCloser, error) {
		stream, err := s.openStream(ctx, file)
		if err != nil {
			return nil, err
		}
		return stream, nil
	})
}

// Close implements [Session].
func (s *HTTPSession) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// do performs a rate limited request and maps error statuses to sentinel errors.
// The caller closes the body of a successful response.
func (s *HTTPSession) do(req *http.Request) (*http.Response, error) {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, req.URL.Path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d for %s", shared.ErrAPIRequest, resp.StatusCode, req.URL.Path)
	}
	return resp, nil
}

func (s *HTTPSession) getJSON(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	s.logger.Debug("catalog request", "endpoint", endpoint)
	return nil
}

func (r TrackResponse) toTrack(requested models.ID, logger *log.Logger) *models.Track {
	id := r.GID
	if id.IsZero() {
		id = requested
	}

	files := make(map[models.FileFormat]models.FileID, len(r.Files))
	for name, file := range r.Files {
		format, err := models.ParseFileFormat(name)
		if err != nil {
			logger.Debug("ignoring file", "track", id, "format", name)
			continue
		}
		files[format] = file
	}

	return &models.Track{
		ID:           id,
		Name:         r.Name,
		Artists:      r.Artists,
		Album:        r.Album,
		Available:    r.Available,
		Alternatives: r.Alternatives,
		Files:        files,
		DurationMS:   r.DurationMS,
	}
}
