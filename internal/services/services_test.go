package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/shared"
	tu "github.com/desertthunder/trackdl/internal/testing"
)

const tick = 5 * time.Millisecond

func newTestSession(t *testing.T, handler http.Handler, chunkSize int) (*HTTPSession, *reactor.Reactor) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := reactor.New(16)
	t.Cleanup(r.Close)

	cfg := shared.CatalogConfig{BaseURL: srv.URL, ChunkSize: chunkSize}
	return NewHTTPSession(r, cfg, srv.Client(), nil), r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestConnect(t *testing.T) {
	newServer := func(t *testing.T, status int) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "password" {
				t.Errorf("expected password grant, got %q", r.Form.Get("grant_type"))
			}
			if status != http.StatusOK || r.Form.Get("password") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
		})
		mux.HandleFunc("GET /v1/artists/{id}", func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, NameResponse{Name: "Artist"})
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("Authenticates And Sends Token", func(t *testing.T) {
		srv := newServer(t, http.StatusOK)
		r := reactor.New(4)
		defer r.Close()

		cfg := shared.CatalogConfig{BaseURL: srv.URL}
		creds := shared.CredentialsConfig{Username: "user", Password: "secret"}
		session, err := reactor.Run(context.Background(), r, Connect(context.Background(), r, cfg, creds, nil), tick)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer session.Close()

		artist, err := reactor.Run(context.Background(), r, session.Artist(context.Background(), models.MustParseID("abc")), tick)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if artist.Name != "Artist" {
			t.Errorf("expected Artist, got %s", artist.Name)
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		srv := newServer(t, http.StatusOK)
		r := reactor.New(4)
		defer r.Close()

		cfg := shared.CatalogConfig{BaseURL: srv.URL}
		creds := shared.CredentialsConfig{Username: "user", Password: "wrong"}
		_, err := reactor.Run(context.Background(), r, Connect(context.Background(), r, cfg, creds, nil), tick)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		r := reactor.New(4)
		defer r.Close()

		f := Connect(context.Background(), r, shared.CatalogConfig{}, shared.CredentialsConfig{Username: "user"}, nil)
		if _, err := reactor.Run(context.Background(), r, f, tick); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestHTTPSession(t *testing.T) {
	trackID := models.MustParseID("ABC123")
	altID := models.MustParseID("ALT1")
	artistID := models.MustParseID("art1")
	albumID := models.MustParseID("alb1")
	brokenID := models.MustParseID("broken")
	fileID, _ := models.ParseFileID("00112233445566778899aabbccddeeff00112233")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case trackID.Base62():
			writeJSON(w, map[string]any{
				"gid":          trackID.Base62(),
				"name":         "Song",
				"artists":      []string{artistID.Base62()},
				"album":        albumID.Base62(),
				"available":    false,
				"alternatives": []string{altID.Base62()},
				"files": map[string]string{
					"OGG_VORBIS_320": fileID.Hex(),
					"VORBIS_9000":    fileID.Hex(),
				},
				"duration_ms": 1000,
			})
		case brokenID.Base62():
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /v1/albums/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, NameResponse{Name: "Album"})
	})
	mux.HandleFunc("GET /v1/keys/{track}/{file}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("track") != trackID.Base62() || r.PathValue("file") != fileID.Hex() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, KeyResponse{Key: "000102030405060708090a0b0c0d0e0f"})
	})

	session, r := newTestSession(t, mux, 0)
	ctx := context.Background()

	t.Run("Track", func(t *testing.T) {
		track, err := reactor.Run(ctx, r, session.Track(ctx, trackID), tick)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if track.ID != trackID || track.Name != "Song" || track.Available {
			t.Errorf("unexpected track: %+v", track)
		}
		if len(track.Alternatives) != 1 || track.Alternatives[0] != altID {
			t.Errorf("unexpected alternatives: %v", track.Alternatives)
		}
		if len(track.Artists) != 1 || track.Artists[0] != artistID || track.Album != albumID {
			t.Errorf("unexpected artists/album: %v %v", track.Artists, track.Album)
		}
		if len(track.Files) != 1 || track.Files[models.OggVorbis320] != fileID {
			t.Errorf("expected only the known format, got %v", track.Files)
		}
	})

	t.Run("Track Not Found", func(t *testing.T) {
		_, err := reactor.Run(ctx, r, session.Track(ctx, models.MustParseID("missing")), tick)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Server Error", func(t *testing.T) {
		_, err := reactor.Run(ctx, r, session.Track(ctx, brokenID), tick)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Album", func(t *testing.T) {
		album, err := reactor.Run(ctx, r, session.Album(ctx, albumID), tick)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if album.Name != "Album" || album.ID != albumID {
			t.Errorf("unexpected album: %+v", album)
		}
	})

	t.Run("AudioKey", func(t *testing.T) {
		key, err := reactor.Run(ctx, r, session.AudioKey(ctx, trackID, fileID), tick)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key.Hex() != "000102030405060708090a0b0c0d0e0f" {
			t.Errorf("unexpected key %s", key.Hex())
		}
	})

	t.Run("AudioKey Refused", func(t *testing.T) {
		_, err := reactor.Run(ctx, r, session.AudioKey(ctx, altID, fileID), tick)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTransportFailure(t *testing.T) {
	r := reactor.New(4)
	defer r.Close()

	client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
	session := NewHTTPSession(r, shared.CatalogConfig{BaseURL: "http://catalog.invalid"}, client, nil)

	_, err := reactor.Run(context.Background(), r, session.Track(context.Background(), models.MustParseID("abc")), tick)
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("expected ErrAPIRequest, got %v", err)
	}
}

func TestFileStream(t *testing.T) {
	fileID, _ := models.ParseFileID("00112233445566778899aabbccddeeff00112233")
	content := bytes.Repeat([]byte("0123456789"), 2500)

	newFileServer := func(t *testing.T, chunkSize int) (*HTTPSession, *reactor.Reactor, *atomic.Int32) {
		requests := &atomic.Int32{}
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/files/{file}", func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if r.PathValue("file") != fileID.Hex() {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
		})
		session, rc := newTestSession(t, mux, chunkSize)
		return session, rc, requests
	}

	drain := func(ctx context.Context, r *reactor.Reactor, stream io.Reader) ([]byte, error) {
		f := reactor.Spawn(r, func() ([]byte, error) { return io.ReadAll(stream) })
		return reactor.Run(ctx, r, f, tick)
	}

	t.Run("Reads All Chunks", func(t *testing.T) {
		session, r, requests := newFileServer(t, 1000)
		ctx := context.Background()

		stream, err := reactor.Run(ctx, r, session.OpenFile(ctx, fileID), tick)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer stream.Close()

		if fs, ok := stream.(*FileStream); !ok || fs.Size() != int64(len(content)) {
			t.Errorf("expected size %d", len(content))
		}

		got, err := drain(ctx, r, stream)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("content mismatch: got %d bytes", len(got))
		}
		if n := requests.Load(); n != 25 {
			t.Errorf("expected 25 ranged requests, got %d", n)
		}
	})

	t.Run("Single Chunk File", func(t *testing.T) {
		session, r, _ := newFileServer(t, 0)
		ctx := context.Background()

		stream, err := reactor.Run(ctx, r, session.OpenFile(ctx, fileID), tick)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		got, err := drain(ctx, r, stream)
		if err != nil || !bytes.Equal(got, content) {
			t.Errorf("unexpected result: %d bytes, %v", len(got), err)
		}
	})

	t.Run("Stalls Without Reactor", func(t *testing.T) {
		session, r, _ := newFileServer(t, 1000)
		ctx := context.Background()

		stream, err := reactor.Run(ctx, r, session.OpenFile(ctx, fileID), tick)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer stream.Close()

		done := make(chan error, 1)
		go func() {
			_, err := io.ReadAll(stream)
			done <- err
		}()

		select {
		case <-done:
			t.Fatal("read completed without the reactor being driven")
		case <-time.After(100 * time.Millisecond):
		}

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			r.Turn(tick)
			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("read: %v", err)
				}
				return
			default:
			}
		}
		t.Fatal("read did not complete once the reactor was driven")
	})

	t.Run("Missing File", func(t *testing.T) {
		session, r, _ := newFileServer(t, 1000)
		ctx := context.Background()
		other, _ := models.ParseFileID(strings.Repeat("ff", models.FileIDLength))

		_, err := reactor.Run(ctx, r, session.OpenFile(ctx, other), tick)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Closed Stream", func(t *testing.T) {
		session, r, _ := newFileServer(t, 1000)
		ctx := context.Background()

		stream, err := reactor.Run(ctx, r, session.OpenFile(ctx, fileID), tick)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		buf := make([]byte, 1000)
		if _, err := io.ReadFull(stream, buf); err != nil {
			t.Fatalf("first chunk: %v", err)
		}
		stream.Close()

		if _, err := stream.Read(buf); err == nil {
			t.Error("expected error reading a closed stream")
		}
	})
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		header  string
		want    int64
		wantErr bool
	}{
		{header: "bytes 0-999/25000", want: 25000},
		{header: "bytes 24000-24999/25000", want: 25000},
		{header: "bytes 0-0/1", want: 1},
		{header: "bytes */25000", wantErr: true},
		{header: "bytes 10-5/25000", wantErr: true},
		{header: "bytes 0-25000/25000", wantErr: true},
		{header: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := parseContentRange(tt.header)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrAPIRequest) {
					t.Errorf("expected ErrAPIRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
