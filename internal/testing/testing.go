// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/trackdl/internal/audio"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/shared"
)

// FakeSession is an in-memory test double for [services.Session].
//
// Lookups resolve through the reactor passed to [NewFakeSession]. Unknown ids fail with
// [shared.ErrNotFound]. Streams hand out data in small chunks, each one released by a reactor
// callback, so they stall when the reactor is not driven.
type FakeSession struct {
	reactor *reactor.Reactor

	mu      sync.Mutex
	tracks  map[models.ID]*models.Track
	artists map[models.ID]string
	albums  map[models.ID]string
	keys    map[models.FileID]audio.Key
	files   map[models.FileID][]byte
	calls   []string

	// Failures injected per operation. A nil entry means success.
	TrackErr  map[models.ID]error
	ArtistErr error
	AlbumErr  error
	KeyErr    error
	OpenErr   error
	ReadErr   error

	// ChunkSize bounds the bytes returned by a single stream Read. Defaults to 64.
	ChunkSize int
}

// NewFakeSession creates an empty FakeSession bound to r.
func NewFakeSession(r *reactor.Reactor) *FakeSession {
	return &FakeSession{
		reactor:  r,
		tracks:   make(map[models.ID]*models.Track),
		artists:  make(map[models.ID]string),
		albums:   make(map[models.ID]string),
		keys:     make(map[models.FileID]audio.Key),
		files:    make(map[models.FileID][]byte),
		TrackErr: make(map[models.ID]error),
	}
}

// AddTrack registers track under its own id.
func (f *FakeSession) AddTrack(track *models.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[track.ID] = track
}

// AddArtist registers an artist name.
func (f *FakeSession) AddArtist(id models.ID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artists[id] = name
}

// AddAlbum registers an album name.
func (f *FakeSession) AddAlbum(id models.ID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albums[id] = name
}

// AddFile stores payload behind a vendor header, encrypted under key.
func (f *FakeSession) AddFile(file models.FileID, key audio.Key, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[file] = key
	f.files[file] = EncryptFile(key, payload)
}

// AddRawFile stores already encrypted bytes.
func (f *FakeSession) AddRawFile(file models.FileID, key audio.Key, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[file] = key
	f.files[file] = data
}

// Calls returns the operations performed so far, e.g. "track:<id>".
func (f *FakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CountCalls returns how many recorded calls have the given prefix.
func (f *FakeSession) CountCalls(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *FakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *FakeSession) Track(ctx context.Context, id models.ID) *reactor.Future[*models.Track] {
	f.record("track:" + id.String())
	return reactor.Spawn(f.reactor, func() (*models.Track, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.TrackErr[id]; err != nil {
			return nil, err
		}
		track, ok := f.tracks[id]
		if !ok {
			return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
		}
		return track, nil
	})
}

func (f *FakeSession) Artist(ctx context.Context, id models.ID) *reactor.Future[*models.Artist] {
	f.record("artist:" + id.String())
	return reactor.Spawn(f.reactor, func() (*models.Artist, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.ArtistErr != nil {
			return nil, f.ArtistErr
		}
		name, ok := f.artists[id]
		if !ok {
			return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
		}
		return &models.Artist{ID: id, Name: name}, nil
	})
}

func (f *FakeSession) Album(ctx context.Context, id models.ID) *reactor.Future[*models.Album] {
	f.record("album:" + id.String())
	return reactor.Spawn(f.reactor, func() (*models.Album, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.AlbumErr != nil {
			return nil, f.AlbumErr
		}
		name, ok := f.albums[id]
		if !ok {
			return nil, fmt.Errorf("%w: album %s", shared.ErrNotFound, id)
		}
		return &models.Album{ID: id, Name: name}, nil
	})
}

func (f *FakeSession) AudioKey(ctx context.Context, track models.ID, file models.FileID) *reactor.Future[audio.Key] {
	f.record("key:" + track.String() + "/" + file.Hex())
	return reactor.Spawn(f.reactor, func() (audio.Key, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.KeyErr != nil {
			return audio.Key{}, f.KeyErr
		}
		key, ok := f.keys[file]
		if !ok {
			return audio.Key{}, fmt.Errorf("%w: key %s", shared.ErrNotFound, file)
		}
		return key, nil
	})
}

func (f *FakeSession) OpenFile(ctx context.Context, file models.FileID) *reactor.Future[io.ReadCloser] {
	f.record("open:" + file.Hex())
	return reactor.Spawn(f.reactor, func() (io.ReadCloser, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.OpenErr != nil {
			return nil, f.OpenErr
		}
		data, ok := f.files[file]
		if !ok {
			return nil, fmt.Errorf("%w: file %s", shared.ErrNotFound, file)
		}
		chunk := f.ChunkSize
		if chunk <= 0 {
			chunk = 64
		}
		return &fakeStream{reactor: f.reactor, data: data, chunk: chunk, err: f.ReadErr}, nil
	})
}

func (f *FakeSession) Close() error { return nil }

// fakeStream releases each chunk from a reactor callback.
type fakeStream struct {
	reactor *reactor.Reactor
	data    []byte
	chunk   int
	err     error
}

func (s *fakeStream) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}

	released := make(chan struct{})
	if !s.reactor.Post(func() { close(released) }) {
		return 0, shared.ErrReactorClosed
	}
	<-released

	n := min(len(p), s.chunk, len(s.data))
	copy(p, s.data[:n])
	s.data = s.data[n:]
	return n, nil
}

func (s *fakeStream) Close() error { return nil }

// EncryptFile prepends a vendor header to payload and encrypts the result under key.
func EncryptFile(key audio.Key, payload []byte) []byte {
	plain := make([]byte, audio.HeaderSize, audio.HeaderSize+len(payload))
	for i := range plain {
		plain[i] = byte(i)
	}
	plain = append(plain, payload...)
	enc, err := audio.Decrypt(key, plain)
	if err != nil {
		panic(err)
	}
	return enc
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return content
}

func MustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
