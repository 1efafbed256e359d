package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

type chunk struct {
	data  []byte
	total int64
	err   error
}

// FileStream reads an encrypted file in ranged chunks.
//
// Each chunk is fetched on its own goroutine and handed to the reader through a reactor callback,
// so Read makes progress only while the session's reactor is driven.
type FileStream struct {
	session *HTTPSession
	file    models.FileID
	ctx     context.Context
	cancel  context.CancelFunc

	size    int64
	offset  int64
	buf     []byte
	pending chan chunk
	closed  chan struct{}
	once    sync.Once
	err     error
}

func (s *HTTPSession) openStream(ctx context.Context, file models.FileID) (*FileStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	first := s.fetchRange(ctx, file, 0, int64(s.chunkSize))
	if first.err != nil {
		cancel()
		return nil, fmt.Errorf("file %s: %w", file, first.err)
	}

	s.logger.Debug("opened file stream", "file", file, "size", humanize.IBytes(uint64(first.total)))

	return &FileStream{
		session: s,
		file:    file,
		ctx:     ctx,
		cancel:  cancel,
		size:    first.total,
		offset:  int64(len(first.data)),
		buf:     first.data,
		pending: make(chan chunk, 1),
		closed:  make(chan struct{}),
	}, nil
}

// Size returns the total length of the file in bytes.
func (f *FileStream) Size() int64 { return f.size }

// Read implements [io.Reader].
func (f *FileStream) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		if f.offset >= f.size {
			return 0, io.EOF
		}
		if err := f.next(); err != nil {
			f.err = err
			return 0, err
		}
	}

	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// next requests the chunk at the current offset and waits for the reactor to hand it over.
func (f *FileStream) next() error {
	start := f.offset
	go func() {
		c := f.session.fetchRange(f.ctx, f.file, start, int64(f.session.chunkSize))
		if !f.session.reactor.Post(func() { f.pending <- c }) {
			f.pending <- chunk{err: shared.ErrReactorClosed}
		}
	}()

	select {
	case c := <-f.pending:
		if c.err != nil {
			return c.err
		}
		if len(c.data) == 0 {
			return fmt.Errorf("%w: empty chunk at offset %d of %s", shared.ErrAPIRequest, start, f.file)
		}
		f.buf = c.data
		f.offset += int64(len(c.data))
		return nil
	case <-f.closed:
		return io.ErrClosedPipe
	case <-f.ctx.Done():
		return f.ctx.Err()
	}
}

// Close implements [io.Closer]. Pending chunk requests are cancelled.
func (f *FileStream) Close() error {
	f.once.Do(func() {
		close(f.closed)
		f.cancel()
	})
	return nil
}

// fetchRange requests length bytes starting at start. A 200 response is treated as the whole file.
func (s *HTTPSession) fetchRange(ctx context.Context, file models.FileID, start, length int64) chunk {
	endpoint := s.baseURL + "/v1/files/" + file.Hex()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return chunk{err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, start+length-1))

	resp, err := s.do(req)
	if err != nil {
		return chunk{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return chunk{err: fmt.Errorf("%w: failed to read chunk: %v", shared.ErrAPIRequest, err)}
	}

	if resp.StatusCode != http.StatusPartialContent {
		if start > 0 {
			return chunk{err: fmt.Errorf("%w: server ignored range request at offset %d", shared.ErrAPIRequest, start)}
		}
		return chunk{data: data, total: int64(len(data))}
	}

	total, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return chunk{err: err}
	}
	return chunk{data: data, total: total}
}

// parseContentRange returns the complete length from a "bytes a-b/total" header.
func parseContentRange(header string) (int64, error) {
	var first, last, total int64
	if _, err := fmt.Sscanf(strings.TrimSpace(header), "bytes %d-%d/%d", &first, &last, &total); err != nil {
		return 0, fmt.Errorf("%w: invalid Content-Range %q", shared.ErrAPIRequest, header)
	}
	if first > last || last >= total {
		return 0, fmt.Errorf("%w: invalid Content-Range %q", shared.ErrAPIRequest, header)
	}
	return total, nil
}
