package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// MaxLineSize bounds a single message on a Stream.
const MaxLineSize = 4 << 20

// Stream carries newline-delimited JSON over a reader and a writer, such as
// a child process's stdout and stdin.
type Stream struct {
	w     io.Writer
	wmu   sync.Mutex
	lines chan []byte
	errc  chan error
	done  chan struct{}

	reader    io.Reader
	readDone  chan struct{}
	closer    io.Closer
	closeOnce sync.Once
}

// NewStream starts reading lines from r. closer, if non-nil, is closed by
// Close; typically it is the write side of the pipe to the peer. If r is an
// io.Closer, Close closes it too so the reading goroutine can exit.
func NewStream(r io.Reader, w io.Writer, closer io.Closer) *Stream {
	s := &Stream{
		w:        w,
		lines:    make(chan []byte),
		errc:     make(chan error, 1),
		done:     make(chan struct{}),
		reader:   r,
		readDone: make(chan struct{}),
		closer:   closer,
	}
	go s.readLoop(r)
	return s
}

func (s *Stream) readLoop(r io.Reader) {
	defer close(s.readDone)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		select {
		case s.lines <- bytes.Clone(line):
		case <-s.done:
			return
		}
	}
	err := sc.Err()
	if err == nil || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		err = ErrClosed
	} else {
		log.Debug().Err(err).Msg("stream-read-failed")
	}
	s.errc <- err
}

func (s *Stream) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bytes.IndexByte(msg, '\n') >= 0 {
		return errors.New("transport: message contains a newline")
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	buf := make([]byte, 0, len(msg)+1)
	buf = append(append(buf, msg...), '\n')
	if _, err := s.w.Write(buf); err != nil {
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.EOF) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (s *Stream) Receive(ctx context.Context) ([]byte, error) {
	select {
	case line := <-s.lines:
		return line, nil
	case err := <-s.errc:
		// keep reporting the same error to later callers
		s.errc <- err
		return nil, err
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.closer != nil {
			err = s.closer.Close()
		}
		if rc, ok := s.reader.(io.Closer); ok {
			if rerr := rc.Close(); err == nil && !errors.Is(rerr, os.ErrClosed) {
				err = rerr
			}
		}
	})
	return err
}
