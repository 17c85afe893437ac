package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func exchange(t *testing.T, a, b Channel) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := range 50 {
			if err := a.Send(gctx, []byte(fmt.Sprintf(`{"n":%d}`, i))); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := range 50 {
			msg, err := b.Receive(gctx)
			if err != nil {
				return err
			}
			if string(msg) != fmt.Sprintf(`{"n":%d}`, i) {
				return fmt.Errorf("message %d out of order: %s", i, msg)
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
}

func TestPipeOrdered(t *testing.T) {
	a, b := NewPipe()
	exchange(t, a, b)
	exchange(t, b, a)
}

func TestPipeCopies(t *testing.T) {
	a, b := NewPipe()
	msg := []byte(`{"x":1}`)
	require.NoError(t, a.Send(context.Background(), msg))
	msg[2] = 'y'
	got, err := b.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(got))
}

func TestPipeClose(t *testing.T) {
	a, b := NewPipe()
	require.NoError(t, a.Send(context.Background(), []byte("last")))
	require.NoError(t, a.Close())

	got, err := b.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", string(got))
	_, err = b.Receive(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(b.Send(context.Background(), []byte("x")), ErrClosed))
	assert.True(t, errors.Is(a.Send(context.Background(), []byte("x")), ErrClosed))
}

func TestPipeReceiveCancelled(t *testing.T) {
	_, b := NewPipe()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := b.Receive(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func streamPair() (*Stream, *Stream) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	return NewStream(r1, w2, w2), NewStream(r2, w1, w1)
}

func TestStreamOrdered(t *testing.T) {
	a, b := streamPair()
	exchange(t, a, b)
	exchange(t, b, a)
}

func TestStreamClose(t *testing.T) {
	a, b := streamPair()
	require.NoError(t, a.Close())
	_, err := b.Receive(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = b.Receive(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestStreamCloseStopsReader(t *testing.T) {
	// nobody ever writes to or closes w
	r, w := io.Pipe()
	defer w.Close()
	s := NewStream(r, io.Discard, nil)
	require.NoError(t, s.Close())
	select {
	case <-s.readDone:
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine still running after Close")
	}
	_, err := s.Receive(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestStreamRejectsNewline(t *testing.T) {
	a, _ := streamPair()
	assert.Error(t, a.Send(context.Background(), []byte("{\n}")))
}

func TestNatsChannel(t *testing.T) {
	url := os.Getenv("DERBY_TEST_NATS_URL")
	if url == "" {
		t.Skip("DERBY_TEST_NATS_URL not set")
	}
	ctx := context.Background()
	nc, err := DialNats(ctx, url, 3)
	require.NoError(t, err)
	defer nc.Close()

	subjects := SessionSubjects("derby-test", fmt.Sprint(time.Now().UnixNano()))
	g, err := NewGameNatsChannel(nc, subjects)
	require.NoError(t, err)
	defer g.Close()
	p, err := NewPlayerNatsChannel(nc, subjects)
	require.NoError(t, err)
	defer p.Close()

	exchange(t, g, p)
	exchange(t, p, g)
}
