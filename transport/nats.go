package transport

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const natsBuffer = 64

// DialNats connects to a NATS server, retrying with backoff while it comes
// up.
func DialNats(ctx context.Context, url string, attempts uint) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(
		func() error {
			var err error
			nc, err = nats.Connect(url, nats.Name("derby"))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Warn().Err(err).Uint("n", n).Str("url", url).
				Msg("nats-connect-failed-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Subjects names the two one-way subjects of a derby session.
type Subjects struct {
	ToPlayer string
	ToGame   string
}

func SessionSubjects(base, session string) Subjects {
	return Subjects{
		ToPlayer: base + "." + session + ".to-player",
		ToGame:   base + "." + session + ".to-game",
	}
}

// NatsChannel is a Channel over two NATS subjects, one per direction. Core
// NATS keeps the order of messages from one publisher to one subscriber.
type NatsChannel struct {
	nc      *nats.Conn
	out     string
	sub     *nats.Subscription
	msgs    chan *nats.Msg
	closed  chan struct{}
	ownConn bool
}

func newNatsChannel(nc *nats.Conn, in, out string) (*NatsChannel, error) {
	c := &NatsChannel{
		nc:     nc,
		out:    out,
		msgs:   make(chan *nats.Msg, natsBuffer),
		closed: make(chan struct{}),
	}
	sub, err := nc.ChanSubscribe(in, c.msgs)
	if err != nil {
		return nil, err
	}
	c.sub = sub
	// make sure the subscription is registered before anyone publishes
	if err := nc.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	log.Debug().Str("in", in).Str("out", out).Msg("nats-channel-ready")
	return c, nil
}

// NewGameNatsChannel is the game worker's end of a session.
func NewGameNatsChannel(nc *nats.Conn, s Subjects) (*NatsChannel, error) {
	return newNatsChannel(nc, s.ToGame, s.ToPlayer)
}

// NewPlayerNatsChannel is the player worker's end of a session.
func NewPlayerNatsChannel(nc *nats.Conn, s Subjects) (*NatsChannel, error) {
	return newNatsChannel(nc, s.ToPlayer, s.ToGame)
}

// OwnConnection makes Close also close the underlying connection.
func (c *NatsChannel) OwnConnection() {
	c.ownConn = true
}

func (c *NatsChannel) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if c.nc.IsClosed() {
		return ErrClosed
	}
	return c.nc.Publish(c.out, bytes.Clone(msg))
}

func (c *NatsChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case m, ok := <-c.msgs:
		if !ok {
			return nil, ErrClosed
		}
		return m.Data, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *NatsChannel) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
	}
	close(c.closed)
	err := c.sub.Unsubscribe()
	if c.ownConn {
		c.nc.Close()
	}
	return err
}
