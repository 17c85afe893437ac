package transport

import (
	"bytes"
	"context"
	"sync"
)

const pipeBuffer = 16

type pipeEnd struct {
	in        <-chan []byte
	out       chan<- []byte
	done      chan struct{}
	peerDone  <-chan struct{}
	closeOnce sync.Once
}

// NewPipe returns the two ends of an in-process channel, one for the game
// worker and one for the player worker.
func NewPipe() (Channel, Channel) {
	ab := make(chan []byte, pipeBuffer)
	ba := make(chan []byte, pipeBuffer)
	aDone := make(chan struct{})
	bDone := make(chan struct{})
	a := &pipeEnd{in: ba, out: ab, done: aDone, peerDone: bDone}
	b := &pipeEnd{in: ab, out: ba, done: bDone, peerDone: aDone}
	return a, b
}

func (p *pipeEnd) Send(ctx context.Context, msg []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	case <-p.peerDone:
		return ErrClosed
	default:
	}
	select {
	case p.out <- bytes.Clone(msg):
		return nil
	case <-p.peerDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	default:
	}
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.done:
		return nil, ErrClosed
	case <-p.peerDone:
		// drain anything sent before the peer hung up
		select {
		case msg := <-p.in:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}
