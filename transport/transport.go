// Package transport moves opaque JSON messages between the game worker and
// the player worker. Every implementation delivers messages reliably and in
// order, and copies payloads so neither side can observe the other's
// buffers.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned once the other side has hung up.
var ErrClosed = errors.New("transport: channel closed")

// Channel is one end of a bidirectional message channel. An end is owned
// by a single worker; Send and Receive are not meant to be called
// concurrently with Close.
type Channel interface {
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}
