package core

import "errors"

var (
	// ErrConnClosed is returned by TrySend once the transport has been closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrBackpressure is returned by TrySend when a bounded outbox is full.
	ErrBackpressure = errors.New("backpressure")
)

// Frame is a raw text payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block on the network.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
