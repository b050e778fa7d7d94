package channel

import "context"

// Message is one inbound frame split into its event name and raw data bytes.
type Message struct {
	Event string
	Data  []byte
}

// Transport dials the real-time server. Each successful Dial starts a new
// connection epoch.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn is a single physical connection to the real-time server.
type Conn interface {
	// Send writes one encoded frame.
	Send(ctx context.Context, frame []byte) error
	// Receive blocks until the next inbound frame arrives or the connection
	// fails. It returns an error once Close has been called.
	Receive() (Message, error)
	Close() error
}
