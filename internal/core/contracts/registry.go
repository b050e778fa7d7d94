package contracts

import "context"

// Registry is the node-local routing table that maps rooms to the
// WebSocket clients that announced membership in them.
type Registry interface {
	// Register adds a client to local node memory. It belongs to no room yet.
	Register(c Client)
	// Unregister removes the client and drops every room membership it held.
	Unregister(c Client)
	// Join adds the client to a room. Joining twice is a no-op.
	Join(c Client, room string)
	// Rooms lists the rooms the client has joined.
	Rooms(c Client) []string
	// Members counts the local clients in a room.
	Members(room string) int
	// Broadcast sends an encoded frame to every local client in a room and
	// reports how many clients it reached.
	Broadcast(ctx context.Context, room string, frame []byte) int
}

// Client represents the minimal interface required for the Registry to
// communicate with an individual WebSocket connection. Send must not block
// past ctx.
type Client interface {
	ID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
