package contracts

import "context"

// EventBus carries encoded frames between server nodes so that a publish on
// one node reaches clients connected to every other node.
type EventBus interface {
	Publish(ctx context.Context, room string, frame []byte) error
	// Subscribe blocks, invoking fn for every frame published to any room,
	// until ctx is cancelled.
	Subscribe(ctx context.Context, fn func(room string, frame []byte)) error
}
