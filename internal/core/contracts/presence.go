package contracts

import (
	"context"
	"time"
)

// For each room, use ZSET to store presence info
type PresenceStore interface {
	// Touch records the connection as present in the room until ttl passes without another touch
	Touch(ctx context.Context, room string, connID string, ttl time.Duration) error
	// Online returns connection ids seen in the room within the ttl window
	Online(ctx context.Context, room string) ([]string, error)
	// Leave removes the connection from the room immediately
	Leave(ctx context.Context, room string, connID string) error
}
