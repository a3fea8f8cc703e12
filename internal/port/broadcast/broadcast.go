// Package broadcast defines the port interface for pushing live events to
// connected debug clients.
package broadcast

import "context"

// Broadcaster fans an event out to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, msgType string, payload any)
}

// Nop is a Broadcaster with no clients.
type Nop struct{}

func (Nop) Broadcast(context.Context, string, any) {}
