// Package transport maintains the realtime connection to the sortedstorage
// backend. It delivers typed event envelopes to subscribers and exposes the
// connection state as an observable value that presence-derived stores key
// their reset/re-announce behavior off.
package transport

import (
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
)

// Transport is the realtime messaging surface shared (read-only) by the
// client stores. Each store subscribes independently.
type Transport interface {
	// Send publishes an event of the given type with a JSON-encodable payload.
	Send(eventType string, data any) error

	// Connected exposes the connection state. Subscribers observe false on
	// connection loss and true again once a reconnect succeeds.
	Connected() *store.Store[bool]

	// Subscribe registers a handler for inbound envelopes and returns an
	// unsubscribe function.
	Subscribe(fn func(models.Envelope)) func()

	// Close tears the connection down and stops any reconnect attempts.
	Close() error
}
