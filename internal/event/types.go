package event

import (
	"net"

	"github.com/google/uuid"
)

const (
	EventConnected    = "connection.connected"
	EventDisconnected = "connection.disconnected"
)

// ConnectEvent is published once a client connection has its processing
// chain and player handle in place.
type ConnectEvent struct {
	Session uuid.UUID
	Name    string
	Handle  any
	Addr    net.Addr
}

// DisconnectEvent is published once per connection, after the last unit has
// been processed.
type DisconnectEvent struct {
	Session uuid.UUID
	Name    string
	Err     error
}
