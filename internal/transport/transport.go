// Package transport establishes the network connections gotelnet
// talks over.  A Dialer decides how bytes reach the destination,
// plain TCP or an SSH-tunnelled hop, and stays ignorant of the Telnet
// traffic that flows afterwards.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial opens a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived state behind the dialer, such as
	// an SSH gateway link.  Stateless dialers return nil.
	Close() error
}
