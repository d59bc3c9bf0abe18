package linkmonitor

import (
	"net"
	"strconv"
)

// SocketEndpoint names a UDP endpoint by textual address and port. Used
// for passing endpoints into component configurations.
type SocketEndpoint struct {
	Addr string
	Port int
}

// UDPAddr resolves the endpoint.
func (e SocketEndpoint) UDPAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", e.String())
}

func (e SocketEndpoint) String() string {
	return net.JoinHostPort(e.Addr, strconv.Itoa(e.Port))
}

// IPPair maps one control plane source onto its dataplane target.
type IPPair struct {
	Source string
	Target string
}

// IPMap is the ordered control plane source to dataplane target mapping
// of a deployment. Declaration order encodes operator preference and is
// the order handover candidates are evaluated in. The map is fixed at
// construction and never mutated.
type IPMap []IPPair

// Lookup returns the dataplane target paired with source.
func (m IPMap) Lookup(source string) (string, bool) {
	for _, pair := range m {
		if pair.Source == source {
			return pair.Target, true
		}
	}
	return "", false
}

// bindUDP binds a datagram socket on the given endpoint.
func bindUDP(endpoint SocketEndpoint) (*net.UDPConn, error) {
	addr, err := endpoint.UDPAddr()
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", addr)
}

// notifySignal fires a level triggered, coalescing notification. The
// channel must be buffered with capacity one; a pending notification
// absorbs further ones.
func notifySignal(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}
