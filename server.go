package linkmonitor

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MobilityServer pushes the resource manager's link status vector to the
// mobile endpoints of the ip map on every Init or ReportStatus call; it
// does not watch the liveness map by itself. It reuses its
// own port as the destination port on every target: mobility clients
// bind the port the server sends from.
type MobilityServer struct {
	id         NodeId
	conn       *net.UDPConn
	port       int
	ipMap      IPMap
	linkStatus *SharedMap[string, bool]

	mu      sync.Mutex
	msg     LinkStatus
	sendBuf *MessageBuffer
}

// NewMobilityServer creates a mobility server bound to the given
// endpoint, reporting the liveness map shared with a heartbeat reader.
func NewMobilityServer(id NodeId, endpoint SocketEndpoint, ipMap IPMap, linkStatus *SharedMap[string, bool]) (*MobilityServer, error) {
	conn, err := bindUDP(endpoint)
	if err != nil {
		return nil, fmt.Errorf("binding mobility server socket %v: %w", endpoint, err)
	}
	return &MobilityServer{
		id:         id,
		conn:       conn,
		port:       conn.LocalAddr().(*net.UDPAddr).Port,
		ipMap:      ipMap,
		linkStatus: linkStatus,
		sendBuf:    NewMessageBuffer(MaxMsgLength),
	}, nil
}

// Init pushes the initial status vector. The endpoint arguments are
// accepted for callback compatibility and not interpreted.
func (s *MobilityServer) Init(endpointTx string, port int) {
	s.ReportStatus(endpointTx, port)
}

// Callback returns a handover callback bound to ReportStatus, letting a
// connection manager drive status distribution on the uplink deployment.
func (s *MobilityServer) Callback() func(string, int) {
	return s.ReportStatus
}

// ReportStatus snapshots the liveness map into an ordered status list
// and sends it to every mobile endpoint of the ip map.
func (s *MobilityServer) ReportStatus(endpointTx string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg.Update(s.id, s.statusList())
	s.send(&s.msg)
}

// statusList converts the shared liveness map into the ordered vector
// carried by a LinkStatus message.
func (s *MobilityServer) statusList() StatusList {
	entries := s.linkStatus.Entries()
	status := make(StatusList, 0, len(entries))
	log.Debugf("[SERVER] creating status list:")
	for _, entry := range entries {
		log.Debugf("[SERVER] link: %s:%t", entry.Key, entry.Value)
		status = append(status, LinkState{Key: entry.Key, Up: entry.Value})
	}
	return status
}

// send serializes msg once and transmits it to every dataplane target.
// Per-target transmission errors are logged and skipped; the server does
// not retry.
func (s *MobilityServer) send(msg *LinkStatus) {
	s.sendBuf.Clear()
	if err := msg.MarshalTo(s.sendBuf); err != nil {
		log.Errorf("[SERVER] serializing status message %d: %v", msg.Count, err)
		return
	}
	log.Debugf("[SERVER] msg len: %d", s.sendBuf.Len())

	for _, pair := range s.ipMap {
		target := &net.UDPAddr{IP: net.ParseIP(pair.Target), Port: s.port}
		if target.IP == nil {
			log.Errorf("[SERVER] unparsable status target: %s", pair.Target)
			SendErrors.WithLabelValues("server").Inc()
			continue
		}
		if _, err := s.conn.WriteToUDP(s.sendBuf.Bytes(), target); err != nil {
			log.Errorf("[SERVER] sending status to %v: %v", target, err)
			SendErrors.WithLabelValues("server").Inc()
			continue
		}
		StatusPushes.Inc()
	}
}

// Stop closes the server socket. The server owns no background tasks.
func (s *MobilityServer) Stop() {
	s.conn.Close()
}
