package linkmonitor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// LoggerConfig holds the construction parameters of a link logger. A
// non-empty MulticastGroup joins the group on the bound socket.
type LoggerConfig struct {
	Socket         SocketEndpoint
	MulticastGroup string
}

// LinkLogger passively records heartbeat receptions for offline analysis
// of link behaviour. It keeps no liveness state.
type LinkLogger struct {
	id     NodeId
	conn   *net.UDPConn
	active atomic.Bool
	wg     sync.WaitGroup
}

// NewLinkLogger creates a link logger and binds its receive socket.
func NewLinkLogger(id NodeId, config LoggerConfig) (*LinkLogger, error) {
	conn, err := bindUDP(config.Socket)
	if err != nil {
		return nil, fmt.Errorf("binding logger socket %v: %w", config.Socket, err)
	}
	if config.MulticastGroup != "" {
		group := net.ParseIP(config.MulticastGroup)
		if group == nil {
			conn.Close()
			return nil, fmt.Errorf("parsing multicast group %q", config.MulticastGroup)
		}
		if err := ipv4.NewPacketConn(conn).JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("joining multicast group %v: %w", group, err)
		}
	}
	log.Infof("[LOGGER] logging on ID: %v", id)
	return &LinkLogger{id: id, conn: conn}, nil
}

// InitHeartbeat starts the logging task if not already running.
func (l *LinkLogger) InitHeartbeat() {
	if !l.active.CompareAndSwap(false, true) {
		log.Infof("[LOGGER] heartbeat logger already active...")
		return
	}
	log.Infof("[LOGGER] heartbeat logger running...")
	l.wg.Add(1)
	go l.listenForHeartbeat()
}

func (l *LinkLogger) listenForHeartbeat() {
	defer l.wg.Done()

	recvBuf := make([]byte, MaxMsgLength)
	var msg Heartbeat

	log.Infof("[LOGGER] listening on: %v", l.conn.LocalAddr())

	for l.active.Load() {
		n, sender, err := l.conn.ReadFromUDP(recvBuf)
		if err != nil {
			if !l.active.Load() {
				return
			}
			log.Errorf("[LOGGER] receiving heartbeat: %v", err)
			continue
		}
		if err := msg.UnmarshalFrom(WrapMessageBuffer(recvBuf[:n])); err != nil {
			log.Errorf("[LOGGER] parsing heartbeat from %v: %v", sender, err)
			continue
		}
		log.Infof("[LOGGER] %s, %v, %d", sender.IP, msg.Id, msg.Count)
		msg.Clear()
	}
}

// Stop requests termination and waits for the logging task to return.
func (l *LinkLogger) Stop() {
	l.active.Store(false)
	l.conn.Close()
	l.wg.Wait()
}

// Join waits for the logging task without requesting termination.
func (l *LinkLogger) Join() {
	l.wg.Wait()
}
