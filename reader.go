package linkmonitor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// ReaderConfig holds the construction parameters of a heartbeat reader.
// Loss is the number of consecutive missed heartbeats tolerated before a
// link is declared down; Slack absorbs scheduling and network jitter on
// top of it.
type ReaderConfig struct {
	Socket SocketEndpoint
	Period time.Duration
	Slack  time.Duration
	Loss   int
}

// Reader receives heartbeats from any number of peers on a single bound
// endpoint and derives a per-peer up/down signal at a half-period audit
// cadence. Peers are keyed by the textual source IP of their heartbeats.
type Reader struct {
	id     NodeId
	conn   *net.UDPConn
	period time.Duration
	slack  time.Duration
	loss   int

	// receptionLog maps peer IP to the last heartbeat arrival time. It
	// only holds peers considered fresh; lost peers are removed and
	// reinstate themselves through their next heartbeat.
	receptionLog *SharedMap[string, time.Time]
	// linkStatus is the externally visible liveness truth, shared with
	// the mobility server and the connection manager.
	linkStatus *SharedMap[string, bool]
	linkChange chan struct{}

	active atomic.Bool
	wg     sync.WaitGroup
}

// NewReader creates a heartbeat reader and binds its receive socket.
func NewReader(id NodeId, config ReaderConfig) (*Reader, error) {
	if config.Period <= 0 {
		return nil, ErrPeriodZero
	}
	conn, err := bindUDP(config.Socket)
	if err != nil {
		return nil, fmt.Errorf("binding reader socket %v: %w", config.Socket, err)
	}
	log.Infof("[READER] scheduling on ID: %v", id)
	return &Reader{
		id:           id,
		conn:         conn,
		period:       config.Period,
		slack:        config.Slack,
		loss:         config.Loss,
		receptionLog: NewSharedMap[string, time.Time](),
		linkStatus:   NewSharedMap[string, bool](),
		linkChange:   make(chan struct{}, 1),
	}, nil
}

// InitHeartbeat blocks until the first heartbeat arrives, parses it into
// msg, seeds the reception log and liveness map with the observed peer
// marked up, spawns the receive and audit tasks and returns the peer's
// endpoint. The first observed peer is the bootstrap link for the
// mobility server and the connection manager.
func (r *Reader) InitHeartbeat(msg *Heartbeat, logging bool) (*net.UDPAddr, error) {
	recvBuf := make([]byte, MaxMsgLength)

	log.Infof("[READER] waiting for initial heartbeat...")
	n, sender, err := r.conn.ReadFromUDP(recvBuf)
	if err != nil {
		return nil, fmt.Errorf("receiving initial heartbeat: %w", err)
	}
	recvTime := time.Now()

	if err := msg.UnmarshalFrom(WrapMessageBuffer(recvBuf[:n])); err != nil {
		return nil, fmt.Errorf("parsing initial heartbeat: %w", err)
	}

	log.Infof("[READER] sender: %v", sender)
	peer := sender.IP.String()
	r.receptionLog.Set(peer, recvTime)
	r.linkStatus.Set(peer, true)
	LinkUp.WithLabelValues(peer).Set(1)

	log.Infof("[READER] initial heartbeat received. Reader starting...")
	log.Infof("[READER] writer ID: %v count: %d", msg.Id, msg.Count)

	if r.active.CompareAndSwap(false, true) {
		r.wg.Add(2)
		go r.listenForHeartbeat(logging)
		go r.linkCheck()
	}
	return sender, nil
}

// listenForHeartbeat blocks in receive and stamps every arrival into the
// reception log.
func (r *Reader) listenForHeartbeat(logging bool) {
	defer r.wg.Done()

	recvBuf := make([]byte, MaxMsgLength)
	var msg Heartbeat

	log.Infof("[READER] listening on: %v", r.conn.LocalAddr())

	for r.active.Load() {
		n, sender, err := r.conn.ReadFromUDP(recvBuf)
		if err != nil {
			if !r.active.Load() {
				return
			}
			log.Errorf("[READER] receiving heartbeat: %v", err)
			continue
		}
		recvTime := time.Now()

		if err := msg.UnmarshalFrom(WrapMessageBuffer(recvBuf[:n])); err != nil {
			log.Errorf("[READER] parsing heartbeat from %v: %v", sender, err)
			continue
		}

		peer := sender.IP.String()
		if logging {
			log.Debugf("[READER] recv hb: %s hb: %d size: %d", peer, msg.Count, n)
		}
		r.receptionLog.Set(peer, recvTime)
		HeartbeatsReceived.WithLabelValues(peer).Inc()

		msg.Clear()
	}
}

// linkCheck audits heartbeat freshness every half period. Peers whose
// last heartbeat is older than loss*period+slack are marked down in the
// liveness map and dropped from the reception log; the change signal
// fires once per audit pass with losses or down to up recoveries.
func (r *Reader) linkCheck() {
	defer r.wg.Done()

	for r.active.Load() {
		checkpoint := time.Now()
		r.auditPass(checkpoint)

		if cycle := r.period/2 - time.Since(checkpoint); cycle > 0 {
			time.Sleep(cycle)
		}
	}
}

// auditPass runs one freshness audit against checkpoint and returns the
// links removed from the reception log. A peer whose last heartbeat is
// exactly at the loss threshold is still up.
func (r *Reader) auditPass(checkpoint time.Time) []string {
	lossThreshold := time.Duration(r.loss)*r.period + r.slack
	var lostLinks []string
	recovered := 0

	r.receptionLog.Range(func(peer string, lastHeartbeat time.Time) bool {
		if checkpoint.Sub(lastHeartbeat) > lossThreshold {
			r.linkStatus.Set(peer, false)
			LinkUp.WithLabelValues(peer).Set(0)
			lostLinks = append(lostLinks, peer)
		} else {
			// A peer re-entering the reception log after a loss is a
			// down to up transition the manager must see as well,
			// otherwise a fallback after total link failure never
			// happens.
			if previous, ok := r.linkStatus.Get(peer); ok && !previous {
				recovered++
				log.Infof("[READER] connection recovered: %s", peer)
			}
			r.linkStatus.Set(peer, true)
			LinkUp.WithLabelValues(peer).Set(1)
		}
		return true
	})

	if len(lostLinks) > 0 || recovered > 0 {
		for _, peer := range lostLinks {
			log.Infof("[READER] connection loss: %s", peer)
			LinkLossEvents.WithLabelValues(peer).Inc()
		}
		notifySignal(r.linkChange)
	}

	for _, peer := range lostLinks {
		r.receptionLog.Delete(peer)
	}
	return lostLinks
}

// Stop requests termination, unblocks the receive task by closing the
// socket and waits for both tasks to return. Safe to call repeatedly
// and before InitHeartbeat.
func (r *Reader) Stop() {
	r.active.Store(false)
	r.conn.Close()
	r.wg.Wait()
}

// Join waits for the background tasks without requesting termination.
func (r *Reader) Join() {
	r.wg.Wait()
}

// LinkChange returns the level triggered change signal. Waiters must
// re-read the liveness map after a wakeup; notifications coalesce.
func (r *Reader) LinkChange() chan struct{} {
	return r.linkChange
}

// LinkStatus returns the shared liveness map.
func (r *Reader) LinkStatus() *SharedMap[string, bool] {
	return r.linkStatus
}

// ActiveLinks returns the peers currently present in the reception log.
func (r *Reader) ActiveLinks() []string {
	return r.receptionLog.Keys()
}
