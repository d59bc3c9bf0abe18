package linkmonitor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// MobilityClient receives link status messages on the mobile node,
// mirrors them into a local liveness map and raises a link change signal
// whenever a previously up link is reported down.
type MobilityClient struct {
	id   NodeId
	conn *net.UDPConn

	receiveQueue *SafeQueue[LinkStatus]
	linkStatus   *SharedMap[string, bool]
	linkChange   chan struct{}
	// lastCount is the counter of the last accepted status message, used
	// to drop duplicates injected by redundant transmission paths. Only
	// the audit task touches it.
	lastCount uint32

	active atomic.Bool
	wg     sync.WaitGroup
}

// NewMobilityClient creates a mobility client and binds its receive
// socket. The port must match the mobility server's port.
func NewMobilityClient(id NodeId, endpoint SocketEndpoint) (*MobilityClient, error) {
	conn, err := bindUDP(endpoint)
	if err != nil {
		return nil, fmt.Errorf("binding mobility client socket %v: %w", endpoint, err)
	}
	return &MobilityClient{
		id:           id,
		conn:         conn,
		receiveQueue: NewSafeQueue[LinkStatus](),
		linkStatus:   NewSharedMap[string, bool](),
		linkChange:   make(chan struct{}, 1),
	}, nil
}

// Init blocks until the first status message arrives, populates the
// liveness map from it, spawns the receive and audit tasks and returns
// the first listed link key, which defines the bootstrap active link.
func (c *MobilityClient) Init() (string, error) {
	recvBuf := make([]byte, MaxMsgLength)
	var msg LinkStatus

	log.Infof("[CLIENT] listening on: %v", c.conn.LocalAddr())

	n, _, err := c.conn.ReadFromUDP(recvBuf)
	if err != nil {
		return "", fmt.Errorf("receiving initial status: %w", err)
	}
	if err := msg.UnmarshalFrom(WrapMessageBuffer(recvBuf[:n])); err != nil {
		return "", fmt.Errorf("parsing initial status: %w", err)
	}

	firstLink := c.initStatus(msg.Status)
	c.lastCount = msg.Count

	if c.active.CompareAndSwap(false, true) {
		log.Debugf("[CLIENT] starting tasks...")
		c.wg.Add(2)
		go c.listenForStatus()
		go c.linkCheck()
	}
	return firstLink, nil
}

// listenForStatus receives status datagrams and enqueues them for the
// audit task. The queue is unbounded; the receive task never blocks on
// a slow consumer.
func (c *MobilityClient) listenForStatus() {
	defer c.wg.Done()

	recvBuf := make([]byte, MaxMsgLength)

	for c.active.Load() {
		n, sender, err := c.conn.ReadFromUDP(recvBuf)
		if err != nil {
			if !c.active.Load() {
				return
			}
			log.Errorf("[CLIENT] receiving status: %v", err)
			continue
		}
		var msg LinkStatus
		if err := msg.UnmarshalFrom(WrapMessageBuffer(recvBuf[:n])); err != nil {
			log.Errorf("[CLIENT] parsing status from %v: %v", sender, err)
			continue
		}
		c.receiveQueue.Enqueue(msg)
	}
}

// linkCheck drains the status queue, drops duplicates and applies each
// remaining message to the local liveness map, firing the change signal
// when links were lost.
func (c *MobilityClient) linkCheck() {
	defer c.wg.Done()

	for c.active.Load() {
		msg, ok := c.receiveQueue.Dequeue()
		if !ok {
			return
		}
		// Counter wrap shows up as a large backwards jump and passes the
		// signed comparison as a restart.
		if int32(msg.Count-c.lastCount) <= 0 {
			log.Debugf("[CLIENT] dropping duplicate status %d", msg.Count)
			continue
		}
		c.lastCount = msg.Count

		if c.updateStatus(msg.Status) > 0 {
			notifySignal(c.linkChange)
		}
	}
}

// initStatus seeds the liveness map from the first status vector and
// returns its first key.
func (c *MobilityClient) initStatus(status StatusList) string {
	firstLink := ""
	log.Infof("[CLIENT] status list:")
	for i, entry := range status {
		log.Infof("[CLIENT] link: %s:%t", entry.Key, entry.Up)
		if i == 0 {
			firstLink = entry.Key
		}
		c.linkStatus.Set(entry.Key, entry.Up)
	}
	return firstLink
}

// updateStatus diffs the incoming vector against the local map and
// overwrites it, returning the number of lost links. A link counts as
// lost iff it was up locally and the incoming vector reports it down,
// which makes re-applying the same vector idempotent.
func (c *MobilityClient) updateStatus(status StatusList) int {
	lost := 0
	log.Debugf("[CLIENT] status list:")
	for _, entry := range status {
		log.Debugf("[CLIENT] link: %s:%t", entry.Key, entry.Up)
		if previous, ok := c.linkStatus.Get(entry.Key); ok && previous && !entry.Up {
			lost++
		}
		c.linkStatus.Set(entry.Key, entry.Up)
	}
	log.Debugf("[CLIENT] lost links: %d", lost)
	return lost
}

// Stop requests termination, unblocks both tasks and waits for them.
// Safe to call repeatedly and before Init.
func (c *MobilityClient) Stop() {
	c.active.Store(false)
	c.conn.Close()
	c.receiveQueue.Close()
	c.wg.Wait()
}

// Join waits for the background tasks without requesting termination.
func (c *MobilityClient) Join() {
	c.wg.Wait()
}

// LinkChange returns the level triggered change signal. Waiters must
// re-read the liveness map after a wakeup; notifications coalesce.
func (c *MobilityClient) LinkChange() chan struct{} {
	return c.linkChange
}

// LinkStatus returns the local liveness map.
func (c *MobilityClient) LinkStatus() *SharedMap[string, bool] {
	return c.linkStatus
}
