package linkmonitor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// multicastTTL allows heartbeat forwarding across the access point bridge.
const multicastTTL = 64

// Writer lifecycle states.
const (
	writerCreated int32 = iota
	writerRunning
	writerStopping
	writerTerminated
)

// WriterConfig holds the construction parameters of a heartbeat writer.
// Reader is the unicast destination; a non-empty MulticastGroup selects
// the multicast variant instead and Reader is ignored. A zero Reader
// port defaults to the source port, matching the deployment convention
// that writers and readers share the heartbeat port.
type WriterConfig struct {
	Socket         SocketEndpoint
	Reader         SocketEndpoint
	MulticastGroup string
	Period         time.Duration
	// SpinThreshold selects busy-wait pacing for periods below it.
	// Zero means DefaultSpinThreshold.
	SpinThreshold time.Duration
}

// Writer emits periodic heartbeat datagrams from a bound source endpoint
// to a configured destination at a drift compensated cadence.
type Writer struct {
	id     NodeId
	conn   *net.UDPConn
	dest   *net.UDPAddr
	msg    Heartbeat
	period time.Duration
	spin   time.Duration

	state   atomic.Int32
	count   atomic.Uint32
	sendBuf *MessageBuffer
	sendMu  sync.Mutex
	wg      sync.WaitGroup
}

// NewWriter creates a heartbeat writer and binds its source socket.
// The writer does not emit until Run is called.
func NewWriter(id NodeId, config WriterConfig) (*Writer, error) {
	if config.Period <= 0 {
		return nil, ErrPeriodZero
	}
	conn, err := bindUDP(config.Socket)
	if err != nil {
		return nil, fmt.Errorf("binding writer socket %v: %w", config.Socket, err)
	}

	var dest *net.UDPAddr
	if config.MulticastGroup != "" {
		dest, err = SocketEndpoint{Addr: config.MulticastGroup, Port: config.Socket.Port}.UDPAddr()
		if err == nil {
			packetConn := ipv4.NewPacketConn(conn)
			if ttlErr := packetConn.SetMulticastTTL(multicastTTL); ttlErr != nil {
				log.Warnf("[WRITER] setting multicast ttl: %v", ttlErr)
			}
			if loopErr := packetConn.SetMulticastLoopback(true); loopErr != nil {
				log.Warnf("[WRITER] setting multicast loopback: %v", loopErr)
			}
		}
	} else {
		reader := config.Reader
		if reader.Port == 0 {
			reader.Port = config.Socket.Port
		}
		dest, err = reader.UDPAddr()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolving heartbeat destination: %w", err)
	}

	spin := config.SpinThreshold
	if spin == 0 {
		spin = DefaultSpinThreshold
	}

	writer := &Writer{
		id:      id,
		conn:    conn,
		dest:    dest,
		period:  config.Period,
		spin:    spin,
		sendBuf: NewMessageBuffer(MaxMsgLength),
	}
	writer.msg.Id = id
	log.Infof("[WRITER] HB writer ID: %v", id)
	return writer, nil
}

// Run starts the emission task. Calling Run on a running writer is a
// no-op; a stopped writer is not reusable.
func (w *Writer) Run() {
	if !w.state.CompareAndSwap(writerCreated, writerRunning) {
		log.Infof("[WRITER] HB writer already running...")
		return
	}
	log.Infof("[WRITER] HB writer running...")
	w.wg.Add(1)
	go w.scheduleHeartbeat()
}

// Stop requests termination and waits for the emission task to return.
func (w *Writer) Stop() {
	if w.state.CompareAndSwap(writerCreated, writerTerminated) {
		w.conn.Close()
		return
	}
	if !w.state.CompareAndSwap(writerRunning, writerStopping) {
		return
	}
	w.wg.Wait()
	w.conn.Close()
	w.state.Store(writerTerminated)
}

// Join waits for the emission task without requesting termination.
func (w *Writer) Join() {
	w.wg.Wait()
}

// Period returns the configured heartbeat period.
func (w *Writer) Period() time.Duration {
	return w.period
}

// HeartbeatCount returns the counter value of the last emitted heartbeat.
func (w *Writer) HeartbeatCount() uint32 {
	return w.count.Load()
}

// scheduleHeartbeat paces the heartbeat emission. The signed offset
// budget absorbs scheduling skew symmetrically so that the long-run
// cadence matches the nominal period.
func (w *Writer) scheduleHeartbeat() {
	defer w.wg.Done()

	// Pre-date the first cycle so the loop overhead of the initial
	// iteration is already compensated.
	start := time.Now().Add(-w.period)
	var offsetBudget time.Duration

	for w.state.Load() == writerRunning {
		w.msg.Update(w.id)
		w.count.Store(w.msg.Count)

		if _, err := w.Send(&w.msg); err != nil {
			log.Errorf("[WRITER] sending heartbeat %d: %v", w.msg.Count, err)
			SendErrors.WithLabelValues("writer").Inc()
		} else {
			HeartbeatsSent.WithLabelValues(w.dest.String()).Inc()
		}

		now := time.Now()
		offsetBudget += now.Sub(start) - w.period
		start = now

		deadline := start.Add(w.period - offsetBudget)
		if w.period < w.spin {
			for time.Now().Before(deadline) {
				// Busy-wait: sub-millisecond periods need the resolution.
			}
		} else if wait := time.Until(deadline); wait > 0 {
			time.Sleep(wait)
		}
	}
}

// Send serializes msg and transmits it to the configured destination,
// returning the number of bytes sent.
func (w *Writer) Send(msg *Heartbeat) (int, error) {
	return w.SendTo(msg, w.dest)
}

// SendTo serializes msg and transmits it to an explicit peer endpoint.
func (w *Writer) SendTo(msg *Heartbeat, peer *net.UDPAddr) (int, error) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	w.sendBuf.Clear()
	if err := msg.MarshalTo(w.sendBuf); err != nil {
		return 0, err
	}
	return w.conn.WriteToUDP(w.sendBuf.Bytes(), peer)
}
