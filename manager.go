package linkmonitor

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ActivePair is the control plane source / dataplane target tuple the
// application currently uses. The source is always a key of the ip map.
type ActivePair struct {
	Source string
	Target string
}

// TargetCallback propagates a new dataplane target to the application.
// It is invoked once at Init with the bootstrap target and once per
// successful handover, and must be non-blocking and thread safe.
type TargetCallback func(targetIP string, targetPort int)

// ConnectionManager watches a liveness map and switches the active
// source/target pair to the first available alternative whenever the
// active link goes down. The liveness map and change signal are owned by
// a Reader or a MobilityClient; the ip map is fixed at construction.
type ConnectionManager struct {
	ipMap      IPMap
	callback   TargetCallback
	linkChange <-chan struct{}
	linkStatus *SharedMap[string, bool]
	// switchingDelay emulates the handover latency of classical mobility
	// schemes; zero switches immediately.
	switchingDelay time.Duration

	mu         sync.Mutex
	activePair ActivePair

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewConnectionManager creates a connection manager that switches
// without artificial delay.
func NewConnectionManager(ipMap IPMap, callback TargetCallback, linkChange <-chan struct{}, linkStatus *SharedMap[string, bool]) *ConnectionManager {
	return &ConnectionManager{
		ipMap:      ipMap,
		callback:   callback,
		linkChange: linkChange,
		linkStatus: linkStatus,
		stop:       make(chan struct{}),
	}
}

// NewConnectionManagerDelay creates the delay variant used for handover
// latency emulation. A non-positive delay selects DefaultSwitchingDelay.
func NewConnectionManagerDelay(ipMap IPMap, callback TargetCallback, linkChange <-chan struct{}, linkStatus *SharedMap[string, bool], switchingDelay time.Duration) *ConnectionManager {
	if switchingDelay <= 0 {
		switchingDelay = DefaultSwitchingDelay
	}
	manager := NewConnectionManager(ipMap, callback, linkChange, linkStatus)
	manager.switchingDelay = switchingDelay
	return manager
}

// Init sets the active pair from the bootstrap source, primes the
// application callback with the paired target and spawns the handler
// task. Init fails without spawning anything when the bootstrap source
// is not a key of the ip map.
func (m *ConnectionManager) Init(linkId string) error {
	target, ok := m.ipMap.Lookup(linkId)
	if !ok {
		log.Errorf("[MANAGER] %s not available in ip map. Active pair could not be set", linkId)
		return ErrNotInMap
	}

	m.mu.Lock()
	m.activePair = ActivePair{Source: linkId, Target: target}
	m.mu.Unlock()

	m.callback(target, DataplanePort)

	m.wg.Add(1)
	go m.handleConnections()
	return nil
}

// ActivePair returns the currently selected pair.
func (m *ConnectionManager) ActivePair() ActivePair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activePair
}

// Stop terminates the handler task and waits for it.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// Join waits for the handler task without requesting termination.
func (m *ConnectionManager) Join() {
	m.wg.Wait()
}

// handleConnections waits on the change signal and re-reads the liveness
// map. When the active link is down it scans the map in iteration order
// for the first up link that is also an ip map key and hands the
// application over to its paired target.
func (m *ConnectionManager) handleConnections() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stop:
			return
		case <-m.linkChange:
		}

		log.Infof("[MANAGER] handling connection loss")

		active := m.ActivePair()
		if up, _ := m.linkStatus.Get(active.Source); up {
			continue
		}
		log.Infof("[MANAGER] data plane connection lost: %s, reconfiguring...", active.Source)

		reconfigured := false
		for _, entry := range m.linkStatus.Entries() {
			if !entry.Value {
				continue
			}
			target, ok := m.ipMap.Lookup(entry.Key)
			if !ok {
				log.Errorf("[MANAGER] missing ip map entry for: %s", entry.Key)
				continue
			}
			m.mu.Lock()
			m.activePair = ActivePair{Source: entry.Key, Target: target}
			m.mu.Unlock()
			reconfigured = true
			break
		}

		if !reconfigured {
			active = m.ActivePair()
			log.Infof("[MANAGER] no other link available. Data plane connection unchanged: %s:%d", active.Target, DataplanePort)
			continue
		}

		if m.switchingDelay > 0 {
			time.Sleep(m.switchingDelay)
		}
		active = m.ActivePair()
		m.callback(active.Target, DataplanePort)
		Handovers.Inc()
		log.Infof("[MANAGER] new data plane connection: %s:%d", active.Target, DataplanePort)
	}
}
