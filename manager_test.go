package linkmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managerTestMap = IPMap{
	{Source: "192.168.2.102", Target: "192.168.20.6"},
	{Source: "192.168.2.103", Target: "192.168.30.6"},
	{Source: "192.168.2.104", Target: "192.168.40.6"},
}

func TestManagerInitUnknownSource(t *testing.T) {
	recorder := &callbackRecorder{}
	manager := NewConnectionManager(managerTestMap, recorder.callback, make(chan struct{}, 1), NewSharedMap[string, bool]())

	err := manager.Init("10.0.0.1")
	assert.Equal(t, ErrNotInMap, err)
	assert.Equal(t, 0, recorder.count())
	assert.Equal(t, ActivePair{}, manager.ActivePair())
}

func TestManagerInitPrimesCallback(t *testing.T) {
	recorder := &callbackRecorder{}
	linkStatus := NewSharedMap[string, bool]()
	manager := NewConnectionManager(managerTestMap, recorder.callback, make(chan struct{}, 1), linkStatus)

	require.Nil(t, manager.Init("192.168.2.103"))
	defer manager.Stop()

	assert.Equal(t, 1, recorder.count())
	assert.Equal(t, "192.168.30.6", recorder.last())
	assert.Equal(t, ActivePair{Source: "192.168.2.103", Target: "192.168.30.6"}, manager.ActivePair())
}

func TestManagerIgnoresChangeWhileActiveUp(t *testing.T) {
	recorder := &callbackRecorder{}
	linkChange := make(chan struct{}, 1)
	linkStatus := NewSharedMap[string, bool]()
	linkStatus.Set("192.168.2.102", true)
	linkStatus.Set("192.168.2.103", false)

	manager := NewConnectionManager(managerTestMap, recorder.callback, linkChange, linkStatus)
	require.Nil(t, manager.Init("192.168.2.102"))
	defer manager.Stop()

	notifySignal(linkChange)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, recorder.count())
	assert.Equal(t, ActivePair{Source: "192.168.2.102", Target: "192.168.20.6"}, manager.ActivePair())
}

// The replacement is the first up link in liveness iteration order that
// also has an ip map entry; unknown links are skipped.
func TestManagerHandoverSelectionOrder(t *testing.T) {
	recorder := &callbackRecorder{}
	linkChange := make(chan struct{}, 1)
	linkStatus := NewSharedMap[string, bool]()
	linkStatus.Set("192.168.2.102", true)
	linkStatus.Set("10.9.9.9", true) // not in the ip map
	linkStatus.Set("192.168.2.103", true)
	linkStatus.Set("192.168.2.104", true)

	manager := NewConnectionManager(managerTestMap, recorder.callback, linkChange, linkStatus)
	require.Nil(t, manager.Init("192.168.2.102"))
	defer manager.Stop()

	linkStatus.Set("192.168.2.102", false)
	notifySignal(linkChange)

	assert.Eventually(t, func() bool { return recorder.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "192.168.30.6", recorder.last())
	assert.Equal(t, ActivePair{Source: "192.168.2.103", Target: "192.168.30.6"}, manager.ActivePair())
}

func TestManagerNoCandidateRetainsPair(t *testing.T) {
	recorder := &callbackRecorder{}
	linkChange := make(chan struct{}, 1)
	linkStatus := NewSharedMap[string, bool]()
	linkStatus.Set("192.168.2.102", false)
	linkStatus.Set("192.168.2.103", false)

	manager := NewConnectionManager(managerTestMap, recorder.callback, linkChange, linkStatus)
	require.Nil(t, manager.Init("192.168.2.102"))
	defer manager.Stop()

	notifySignal(linkChange)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, recorder.count())
	assert.Equal(t, ActivePair{Source: "192.168.2.102", Target: "192.168.20.6"}, manager.ActivePair())

	// A later notification with a candidate available succeeds
	linkStatus.Set("192.168.2.103", true)
	notifySignal(linkChange)
	assert.Eventually(t, func() bool { return recorder.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "192.168.30.6", recorder.last())
}

// Handover delay: the delay variant switches within
// [switchingDelay, switchingDelay + margin] after the loss notification.
func TestManagerSwitchingDelay(t *testing.T) {
	switched := make(chan string, 1)
	linkChange := make(chan struct{}, 1)
	linkStatus := NewSharedMap[string, bool]()
	linkStatus.Set("192.168.2.102", true)
	linkStatus.Set("192.168.2.103", true)

	manager := NewConnectionManagerDelay(managerTestMap, func(target string, port int) {
		select {
		case switched <- target:
		default:
		}
	}, linkChange, linkStatus, 250*time.Millisecond)
	require.Nil(t, manager.Init("192.168.2.102"))
	defer manager.Stop()
	<-switched // priming callback

	linkStatus.Set("192.168.2.102", false)
	begin := time.Now()
	notifySignal(linkChange)

	select {
	case target := <-switched:
		elapsed := time.Since(begin)
		assert.Equal(t, "192.168.30.6", target)
		assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
		assert.Less(t, elapsed, 650*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("delayed handover never fired")
	}
}

func TestManagerDelayDefault(t *testing.T) {
	manager := NewConnectionManagerDelay(managerTestMap, func(string, int) {}, make(chan struct{}, 1), NewSharedMap[string, bool](), 0)
	assert.Equal(t, DefaultSwitchingDelay, manager.switchingDelay)
}
