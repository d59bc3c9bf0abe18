package linkmonitor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatRoundTrip(t *testing.T) {
	msg := Heartbeat{}
	msg.Update(NewNodeIdWithSuffix(1))
	msg.Update(NewNodeIdWithSuffix(1))
	assert.EqualValues(t, 2, msg.Count)

	buffer := NewMessageBuffer(MaxMsgLength)
	assert.Nil(t, msg.MarshalTo(buffer))
	assert.Equal(t, HeartbeatLength, buffer.Len())

	var parsed Heartbeat
	assert.Nil(t, parsed.UnmarshalFrom(WrapMessageBuffer(buffer.Bytes())))
	assert.Equal(t, msg, parsed)
}

func TestHeartbeatShortDatagram(t *testing.T) {
	var parsed Heartbeat
	err := parsed.UnmarshalFrom(WrapMessageBuffer(make([]byte, HeartbeatLength-1)))
	assert.Equal(t, ErrShortMessage, err)
}

func TestHeartbeatClear(t *testing.T) {
	msg := Heartbeat{}
	msg.Update(NewNodeIdWithSuffix(3))
	msg.Clear()
	assert.Equal(t, DefaultId, msg.Id)
	assert.EqualValues(t, 0, msg.Count)
	assert.EqualValues(t, 0, msg.Timestamp)
}

func TestLinkStatusRoundTrip(t *testing.T) {
	status := StatusList{
		{Key: "192.168.2.102", Up: true},
		{Key: "192.168.2.103", Up: false},
	}
	msg := LinkStatus{}
	msg.Update(NewNodeIdWithSuffix(1), status)

	buffer := NewMessageBuffer(MaxMsgLength)
	assert.Nil(t, msg.MarshalTo(buffer))

	var parsed LinkStatus
	assert.Nil(t, parsed.UnmarshalFrom(WrapMessageBuffer(buffer.Bytes())))
	assert.Equal(t, msg, parsed)
}

// 100 random keys of 1 to 40 bytes must survive a round trip untouched.
func TestLinkStatusRoundTripLarge(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	status := make(StatusList, 0, 100)
	for i := 0; i < 100; i++ {
		key := make([]byte, 1+random.Intn(40))
		for j := range key {
			key[j] = byte('a' + random.Intn(26))
		}
		status = append(status, LinkState{Key: string(key), Up: random.Intn(2) == 1})
	}

	msg := LinkStatus{}
	msg.Update(NewNodeIdWithSuffix(7), status)

	buffer := NewMessageBuffer(8192)
	assert.Nil(t, msg.MarshalTo(buffer))

	var parsed LinkStatus
	assert.Nil(t, parsed.UnmarshalFrom(WrapMessageBuffer(buffer.Bytes())))
	assert.Equal(t, msg.Status, parsed.Status)
	assert.Equal(t, msg.Count, parsed.Count)
	assert.Equal(t, msg.Id, parsed.Id)
}

func TestLinkStatusOverflow(t *testing.T) {
	status := StatusList{{Key: string(make([]byte, MaxMsgLength)), Up: true}}
	msg := LinkStatus{}
	msg.Update(NewNodeIdWithSuffix(1), status)

	buffer := NewMessageBuffer(MaxMsgLength)
	assert.NotNil(t, msg.MarshalTo(buffer))
}

func TestLinkStatusTruncatedList(t *testing.T) {
	msg := LinkStatus{}
	msg.Update(NewNodeIdWithSuffix(1), StatusList{{Key: "link", Up: true}})

	buffer := NewMessageBuffer(MaxMsgLength)
	assert.Nil(t, msg.MarshalTo(buffer))

	var parsed LinkStatus
	err := parsed.UnmarshalFrom(WrapMessageBuffer(buffer.Bytes()[:buffer.Len()-1]))
	assert.NotNil(t, err)
}

func TestLinkStatusEmptyList(t *testing.T) {
	msg := LinkStatus{}
	msg.Update(NewNodeIdWithSuffix(1), StatusList{})

	buffer := NewMessageBuffer(MaxMsgLength)
	assert.Nil(t, msg.MarshalTo(buffer))
	assert.Equal(t, linkStatusHeaderLength, buffer.Len())

	var parsed LinkStatus
	assert.Nil(t, parsed.UnmarshalFrom(WrapMessageBuffer(buffer.Bytes())))
	assert.Empty(t, parsed.Status)
}
