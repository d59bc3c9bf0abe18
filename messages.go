package linkmonitor

import (
	"fmt"
	"time"
)

// processEpoch anchors the monotonic heartbeat timestamps. Heartbeat
// timestamps are only compared between messages of one sender, so the
// anchor itself never crosses the wire contract.
var processEpoch = time.Now()

func monotonicNow() int64 {
	return time.Since(processEpoch).Nanoseconds()
}

// HeartbeatLength is the serialized size of a heartbeat datagram.
const HeartbeatLength = NodeIdSize + 8 + 4

// Heartbeat is the periodic liveness message sent by a link writer.
type Heartbeat struct {
	Id        NodeId
	Timestamp int64 // monotonic nanoseconds, sender clock
	Count     uint32
}

// Update stamps the message with the current monotonic time and increments
// the counter. Called by the writer before every send.
func (msg *Heartbeat) Update(id NodeId) {
	msg.Id = id
	msg.Timestamp = monotonicNow()
	msg.Count++
}

// Clear resets the message to default values.
func (msg *Heartbeat) Clear() {
	msg.Id = DefaultId
	msg.Timestamp = 0
	msg.Count = 0
}

// MarshalTo serializes the message into buffer.
func (msg *Heartbeat) MarshalTo(buffer *MessageBuffer) error {
	if err := buffer.Add(msg.Id[:]); err != nil {
		return err
	}
	if err := buffer.AddInt64(msg.Timestamp); err != nil {
		return err
	}
	return buffer.AddUint32(msg.Count)
}

// UnmarshalFrom parses the message from buffer.
func (msg *Heartbeat) UnmarshalFrom(buffer *MessageBuffer) error {
	if buffer.Len() < HeartbeatLength {
		return ErrShortMessage
	}
	if err := buffer.Read(msg.Id[:]); err != nil {
		return err
	}
	timestamp, err := buffer.ReadInt64()
	if err != nil {
		return err
	}
	count, err := buffer.ReadUint32()
	if err != nil {
		return err
	}
	msg.Timestamp = timestamp
	msg.Count = count
	return nil
}

// LinkState is one entry of a link status vector.
type LinkState struct {
	Key string
	Up  bool
}

// StatusList is an ordered link status vector. Order is significant: it
// encodes the sender's link preference.
type StatusList []LinkState

// linkStatusHeaderLength covers id, wall timestamp, counter and list length.
const linkStatusHeaderLength = NodeIdSize + 8 + 4 + 4

// LinkStatus carries the full multi-link status vector from the mobility
// server to the mobility clients. The counter identifies duplicates
// introduced by redundant transmission paths.
type LinkStatus struct {
	Id        NodeId
	Timestamp int64 // unix nanoseconds, sender wall clock
	Count     uint32
	Status    StatusList
}

// Update replaces the status vector, stamps the wall clock and increments
// the counter.
func (msg *LinkStatus) Update(id NodeId, status StatusList) {
	msg.Id = id
	msg.Timestamp = time.Now().UnixNano()
	msg.Status = status
	msg.Count++
}

// Clear resets the message to default values.
func (msg *LinkStatus) Clear() {
	msg.Id = DefaultId
	msg.Timestamp = 0
	msg.Count = 0
	msg.Status = nil
}

// MarshalTo serializes the message into buffer.
func (msg *LinkStatus) MarshalTo(buffer *MessageBuffer) error {
	if err := buffer.Add(msg.Id[:]); err != nil {
		return err
	}
	if err := buffer.AddInt64(msg.Timestamp); err != nil {
		return err
	}
	if err := buffer.AddUint32(msg.Count); err != nil {
		return err
	}
	return msg.addStatusList(buffer)
}

// UnmarshalFrom parses the message from buffer.
func (msg *LinkStatus) UnmarshalFrom(buffer *MessageBuffer) error {
	if buffer.Len() < linkStatusHeaderLength {
		return ErrShortMessage
	}
	if err := buffer.Read(msg.Id[:]); err != nil {
		return err
	}
	timestamp, err := buffer.ReadInt64()
	if err != nil {
		return err
	}
	count, err := buffer.ReadUint32()
	if err != nil {
		return err
	}
	msg.Timestamp = timestamp
	msg.Count = count
	return msg.readStatusList(buffer)
}

func (msg *LinkStatus) addStatusList(buffer *MessageBuffer) error {
	if err := buffer.AddUint32(uint32(len(msg.Status))); err != nil {
		return fmt.Errorf("adding vector size at %d: %w", buffer.Len(), err)
	}
	for _, entry := range msg.Status {
		if err := buffer.AddUint32(uint32(len(entry.Key))); err != nil {
			return fmt.Errorf("adding string length at %d: %w", buffer.Len(), err)
		}
		if err := buffer.Add([]byte(entry.Key)); err != nil {
			return fmt.Errorf("adding string at %d: %w", buffer.Len(), err)
		}
		if err := buffer.AddBool(entry.Up); err != nil {
			return fmt.Errorf("adding boolean at %d: %w", buffer.Len(), err)
		}
	}
	return nil
}

func (msg *LinkStatus) readStatusList(buffer *MessageBuffer) error {
	size, err := buffer.ReadUint32()
	if err != nil {
		return fmt.Errorf("reading vector size: %w", err)
	}
	// Every entry occupies at least 5 bytes, bound the allocation by what
	// the datagram can actually hold.
	if int(size) > (buffer.Len()-buffer.rpos)/5 {
		return fmt.Errorf("reading vector size: %w", ErrBufferRead)
	}
	status := make(StatusList, 0, size)
	for i := uint32(0); i < size; i++ {
		keyLen, err := buffer.ReadUint32()
		if err != nil {
			return fmt.Errorf("reading string length: %w", err)
		}
		key := make([]byte, keyLen)
		if err := buffer.Read(key); err != nil {
			return fmt.Errorf("reading string data: %w", err)
		}
		up, err := buffer.ReadBool()
		if err != nil {
			return fmt.Errorf("reading boolean: %w", err)
		}
		status = append(status, LinkState{Key: string(key), Up: up})
	}
	msg.Status = status
	return nil
}
