package linkmonitor

import "encoding/binary"

// MaxMsgLength is the default buffer capacity: one Ethernet UDP payload
// (1500 - 20 IP - 8 UDP).
const MaxMsgLength = 1472

// MessageBuffer is a bounded byte buffer with independent write and read
// cursors, used to serialize protocol messages into a single datagram.
// All multi-byte values are packed little-endian.
type MessageBuffer struct {
	buf  []byte
	wpos int
	rpos int
}

// NewMessageBuffer creates a buffer with the given capacity. A capacity of
// zero yields a buffer without backing storage on which every Add and Read
// fails.
func NewMessageBuffer(size int) *MessageBuffer {
	buffer := &MessageBuffer{}
	if size > 0 {
		buffer.buf = make([]byte, 0, size)
	}
	return buffer
}

// WrapMessageBuffer wraps a received datagram for reading.
func WrapMessageBuffer(data []byte) *MessageBuffer {
	return &MessageBuffer{buf: data, wpos: len(data)}
}

// Add appends raw bytes. An exactly-filling write succeeds.
func (m *MessageBuffer) Add(data []byte) error {
	if m.buf == nil || m.wpos+len(data) > cap(m.buf) {
		if m.buf == nil {
			return ErrBufferEmpty
		}
		return ErrBufferFull
	}
	m.buf = append(m.buf[:m.wpos], data...)
	m.wpos += len(data)
	return nil
}

func (m *MessageBuffer) AddByte(val byte) error {
	return m.Add([]byte{val})
}

func (m *MessageBuffer) AddBool(val bool) error {
	if val {
		return m.AddByte(1)
	}
	return m.AddByte(0)
}

func (m *MessageBuffer) AddUint32(val uint32) error {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], val)
	return m.Add(scratch[:])
}

func (m *MessageBuffer) AddInt64(val int64) error {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], uint64(val))
	return m.Add(scratch[:])
}

// Read copies the next len(dst) bytes into dst and advances the read cursor.
func (m *MessageBuffer) Read(dst []byte) error {
	if m.buf == nil {
		return ErrBufferEmpty
	}
	if m.rpos+len(dst) > m.wpos {
		return ErrBufferRead
	}
	copy(dst, m.buf[m.rpos:m.rpos+len(dst)])
	m.rpos += len(dst)
	return nil
}

func (m *MessageBuffer) ReadByte() (byte, error) {
	var scratch [1]byte
	if err := m.Read(scratch[:]); err != nil {
		return 0, err
	}
	return scratch[0], nil
}

func (m *MessageBuffer) ReadBool() (bool, error) {
	val, err := m.ReadByte()
	return val != 0, err
}

func (m *MessageBuffer) ReadUint32() (uint32, error) {
	var scratch [4]byte
	if err := m.Read(scratch[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(scratch[:]), nil
}

func (m *MessageBuffer) ReadInt64() (int64, error) {
	var scratch [8]byte
	if err := m.Read(scratch[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(scratch[:])), nil
}

// Len returns the number of bytes written so far.
func (m *MessageBuffer) Len() int {
	return m.wpos
}

// Space returns the number of bytes still writable.
func (m *MessageBuffer) Space() int {
	return cap(m.buf) - m.wpos
}

// Bytes returns the written portion of the buffer, valid until the next Add.
func (m *MessageBuffer) Bytes() []byte {
	if m.buf == nil {
		return nil
	}
	return m.buf[:m.wpos]
}

// Reset rewinds the read cursor, keeping the content.
func (m *MessageBuffer) Reset() {
	m.rpos = 0
}

// Clear drops the content and rewinds both cursors.
func (m *MessageBuffer) Clear() {
	if m.buf != nil {
		m.buf = m.buf[:0]
	}
	m.wpos = 0
	m.rpos = 0
}
