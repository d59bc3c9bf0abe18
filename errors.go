package linkmonitor

import "errors"

var (
	ErrPeriodZero    = errors.New("Heartbeat period must be positive")
	ErrBufferFull    = errors.New("Write surpasses remaining buffer space")
	ErrBufferRead    = errors.New("Read surpasses buffered message length")
	ErrBufferEmpty   = errors.New("Buffer has no backing storage")
	ErrNotInMap      = errors.New("Link not present in ip map")
	ErrQueueClosed   = errors.New("Queue closed")
	ErrAlreadyActive = errors.New("Component already running")
	ErrStopped       = errors.New("Component stopped, instances are not reusable")
	ErrShortMessage  = errors.New("Datagram shorter than message header")
	ErrIdLength      = errors.New("Wrong length for a node id")
)
