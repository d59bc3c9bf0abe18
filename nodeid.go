package linkmonitor

import (
	"bytes"

	"github.com/google/uuid"
)

// NodeIdSize is the fixed serialized size of a NodeId.
const NodeIdSize = 16

// NodeId identifies a writer, reader or server instance on the wire.
// The core treats it as an opaque 16 byte tag; by convention the bytes
// encode a vendor id (2B), a host id (2B) and a process/entity id (12B).
type NodeId [NodeIdSize]byte

const (
	vendorIdOffset = 0
	vendorIdLen    = 2
	hostIdOffset   = 2
	hostIdLen      = 2
	entityIdOffset = 4
)

// DefaultId is the reserved all-ones id carried by cleared messages.
var DefaultId = NodeId{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// NewNodeId returns a random NodeId.
func NewNodeId() NodeId {
	return NodeId(uuid.New())
}

// NewNodeIdWithSuffix returns a NodeId of the form
// 00...00.FF.<suffix>, the convention used by the deployment examples
// to derive ids from small integers.
func NewNodeIdWithSuffix(suffix uint8) NodeId {
	var id NodeId
	id[NodeIdSize-2] = 0xFF
	id[NodeIdSize-1] = suffix
	return id
}

// NodeIdFromBytes builds a NodeId from exactly NodeIdSize raw bytes.
func NodeIdFromBytes(raw []byte) (NodeId, error) {
	var id NodeId
	if len(raw) != NodeIdSize {
		return id, ErrIdLength
	}
	copy(id[:], raw)
	return id, nil
}

// ParseNodeId parses the canonical text form produced by String.
func ParseNodeId(s string) (NodeId, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return NodeId{}, err
	}
	return NodeId(parsed), nil
}

// Less reports whether id orders before other under byte-wise comparison.
func (id NodeId) Less(other NodeId) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// Vendor returns the big-endian vendor id subfield.
func (id NodeId) Vendor() uint16 {
	return uint16(id[vendorIdOffset])<<8 | uint16(id[vendorIdOffset+vendorIdLen-1])
}

// Host returns the big-endian host id subfield.
func (id NodeId) Host() uint16 {
	return uint16(id[hostIdOffset])<<8 | uint16(id[hostIdOffset+hostIdLen-1])
}

// OnSameHostAs reports whether both ids carry the same host subfield.
func (id NodeId) OnSameHostAs(other NodeId) bool {
	return bytes.Equal(id[hostIdOffset:hostIdOffset+hostIdLen], other[hostIdOffset:hostIdOffset+hostIdLen])
}

// Entity returns a copy of the process/entity subfield.
func (id NodeId) Entity() []byte {
	entity := make([]byte, NodeIdSize-entityIdOffset)
	copy(entity, id[entityIdOffset:])
	return entity
}

// Bytes returns a copy of the raw id bytes.
func (id NodeId) Bytes() []byte {
	raw := make([]byte, NodeIdSize)
	copy(raw, id[:])
	return raw
}

func (id NodeId) String() string {
	return uuid.UUID(id).String()
}
