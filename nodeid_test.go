package linkmonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeIdRoundTrip(t *testing.T) {
	id := NewNodeId()
	parsed, err := NodeIdFromBytes(id.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, id, parsed)

	fromText, err := ParseNodeId(id.String())
	assert.Nil(t, err)
	assert.Equal(t, id, fromText)

	_, err = NodeIdFromBytes(make([]byte, 15))
	assert.Equal(t, ErrIdLength, err)
}

func TestNodeIdOrdering(t *testing.T) {
	lower := NodeId{0x00, 0x01}
	higher := NodeId{0x00, 0x02}
	assert.True(t, lower.Less(higher))
	assert.False(t, higher.Less(lower))
	assert.False(t, lower.Less(lower))
	same := lower
	assert.True(t, lower == same)
	assert.True(t, lower != higher)
}

func TestNodeIdSubfields(t *testing.T) {
	id := NodeId{0x12, 0x34, 0x56, 0x78, 0x9A}
	assert.EqualValues(t, 0x1234, id.Vendor())
	assert.EqualValues(t, 0x5678, id.Host())

	other := NodeId{0xFF, 0xFF, 0x56, 0x78}
	assert.True(t, id.OnSameHostAs(other))
	other[2] = 0x00
	assert.False(t, id.OnSameHostAs(other))

	entity := id.Entity()
	assert.Len(t, entity, 12)
	assert.EqualValues(t, 0x9A, entity[0])
}

func TestNodeIdSuffix(t *testing.T) {
	id := NewNodeIdWithSuffix(42)
	assert.EqualValues(t, 0xFF, id[14])
	assert.EqualValues(t, 42, id[15])
	for i := 0; i < 14; i++ {
		assert.EqualValues(t, 0, id[i])
	}
}
