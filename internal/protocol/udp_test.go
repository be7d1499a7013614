package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyEventRoundTrip(t *testing.T) {
	pkt := &UDPPacket{
		Type:      UDPPacketKeyEvent,
		Seq:       42,
		Timestamp: 1700000000000,
		Scancode:  0x11D,
		Pressed:   1,
	}

	out, err := DecodeUDPPacket(EncodeUDPPacket(pkt))
	require.NoError(t, err)
	assert.Equal(t, pkt, out)
}

func TestMouseMoveRoundTrip(t *testing.T) {
	pkt := &UDPPacket{
		Type:      UDPPacketMouseMove,
		Seq:       7,
		Timestamp: 123,
		DeltaX:    -15,
		DeltaY:    9,
	}

	out, err := DecodeUDPPacket(EncodeUDPPacket(pkt))
	require.NoError(t, err)
	assert.Equal(t, pkt, out)
}

func TestMouseButtonsRoundTrip(t *testing.T) {
	pkt := &UDPPacket{
		Type: UDPPacketMouseButtons,
		Seq:  1,
		Mask: 0x15,
	}

	out, err := DecodeUDPPacket(EncodeUDPPacket(pkt))
	require.NoError(t, err)
	assert.Equal(t, uint8(0x15), out.Mask)
}

func TestMouseWheelRoundTrip(t *testing.T) {
	pkt := &UDPPacket{
		Type:  UDPPacketMouseWheel,
		Seq:   2,
		Wheel: -3,
	}

	out, err := DecodeUDPPacket(EncodeUDPPacket(pkt))
	require.NoError(t, err)
	assert.Equal(t, int32(-3), out.Wheel)
}

func TestControlPacketsHeaderOnly(t *testing.T) {
	for _, typ := range []uint8{UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck} {
		data := EncodeUDPPacket(&UDPPacket{Type: typ, Timestamp: 5})
		assert.Len(t, data, UDPHeaderSize)

		out, err := DecodeUDPPacket(data)
		require.NoError(t, err)
		assert.Equal(t, typ, out.Type)
	}
}

func TestDecodeShortPackets(t *testing.T) {
	_, err := DecodeUDPPacket([]byte{0x01, 0x00})
	assert.Error(t, err)

	// Valid header but truncated payload.
	data := EncodeUDPPacket(&UDPPacket{Type: UDPPacketMouseMove, DeltaX: 1, DeltaY: 1})
	_, err = DecodeUDPPacket(data[:UDPHeaderSize+3])
	assert.Error(t, err)

	data = EncodeUDPPacket(&UDPPacket{Type: UDPPacketKeyEvent, Scancode: 1})
	_, err = DecodeUDPPacket(data[:UDPHeaderSize+1])
	assert.Error(t, err)
}

func TestDecodeUnknownType(t *testing.T) {
	data := make([]byte, UDPHeaderSize)
	data[0] = 0x7F
	_, err := DecodeUDPPacket(data)
	assert.Error(t, err)
}
