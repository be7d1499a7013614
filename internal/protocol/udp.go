package protocol

import (
	"encoding/binary"
	"errors"
)

// UDP Packet types
const (
	UDPPacketMouseMove    uint8 = 0x01
	UDPPacketMouseButtons uint8 = 0x02
	UDPPacketMouseWheel   uint8 = 0x03
	UDPPacketKeyEvent     uint8 = 0x04
	UDPPacketRegister     uint8 = 0x10
	UDPPacketHeartbeat    uint8 = 0x11
	UDPPacketAck          uint8 = 0x12 // Host -> Agent: confirms UDP path is open
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const UDPHeaderSize = 13

// UDPPacket represents a binary-encoded input event for low-latency UDP transport.
//
// Wire format per type:
//
//	MouseMove    (0x01): header + dx(int32) + dy(int32)            = 21 bytes
//	MouseButtons (0x02): header + mask(uint8)                      = 14 bytes
//	MouseWheel   (0x03): header + notches(int32)                   = 17 bytes
//	KeyEvent     (0x04): header + scancode(uint16) + pressed(uint8)= 16 bytes
//	Register     (0x10): header only                               = 13 bytes
//	Heartbeat    (0x11): header only                               = 13 bytes
type UDPPacket struct {
	Type      uint8
	Seq       uint32
	Timestamp int64
	DeltaX    int32  // mouse move
	DeltaY    int32  // mouse move
	Mask      uint8  // button state bitmask, bit 0 = left
	Wheel     int32  // wheel notches
	Scancode  uint16 // canonical 9-bit scan code
	Pressed   uint8  // key (1=pressed, 0=released)
}

// EncodeUDPPacket serializes a UDPPacket to wire format.
func EncodeUDPPacket(pkt *UDPPacket) []byte {
	size := UDPHeaderSize
	switch pkt.Type {
	case UDPPacketMouseMove:
		size += 8 // dx(4) + dy(4)
	case UDPPacketMouseButtons:
		size += 1 // mask(1)
	case UDPPacketMouseWheel:
		size += 4 // notches(4)
	case UDPPacketKeyEvent:
		size += 3 // scancode(2) + pressed(1)
	}

	buf := make([]byte, size)
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	payload := buf[UDPHeaderSize:]
	switch pkt.Type {
	case UDPPacketMouseMove:
		binary.BigEndian.PutUint32(payload[0:4], uint32(pkt.DeltaX))
		binary.BigEndian.PutUint32(payload[4:8], uint32(pkt.DeltaY))
	case UDPPacketMouseButtons:
		payload[0] = pkt.Mask
	case UDPPacketMouseWheel:
		binary.BigEndian.PutUint32(payload[0:4], uint32(pkt.Wheel))
	case UDPPacketKeyEvent:
		binary.BigEndian.PutUint16(payload[0:2], pkt.Scancode)
		payload[2] = pkt.Pressed
	}

	return buf
}

// DecodeUDPPacket deserializes wire bytes into a UDPPacket.
func DecodeUDPPacket(data []byte) (*UDPPacket, error) {
	if len(data) < UDPHeaderSize {
		return nil, errors.New("udp: packet too short")
	}

	pkt := &UDPPacket{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	payload := data[UDPHeaderSize:]
	switch pkt.Type {
	case UDPPacketMouseMove:
		if len(payload) < 8 {
			return nil, errors.New("udp: mouse move payload too short")
		}
		pkt.DeltaX = int32(binary.BigEndian.Uint32(payload[0:4]))
		pkt.DeltaY = int32(binary.BigEndian.Uint32(payload[4:8]))
	case UDPPacketMouseButtons:
		if len(payload) < 1 {
			return nil, errors.New("udp: mouse buttons payload too short")
		}
		pkt.Mask = payload[0]
	case UDPPacketMouseWheel:
		if len(payload) < 4 {
			return nil, errors.New("udp: mouse wheel payload too short")
		}
		pkt.Wheel = int32(binary.BigEndian.Uint32(payload[0:4]))
	case UDPPacketKeyEvent:
		if len(payload) < 3 {
			return nil, errors.New("udp: key event payload too short")
		}
		pkt.Scancode = binary.BigEndian.Uint16(payload[0:2])
		pkt.Pressed = payload[2]
	case UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
		// no payload
	default:
		return nil, errors.New("udp: unknown packet type")
	}

	return pkt, nil
}
