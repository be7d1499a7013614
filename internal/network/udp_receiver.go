package network

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"scanbridge/internal/protocol"
)

// UDPReceiver is the agent-side UDP listener that receives binary input
// events from the host with minimal latency.
type UDPReceiver struct {
	hostAddr string // host address in "ip:port" format
	conn     *net.UDPConn
	done     chan struct{}
	log      zerolog.Logger

	// Callbacks invoked for each received input event.
	OnKey     func(scancode uint16, pressed bool)
	OnButtons func(mask uint8)
	OnWheel   func(notches int)
	OnMove    func(dx, dy int)

	// dedup ring buffer for redundant packets
	dedup seqDedup
}

// seqDedup tracks recently seen sequence numbers to discard redundant packets.
// Uses a fixed-size ring buffer, no allocation, O(1) lookup.
type seqDedup struct {
	ring [512]uint32
	pos  int
	seen map[uint32]struct{}
}

func newSeqDedup() seqDedup {
	return seqDedup{seen: make(map[uint32]struct{}, 512)}
}

func (d *seqDedup) isDuplicate(seq uint32) bool {
	if _, ok := d.seen[seq]; ok {
		return true
	}
	// Evict oldest entry
	old := d.ring[d.pos]
	if old != 0 {
		delete(d.seen, old)
	}
	d.ring[d.pos] = seq
	d.seen[seq] = struct{}{}
	d.pos = (d.pos + 1) % len(d.ring)
	return false
}

// NewUDPReceiver creates a new UDP receiver for the agent.
// hostAddr should be "ip:port" matching the host's API address.
func NewUDPReceiver(hostAddr string, log zerolog.Logger) *UDPReceiver {
	return &UDPReceiver{
		hostAddr: hostAddr,
		done:     make(chan struct{}),
		dedup:    newSeqDedup(),
		log:      log,
	}
}

// Probe tests whether UDP connectivity to the host is available.
// It sends register packets and waits for an Ack response.
// Returns true if the host replied within the timeout, false otherwise.
func (r *UDPReceiver) Probe() bool {
	hostUDP, err := net.ResolveUDPAddr("udp", r.hostAddr)
	if err != nil {
		r.log.Warn().Err(err).Msg("udp probe failed to resolve host")
		return false
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		r.log.Warn().Err(err).Msg("udp probe failed to bind")
		return false
	}

	// Try up to 3 times with 500ms timeout each (total max ~1.5s)
	buf := make([]byte, 64)
	for attempt := 0; attempt < 3; attempt++ {
		// Send register
		pkt := &protocol.UDPPacket{
			Type:      protocol.UDPPacketRegister,
			Timestamp: time.Now().UnixMilli(),
		}
		conn.WriteToUDP(protocol.EncodeUDPPacket(pkt), hostUDP)

		// Wait for ack
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue // timeout or error, retry
		}
		resp, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}
		if resp.Type == protocol.UDPPacketAck {
			conn.Close()
			r.log.Info().Int("attempt", attempt+1).Msg("udp probe acked, path is open")
			return true
		}
	}

	conn.Close()
	r.log.Warn().Msg("udp probe got no ack after 3 attempts")
	return false
}

// Start opens a UDP socket, registers with the host, and begins receiving.
// Call Probe() first to verify UDP connectivity before calling Start().
func (r *UDPReceiver) Start() error {
	hostUDP, err := net.ResolveUDPAddr("udp", r.hostAddr)
	if err != nil {
		return err
	}

	// Bind to any available local port
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		return err
	}
	r.conn = conn

	// Large read buffer for burst receives
	conn.SetReadBuffer(1 << 20) // 1 MB

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	r.log.Info().Int("port", localAddr.Port).Str("host", r.hostAddr).Msg("udp receiver listening")

	// Send initial register
	r.sendControl(protocol.UDPPacketRegister, hostUDP)

	// Periodic heartbeat
	go r.heartbeatLoop(hostUDP)

	// Main receive loop
	go r.readLoop()

	return nil
}

// heartbeatLoop sends periodic heartbeat packets to keep the registration alive.
func (r *UDPReceiver) heartbeatLoop(hostAddr *net.UDPAddr) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sendControl(protocol.UDPPacketHeartbeat, hostAddr)
		case <-r.done:
			return
		}
	}
}

// sendControl sends a register or heartbeat packet (header-only, no payload).
func (r *UDPReceiver) sendControl(pktType uint8, addr *net.UDPAddr) {
	pkt := &protocol.UDPPacket{
		Type:      pktType,
		Timestamp: time.Now().UnixMilli(),
	}
	data := protocol.EncodeUDPPacket(pkt)
	r.conn.WriteToUDP(data, addr)
}

// readLoop reads and dispatches incoming binary input packets.
func (r *UDPReceiver) readLoop() {
	buf := make([]byte, 64)
	for {
		r.conn.SetReadDeadline(time.Time{}) // clear any deadline from probe
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}

		// Deduplicate redundant packets (same seq number)
		if pkt.Type != protocol.UDPPacketRegister && pkt.Type != protocol.UDPPacketHeartbeat {
			if r.dedup.isDuplicate(pkt.Seq) {
				continue
			}
		}

		r.dispatch(pkt)
	}
}

// dispatch routes a binary packet to the matching callback.
func (r *UDPReceiver) dispatch(pkt *protocol.UDPPacket) {
	switch pkt.Type {
	case protocol.UDPPacketMouseMove:
		if r.OnMove != nil {
			r.OnMove(int(pkt.DeltaX), int(pkt.DeltaY))
		}
	case protocol.UDPPacketMouseButtons:
		if r.OnButtons != nil {
			r.OnButtons(pkt.Mask)
		}
	case protocol.UDPPacketMouseWheel:
		if r.OnWheel != nil {
			r.OnWheel(int(pkt.Wheel))
		}
	case protocol.UDPPacketKeyEvent:
		if r.OnKey != nil {
			r.OnKey(pkt.Scancode, pkt.Pressed == 1)
		}
	}
}

// Stop shuts down the UDP receiver.
func (r *UDPReceiver) Stop() {
	close(r.done)
	if r.conn != nil {
		r.conn.Close()
	}
}
