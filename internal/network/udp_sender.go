package network

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"scanbridge/internal/protocol"
)

// UDPSender is the host-side UDP broadcaster that streams binary input
// events to all registered agents with minimal overhead.
type UDPSender struct {
	conn     *net.UDPConn
	port     int
	agents   map[string]*udpAgent
	agentsMu sync.RWMutex
	seq      uint32 // atomic, monotonically increasing
	done     chan struct{}
	log      zerolog.Logger
}

type udpAgent struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// NewUDPSender creates a new UDP sender for the host.
// port should typically match the API port (TCP and UDP can share port numbers).
func NewUDPSender(port int, log zerolog.Logger) *UDPSender {
	return &UDPSender{
		port:   port,
		agents: make(map[string]*udpAgent),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Start binds the UDP socket and begins listening for agent registrations.
func (s *UDPSender) Start() error {
	addr := &net.UDPAddr{Port: s.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn

	// 1 MB write buffer for burst writes
	conn.SetWriteBuffer(1 << 20)
	// 64 KB read buffer for register/heartbeat
	conn.SetReadBuffer(1 << 16)

	s.log.Info().Int("port", s.port).Msg("udp sender listening")

	go s.readLoop()
	go s.cleanupLoop()

	return nil
}

// readLoop listens for register and heartbeat packets from agents.
func (s *UDPSender) readLoop() {
	buf := make([]byte, 64)
	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}

		switch pkt.Type {
		case protocol.UDPPacketRegister:
			key := remoteAddr.String()
			s.agentsMu.Lock()
			if _, exists := s.agents[key]; !exists {
				s.log.Info().Str("agent", key).Msg("agent registered")
			}
			s.agents[key] = &udpAgent{addr: remoteAddr, lastSeen: time.Now()}
			s.agentsMu.Unlock()

			// Reply with Ack so agent can confirm UDP connectivity
			ack := &protocol.UDPPacket{
				Type:      protocol.UDPPacketAck,
				Timestamp: time.Now().UnixMilli(),
			}
			s.conn.WriteToUDP(protocol.EncodeUDPPacket(ack), remoteAddr)

		case protocol.UDPPacketHeartbeat:
			key := remoteAddr.String()
			s.agentsMu.Lock()
			if _, exists := s.agents[key]; !exists {
				s.log.Info().Str("agent", key).Msg("agent registered via heartbeat")
			}
			s.agents[key] = &udpAgent{addr: remoteAddr, lastSeen: time.Now()}
			s.agentsMu.Unlock()
		}
	}
}

// cleanupLoop removes agents that haven't sent a heartbeat recently.
func (s *UDPSender) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.agentsMu.Lock()
			for key, agent := range s.agents {
				if time.Since(agent.lastSeen) > 30*time.Second {
					s.log.Info().Str("agent", key).Msg("removing stale agent")
					delete(s.agents, key)
				}
			}
			s.agentsMu.Unlock()
		case <-s.done:
			return
		}
	}
}

// SendKey broadcasts a key transition. Key packets are sent multiple times
// since UDP has no delivery guarantee and a lost key event sticks a key.
func (s *UDPSender) SendKey(scancode uint16, pressed bool) {
	pkt := s.newPacket(protocol.UDPPacketKeyEvent)
	pkt.Scancode = scancode
	if pressed {
		pkt.Pressed = 1
	}
	s.broadcast(protocol.EncodeUDPPacket(pkt), 3)
}

// SendButtons broadcasts the full button bitmask. Redundant sends protect
// against a dropped release.
func (s *UDPSender) SendButtons(mask uint8) {
	pkt := s.newPacket(protocol.UDPPacketMouseButtons)
	pkt.Mask = mask
	s.broadcast(protocol.EncodeUDPPacket(pkt), 3)
}

// SendWheel broadcasts wheel motion in whole notches.
func (s *UDPSender) SendWheel(notches int) {
	pkt := s.newPacket(protocol.UDPPacketMouseWheel)
	pkt.Wheel = int32(notches)
	s.broadcast(protocol.EncodeUDPPacket(pkt), 2)
}

// SendMove broadcasts a relative motion sample. Moves are fire-and-forget;
// a lost delta is absorbed by the next one.
func (s *UDPSender) SendMove(dx, dy int) {
	pkt := s.newPacket(protocol.UDPPacketMouseMove)
	pkt.DeltaX = int32(dx)
	pkt.DeltaY = int32(dy)
	s.broadcast(protocol.EncodeUDPPacket(pkt), 1)
}

func (s *UDPSender) newPacket(pktType uint8) *protocol.UDPPacket {
	return &protocol.UDPPacket{
		Type:      pktType,
		Seq:       atomic.AddUint32(&s.seq, 1),
		Timestamp: time.Now().UnixMilli(),
	}
}

// broadcast sends data to all registered agents.
func (s *UDPSender) broadcast(data []byte, redundancy int) {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()

	for _, agent := range s.agents {
		for i := 0; i < redundancy; i++ {
			s.conn.WriteToUDP(data, agent.addr)
		}
	}
}

// HasAgents returns true if at least one agent is registered.
func (s *UDPSender) HasAgents() bool {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	return len(s.agents) > 0
}

// AgentCount returns the number of registered agents.
func (s *UDPSender) AgentCount() int {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	return len(s.agents)
}

// Stop shuts down the UDP sender.
func (s *UDPSender) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
}
