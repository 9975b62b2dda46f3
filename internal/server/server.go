// Package server implements the UDP server loop: single-socket
// receive loop, invocation-semantic policy, fault injection, and
// callback fan-out, per spec.md §4.E. Grounded on server/main.go's
// listen-and-loop shape and server/ops.go's per-packet handling in the
// teacher repo, generalized from the teacher's goroutine-per-packet
// model to the single-threaded run-to-completion model spec.md §5
// requires.
package server

import (
	"log"
	"net"

	"github.com/Iyzyman/distributed-go/internal/booking"
	"github.com/Iyzyman/distributed-go/internal/dispatch"
	"github.com/Iyzyman/distributed-go/internal/metrics"
	"github.com/Iyzyman/distributed-go/internal/monitor"
	"github.com/Iyzyman/distributed-go/internal/protocol"
)

// maxDatagramSize bounds a single incoming UDP read: the largest
// payload one IPv4 UDP datagram can carry. Requests longer than this
// (e.g. a name near the 65535-byte string limit) cannot arrive whole.
const maxDatagramSize = 65507

// Server owns the UDP socket and every piece of state a datagram's
// handling touches.
type Server struct {
	conn      *net.UDPConn
	cfg       Config
	sim       *Simulator
	dup       *DupCache
	processor *dispatch.Processor
	monitors  *monitor.Registry
	metrics   *metrics.Collector
}

// New constructs a server bound to cfg.Port. The caller starts the
// loop with Run.
func New(cfg Config) (*Server, error) {
	return newServer(cfg, nil)
}

// NewWithMetrics is New plus a Prometheus collector whose counters are
// updated as datagrams are handled. Passing a nil collector is
// equivalent to New.
func NewWithMetrics(cfg Config, mc *metrics.Collector) (*Server, error) {
	return newServer(cfg, mc)
}

func newServer(cfg Config, mc *metrics.Collector) (*Server, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	monitors := monitor.NewRegistry()
	engine := booking.NewEngine()
	return &Server{
		conn:      conn,
		cfg:       cfg,
		sim:       NewSimulator(cfg.LossRate, cfg.ReplyLossRate, cfg.DelayMs),
		dup:       NewDupCache(cfg.CacheTTL),
		processor: dispatch.NewProcessor(engine, monitors),
		monitors:  monitors,
		metrics:   mc,
	}, nil
}

func (s *Server) Close() error {
	return s.conn.Close()
}

// Run executes the receive loop until the socket is closed or read
// fails terminally. Each datagram is handled to completion before the
// next is read, matching spec.md §5's single-threaded model.
func (s *Server) Run() error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		s.handleDatagram(append([]byte(nil), buf[:n]...), from)
		// Sweeping on every loop iteration is explicitly acceptable
		// per spec.md §9's lazy-expiry design note.
		s.dup.Sweep()
		s.monitors.Sweep()
	}
}

// handleDatagram runs the full per-datagram pipeline of spec.md §4.E.
func (s *Server) handleDatagram(data []byte, from *net.UDPAddr) {
	if s.sim.DropIncoming() {
		log.Printf("server: dropped incoming datagram from %s (simulated loss)", from)
		if s.metrics != nil {
			s.metrics.DropsTotal.WithLabelValues("incoming").Inc()
		}
		return
	}

	req, err := protocol.UnmarshalRequest(data)
	if err != nil {
		log.Printf("server: malformed frame from %s: %v", from, err)
		resp := protocol.Response{RequestID: 0, Code: protocol.ErrInvalid, Payload: []byte(err.Error())}
		s.sendReply(resp, from)
		return
	}
	log.Printf("server: request_id=%d op=%s semantic=%d from=%s", req.RequestID, protocol.OpName(req.OpCode), req.Semantic, from)
	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(protocol.OpName(req.OpCode)).Inc()
	}

	endpoint := from.String()
	atMostOnce := s.cfg.Semantic == AtMostOnce

	if atMostOnce {
		if cached, ok := s.dup.Lookup(endpoint, req.RequestID); ok {
			log.Printf("server: replaying cached reply for request_id=%d from=%s (no re-execution)", req.RequestID, from)
			if s.metrics != nil {
				s.metrics.DupCacheHits.Inc()
			}
			s.sendRawReply(cached, from)
			return
		}
		if s.metrics != nil {
			s.metrics.DupCacheMisses.Inc()
		}
	}

	resp, callbacks := s.processor.Process(req, from)
	replyBytes := protocol.MarshalResponse(resp)
	s.sendRawReply(replyBytes, from)

	if atMostOnce {
		s.dup.Store(endpoint, req.RequestID, replyBytes)
	}

	for _, cb := range callbacks {
		s.sendRawReply(cb.Payload, cb.Target)
		if s.metrics != nil {
			s.metrics.CallbacksSent.Inc()
		}
	}
}

// sendReply marshals and sends a protocol.Response.
func (s *Server) sendReply(resp protocol.Response, to *net.UDPAddr) {
	s.sendRawReply(protocol.MarshalResponse(resp), to)
}

// sendRawReply applies the simulator to an outbound datagram in the
// order spec.md §9 mandates: drop decision first, then delay, then
// send — never the reverse, so a datagram already decided to be
// dropped is never slept on.
func (s *Server) sendRawReply(b []byte, to *net.UDPAddr) {
	if s.sim.DropOutgoing() {
		log.Printf("server: dropped outgoing datagram to %s (simulated loss)", to)
		if s.metrics != nil {
			s.metrics.DropsTotal.WithLabelValues("outgoing").Inc()
		}
		return
	}
	s.sim.Delay()
	if _, err := s.conn.WriteToUDP(b, to); err != nil {
		log.Printf("server: write to %s failed: %v", to, err)
		return
	}
	log.Printf("server: sent %d bytes to %s", len(b), to)
}

// LocalAddr exposes the bound socket address, e.g. for startup logging.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}
