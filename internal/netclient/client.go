// Package netclient implements the client-side request/reply core:
// per-logical-request random request ids, bounded-timeout
// send-and-await with non-matching-reply discard, bounded retries,
// and the monitor-wait receive loop, per spec.md §4.F. Grounded on
// client/cli/client.go's SendRequest in the teacher repo, generalized
// to random (rather than incrementing) request ids and stripped of
// the teacher's ad hoc PacketDemo reply-loss coin flip — spec.md's
// fault injection is server-side only (§4.E).
package netclient

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/Iyzyman/distributed-go/internal/protocol"
)

const maxDatagramSize = 65507

// Client owns the UDP socket used to talk to one server endpoint.
type Client struct {
	conn       *net.UDPConn
	rng        *rand.Rand
	Timeout    time.Duration
	MaxRetries int
}

// Dial opens a UDP socket toward server, optionally bound to a local
// port (0 means the OS picks one).
func Dial(server *net.UDPAddr, bindPort int) (*Client, error) {
	local := &net.UDPAddr{Port: bindPort}
	conn, err := net.DialUDP("udp", local, server)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:       conn,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Timeout:    2 * time.Second,
		MaxRetries: 4,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// NextRequestID draws a fresh uniformly random positive 32-bit
// request id for a new logical request. It must be reused verbatim
// across that request's retransmissions — callers draw it once per
// logical operation, never per attempt.
func (c *Client) NextRequestID() uint32 {
	for {
		id := c.rng.Uint32()
		if id != 0 {
			return id
		}
	}
}

// TimeoutError is returned once all retries are exhausted. The caller
// must treat this as "outcome unknown": under at-least-once, the
// operation may have executed one or more times despite never
// producing an observed reply.
type TimeoutError struct {
	RequestID uint32
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply for request_id=%d after %d attempt(s); operation may have executed under at-least-once semantics", e.RequestID, e.Attempts)
}

// SendRequest transmits req (marshaled once, identical bytes on every
// retry) and waits for a matching response, retrying on timeout up to
// MaxRetries extra attempts. Responses whose request_id does not
// match are discarded and the wait resumes for the remaining window,
// per spec.md §4.F.
func (c *Client) SendRequest(req protocol.Request) (protocol.Response, error) {
	data := protocol.MarshalRequest(req)
	buf := make([]byte, maxDatagramSize)

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if _, err := c.conn.Write(data); err != nil {
			return protocol.Response{}, fmt.Errorf("send request_id=%d: %w", req.RequestID, err)
		}

		deadline := time.Now().Add(c.Timeout)
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			c.conn.SetReadDeadline(deadline)
			n, err := c.conn.Read(buf)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					break
				}
				return protocol.Response{}, fmt.Errorf("read reply for request_id=%d: %w", req.RequestID, err)
			}
			resp, err := protocol.UnmarshalResponse(buf[:n])
			if err != nil {
				continue // malformed datagram, keep waiting within the window
			}
			if resp.RequestID != req.RequestID {
				continue // stray reply to an earlier/unrelated request, keep waiting
			}
			return resp, nil
		}
	}
	return protocol.Response{}, &TimeoutError{RequestID: req.RequestID, Attempts: c.MaxRetries + 1}
}

// MonitorWait blocks for intervalSeconds wall-time after a successful
// REGISTER_MONITOR reply, invoking onCallback for every well-formed
// monitor-callback datagram received. Intra-window read timeouts are
// ignored and receiving resumes, per spec.md §4.F.
func (c *Client) MonitorWait(intervalSeconds uint32, onCallback func(protocol.MonitorCallback)) {
	deadline := time.Now().Add(time.Duration(intervalSeconds) * time.Second)
	buf := make([]byte, maxDatagramSize)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		c.conn.SetReadDeadline(deadline)
		n, err := c.conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return
			}
			continue
		}
		cb, err := protocol.DecodeMonitorCallback(buf[:n])
		if err != nil {
			continue
		}
		onCallback(cb)
	}
}
