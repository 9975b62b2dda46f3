package netclient

import (
	"net"
	"testing"
	"time"

	"github.com/Iyzyman/distributed-go/internal/protocol"
)

// echoServer replies to every datagram with an OK response carrying
// the same request_id, simulating a well-behaved server for the
// request/reply half of the client core.
func echoServer(t *testing.T) *net.UDPAddr {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			req, err := protocol.UnmarshalRequest(buf[:n])
			if err != nil {
				continue
			}
			reply := protocol.MarshalResponse(protocol.Response{RequestID: req.RequestID, Code: protocol.OK})
			conn.WriteToUDP(reply, from)
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr)
}

func TestNextRequestIDNeverZero(t *testing.T) {
	addr := echoServer(t)
	c, err := Dial(addr, 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	for i := 0; i < 1000; i++ {
		if c.NextRequestID() == 0 {
			t.Fatal("request id must never be zero")
		}
	}
}

func TestSendRequestSuccess(t *testing.T) {
	addr := echoServer(t)
	c, err := Dial(addr, 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	c.Timeout = 500 * time.Millisecond

	id := c.NextRequestID()
	resp, err := c.SendRequest(protocol.Request{RequestID: id, OpCode: protocol.OpA})
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if resp.RequestID != id || resp.Code != protocol.OK {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSendRequestTimeoutAfterRetries(t *testing.T) {
	// A server that never replies.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	c, err := Dial(conn.LocalAddr().(*net.UDPAddr), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	c.Timeout = 20 * time.Millisecond
	c.MaxRetries = 1

	_, err = c.SendRequest(protocol.Request{RequestID: c.NextRequestID(), OpCode: protocol.OpA})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
}

func TestSendRequestDiscardsMismatchedReply(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	go func() {
		buf := make([]byte, 2048)
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		req, _ := protocol.UnmarshalRequest(buf[:n])
		// Send a stray reply with the wrong request_id first, then the real one.
		stray := protocol.MarshalResponse(protocol.Response{RequestID: req.RequestID + 1, Code: protocol.OK})
		conn.WriteToUDP(stray, from)
		time.Sleep(10 * time.Millisecond)
		real := protocol.MarshalResponse(protocol.Response{RequestID: req.RequestID, Code: protocol.OK})
		conn.WriteToUDP(real, from)
	}()

	c, err := Dial(conn.LocalAddr().(*net.UDPAddr), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	c.Timeout = 500 * time.Millisecond

	id := c.NextRequestID()
	resp, err := c.SendRequest(protocol.Request{RequestID: id, OpCode: protocol.OpA})
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if resp.RequestID != id {
		t.Fatalf("expected the real reply, got request_id=%d", resp.RequestID)
	}
}
