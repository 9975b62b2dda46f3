package dispatch

import (
	"net"
	"testing"

	"github.com/Iyzyman/distributed-go/internal/booking"
	"github.com/Iyzyman/distributed-go/internal/monitor"
	"github.com/Iyzyman/distributed-go/internal/protocol"
)

func newProcessor() *Processor {
	return NewProcessor(booking.NewEngine(), monitor.NewRegistry())
}

func clientAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}
}

func TestProcessBookSuccess(t *testing.T) {
	p := newProcessor()
	payload, _ := protocol.EncodeBookRequest(protocol.BookRequest{Name: "RoomA", StartDay: 0, StartHour: 9, EndDay: 0, EndHour: 11})
	req := protocol.Request{RequestID: 1, OpCode: protocol.OpBook, Payload: payload}
	resp, callbacks := p.Process(req, clientAddr())
	if resp.Code != protocol.OK {
		t.Fatalf("expected OK, got %d (%s)", resp.Code, resp.Payload)
	}
	if len(callbacks) != 0 {
		t.Fatalf("expected no callbacks with no watchers, got %d", len(callbacks))
	}
}

func TestProcessBookNotifiesWatchers(t *testing.T) {
	p := newProcessor()
	watcher := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4100}
	p.Monitors.Register("RoomA", watcher, 60)

	payload, _ := protocol.EncodeBookRequest(protocol.BookRequest{Name: "RoomA", StartDay: 0, StartHour: 9, EndDay: 0, EndHour: 11})
	req := protocol.Request{RequestID: 2, OpCode: protocol.OpBook, Payload: payload}
	resp, callbacks := p.Process(req, clientAddr())
	if resp.Code != protocol.OK {
		t.Fatalf("expected OK, got %d", resp.Code)
	}
	if len(callbacks) != 1 || callbacks[0].Target.Port != 4100 {
		t.Fatalf("expected one callback to the registered watcher, got %+v", callbacks)
	}
	cb, err := protocol.DecodeMonitorCallback(callbacks[0].Payload)
	if err != nil {
		t.Fatalf("decode callback: %v", err)
	}
	if cb.FacilityName != "RoomA" || len(cb.Bookings) != 1 {
		t.Fatalf("unexpected callback payload: %+v", cb)
	}
}

func TestProcessUnknownOpCode(t *testing.T) {
	p := newProcessor()
	req := protocol.Request{RequestID: 9, OpCode: 200}
	resp, callbacks := p.Process(req, clientAddr())
	if resp.Code != protocol.ErrInvalid || resp.RequestID != 9 {
		t.Fatalf("expected ERR_INVALID with request id preserved, got %+v", resp)
	}
	if callbacks != nil {
		t.Fatalf("expected no callbacks, got %+v", callbacks)
	}
}

func TestProcessChangeNarrowsToAffectedFacility(t *testing.T) {
	p := newProcessor()
	watcherA := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4200}
	watcherB := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4300}
	p.Monitors.Register("RoomA", watcherA, 60)
	p.Monitors.Register("RoomB", watcherB, 60)

	bookPayload, _ := protocol.EncodeBookRequest(protocol.BookRequest{Name: "RoomB", StartDay: 1, StartHour: 14, EndDay: 1, EndHour: 16})
	bookResp, _ := p.Process(protocol.Request{RequestID: 1, OpCode: protocol.OpBook, Payload: bookPayload}, clientAddr())
	id, err := protocol.DecodeConfirmationID(bookResp.Payload)
	if err != nil {
		t.Fatalf("decode confirmation id: %v", err)
	}

	changePayload := protocol.EncodeChangeRequest(protocol.ChangeRequest{ConfirmationID: id, OffsetMinutes: 30})
	resp, callbacks := p.Process(protocol.Request{RequestID: 2, OpCode: protocol.OpChange, Payload: changePayload}, clientAddr())
	if resp.Code != protocol.OK {
		t.Fatalf("expected OK, got %d", resp.Code)
	}
	if len(callbacks) != 1 || callbacks[0].Target.Port != watcherB.Port {
		t.Fatalf("expected exactly one callback to RoomB's watcher, got %+v", callbacks)
	}
}

func TestProcessOpBEmitsConflictWhenFull(t *testing.T) {
	p := newProcessor()
	for d := uint8(0); d < 6; d++ {
		payload, _ := protocol.EncodeBookRequest(protocol.BookRequest{Name: "RoomA", StartDay: d, StartHour: 0, StartMinute: 0, EndDay: d + 1, EndHour: 0, EndMinute: 0})
		if resp, _ := p.Process(protocol.Request{RequestID: uint32(d) + 1, OpCode: protocol.OpBook, Payload: payload}, clientAddr()); resp.Code != protocol.OK {
			t.Fatalf("failed to pack day %d: %d %s", d, resp.Code, resp.Payload)
		}
	}
	payload, _ := protocol.EncodeBookRequest(protocol.BookRequest{Name: "RoomA", StartDay: 6, StartHour: 0, StartMinute: 0, EndDay: 6, EndHour: 23, EndMinute: 59})
	if resp, _ := p.Process(protocol.Request{RequestID: 100, OpCode: protocol.OpBook, Payload: payload}, clientAddr()); resp.Code != protocol.OK {
		t.Fatalf("failed to pack day 6: %d %s", resp.Code, resp.Payload)
	}

	opBPayload, _ := protocol.EncodeOptionalName("RoomA")
	if resp, _ := p.Process(protocol.Request{RequestID: 101, OpCode: protocol.OpB, Payload: opBPayload}, clientAddr()); resp.Code != protocol.OK {
		t.Fatalf("expected last minute to be free: %d", resp.Code)
	}
	resp, _ := p.Process(protocol.Request{RequestID: 102, OpCode: protocol.OpB, Payload: opBPayload}, clientAddr())
	if resp.Code != protocol.ErrConflict {
		t.Fatalf("expected ERR_CONFLICT once week is full, got %d", resp.Code)
	}
}

func TestProcessOpAIsNoop(t *testing.T) {
	p := newProcessor()
	payload, _ := protocol.EncodeOptionalName("")
	resp, callbacks := p.Process(protocol.Request{RequestID: 5, OpCode: protocol.OpA, Payload: payload}, clientAddr())
	if resp.Code != protocol.OK || len(callbacks) != 0 {
		t.Fatalf("expected OK with no callbacks, got %+v %+v", resp, callbacks)
	}
}
