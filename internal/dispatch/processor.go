// Package dispatch implements the request processor: a pure function
// of (decoded request, source endpoint, engine state) to (response,
// callbacks), per spec.md §4.D. Grounded on server/ops.go's
// processOperation dispatch table in the teacher repo and
// RequestProcessor.java's processRequest/handle* methods in
// original_source.
package dispatch

import (
	"net"

	"github.com/Iyzyman/distributed-go/internal/booking"
	"github.com/Iyzyman/distributed-go/internal/monitor"
	"github.com/Iyzyman/distributed-go/internal/protocol"
)

// opBDuration is the fixed booking length OP_B allocates: a single
// minute, chosen so repeated calls can keep finding fresh slots and
// demonstrate non-idempotence under at-least-once retransmission.
const opBDuration = 1

// Callback is one outbound monitor notification the server loop must
// send, independent of the primary reply.
type Callback struct {
	Target  *net.UDPAddr
	Payload []byte
}

// Processor dispatches decoded requests against the booking engine
// and monitor registry.
type Processor struct {
	Engine    *booking.Engine
	Monitors  *monitor.Registry
}

func NewProcessor(engine *booking.Engine, monitors *monitor.Registry) *Processor {
	return &Processor{Engine: engine, Monitors: monitors}
}

// Process dispatches a single decoded request, already known to have
// a structurally valid frame (the protocol.UnmarshalRequest step
// passed). Operation-payload-level validation failures are mapped to
// ERR_INVALID here, same as any other engine error.
func (p *Processor) Process(req protocol.Request, from *net.UDPAddr) (protocol.Response, []Callback) {
	switch req.OpCode {
	case protocol.OpQuery:
		return p.handleQuery(req)
	case protocol.OpBook:
		return p.handleBook(req)
	case protocol.OpChange:
		return p.handleChange(req)
	case protocol.OpRegisterMonitor:
		return p.handleRegisterMonitor(req, from)
	case protocol.OpA:
		return p.handleOpA(req)
	case protocol.OpB:
		return p.handleOpB(req)
	default:
		return errorResponse(req.RequestID, protocol.ErrInvalid, "unknown op_code"), nil
	}
}

func (p *Processor) handleQuery(req protocol.Request) (protocol.Response, []Callback) {
	qr, err := protocol.DecodeQueryRequest(req.Payload)
	if err != nil {
		return errorResponse(req.RequestID, protocol.ErrInvalid, err.Error()), nil
	}
	byDay, err := p.Engine.Query(qr.Name, qr.Days)
	if err != nil {
		return engineErrorResponse(req.RequestID, err), nil
	}
	days := qr.Days
	if len(days) == 0 {
		days = []uint8{0, 1, 2, 3, 4, 5, 6}
	}
	out := make([]protocol.DayIntervals, 0, len(days))
	for _, d := range days {
		raw := byDay[d]
		intervals := make([][2]uint16, len(raw))
		for i, iv := range raw {
			intervals[i] = [2]uint16{uint16(iv[0]), uint16(iv[1])}
		}
		out = append(out, protocol.DayIntervals{Day: d, Intervals: intervals})
	}
	payload := protocol.EncodeQueryResponse(out)
	return protocol.Response{RequestID: req.RequestID, Code: protocol.OK, Payload: payload}, nil
}

func (p *Processor) handleBook(req protocol.Request) (protocol.Response, []Callback) {
	br, err := protocol.DecodeBookRequest(req.Payload)
	if err != nil {
		return errorResponse(req.RequestID, protocol.ErrInvalid, err.Error()), nil
	}
	id, err := p.Engine.Book(br.Name, br.StartDay, br.StartHour, br.StartMinute, br.EndDay, br.EndHour, br.EndMinute)
	if err != nil {
		return engineErrorResponse(req.RequestID, err), nil
	}
	resp := protocol.Response{RequestID: req.RequestID, Code: protocol.OK, Payload: protocol.EncodeConfirmationID(id)}
	return resp, p.callbacksForFacility(br.Name)
}

func (p *Processor) handleChange(req protocol.Request) (protocol.Response, []Callback) {
	cr, err := protocol.DecodeChangeRequest(req.Payload)
	if err != nil {
		return errorResponse(req.RequestID, protocol.ErrInvalid, err.Error()), nil
	}
	if err := p.Engine.Change(cr.ConfirmationID, cr.OffsetMinutes); err != nil {
		return engineErrorResponse(req.RequestID, err), nil
	}
	resp := protocol.Response{RequestID: req.RequestID, Code: protocol.OK}

	// Narrow notification to the affected facility: the engine
	// exposes a booking -> facility reverse lookup (unlike the
	// original source's RequestProcessor, which lacked one and
	// notified every monitored facility on any CHANGE).
	facility, ok := p.Engine.FacilityForBooking(cr.ConfirmationID)
	if !ok {
		return resp, nil
	}
	return resp, p.callbacksForFacility(facility)
}

func (p *Processor) handleRegisterMonitor(req protocol.Request, from *net.UDPAddr) (protocol.Response, []Callback) {
	rm, err := protocol.DecodeRegisterMonitorRequest(req.Payload)
	if err != nil {
		return errorResponse(req.RequestID, protocol.ErrInvalid, err.Error()), nil
	}
	if _, err := p.Engine.Query(rm.Name, nil); err != nil {
		return engineErrorResponse(req.RequestID, err), nil
	}
	p.Monitors.Register(rm.Name, from, rm.IntervalSeconds)
	return protocol.Response{RequestID: req.RequestID, Code: protocol.OK}, nil
}

func (p *Processor) handleOpA(req protocol.Request) (protocol.Response, []Callback) {
	if _, err := protocol.DecodeOptionalName(req.Payload); err != nil {
		return errorResponse(req.RequestID, protocol.ErrInvalid, err.Error()), nil
	}
	// OP_A is idempotent and mutates nothing: decode for validation
	// only, then acknowledge.
	return protocol.Response{RequestID: req.RequestID, Code: protocol.OK}, nil
}

func (p *Processor) handleOpB(req protocol.Request) (protocol.Response, []Callback) {
	name, err := protocol.DecodeOptionalName(req.Payload)
	if err != nil {
		return errorResponse(req.RequestID, protocol.ErrInvalid, err.Error()), nil
	}
	if name == "" {
		facs := p.Engine.ListFacilities()
		if len(facs) == 0 {
			return errorResponse(req.RequestID, protocol.ErrNotFound, "no facility available for OP_B"), nil
		}
		name = facs[0]
	}
	id, err := p.Engine.BookEarliestFree(name, opBDuration)
	if err != nil {
		return engineErrorResponse(req.RequestID, err), nil
	}
	resp := protocol.Response{RequestID: req.RequestID, Code: protocol.OK, Payload: protocol.EncodeConfirmationID(id)}
	return resp, p.callbacksForFacility(name)
}

// callbacksForFacility builds one callback payload for a facility's
// current booking set (its watcher snapshot frozen at this moment)
// and fans it out to every current watcher. It short-circuits when
// there is no watcher, so a facility nobody monitors never pays for a
// payload build — and never triggers a lookup race between an empty
// watcher snapshot and one materialized moments later by a second,
// overlapping callback construction.
func (p *Processor) callbacksForFacility(name string) []Callback {
	watchers := p.Monitors.WatchersFor(name)
	if len(watchers) == 0 {
		return nil
	}
	bookings, err := p.Engine.AllBookingsMinuteOfWeek(name)
	if err != nil {
		return nil
	}
	payload, err := protocol.EncodeMonitorCallback(protocol.MonitorCallback{FacilityName: name, Bookings: bookings})
	if err != nil {
		return nil
	}
	callbacks := make([]Callback, len(watchers))
	for i, addr := range watchers {
		callbacks[i] = Callback{Target: addr, Payload: payload}
	}
	return callbacks
}

func errorResponse(requestID uint32, code uint8, msg string) protocol.Response {
	return protocol.Response{RequestID: requestID, Code: code, Payload: []byte(msg)}
}

// engineErrorResponse maps a booking.Error to its wire response code
// per spec.md §7's taxonomy; any other error type is treated as internal.
func engineErrorResponse(requestID uint32, err error) protocol.Response {
	be, ok := err.(*booking.Error)
	if !ok {
		return errorResponse(requestID, protocol.ErrInternal, err.Error())
	}
	switch be.Code {
	case booking.NotFound:
		return errorResponse(requestID, protocol.ErrNotFound, be.Msg)
	case booking.Conflict:
		return errorResponse(requestID, protocol.ErrConflict, be.Msg)
	case booking.InvalidArgument:
		return errorResponse(requestID, protocol.ErrInvalid, be.Msg)
	default:
		return errorResponse(requestID, protocol.ErrInternal, be.Msg)
	}
}
