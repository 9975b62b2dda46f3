package protocol

import (
	"encoding/binary"
	"fmt"
)

// QueryRequest is the decoded payload of a QUERY request:
// string name | u8 day_count | u8[day_count].
type QueryRequest struct {
	Name string
	Days []uint8
}

func EncodeQueryRequest(q QueryRequest) ([]byte, error) {
	buf, err := writeString(nil, q.Name)
	if err != nil {
		return nil, err
	}
	if len(q.Days) > 0xFF {
		return nil, fmt.Errorf("too many days: %d (max 255)", len(q.Days))
	}
	buf = append(buf, byte(len(q.Days)))
	buf = append(buf, q.Days...)
	return buf, nil
}

func DecodeQueryRequest(payload []byte) (QueryRequest, error) {
	name, off, err := readString(payload, 0)
	if err != nil {
		return QueryRequest{}, err
	}
	if off >= len(payload) {
		return QueryRequest{}, fmt.Errorf("missing day_count")
	}
	dayCount := int(payload[off])
	off++
	if off+dayCount != len(payload) {
		return QueryRequest{}, fmt.Errorf("day_count %d inconsistent with payload length", dayCount)
	}
	days := make([]uint8, dayCount)
	copy(days, payload[off:])
	for _, d := range days {
		if d > 6 {
			return QueryRequest{}, fmt.Errorf("day index out of range: %d", d)
		}
	}
	return QueryRequest{Name: name, Days: days}, nil
}

// DayIntervals is one day's worth of clipped, ascending-by-start
// booking intervals, expressed in minute-of-day (0..1440).
type DayIntervals struct {
	Day       uint8
	Intervals [][2]uint16
}

// EncodeQueryResponse builds a QUERY OK payload:
// u16 day_count, then per day: u8 day_index | u16 interval_count |
// interval_count * (u16 start_of_day_min, u16 end_of_day_min).
func EncodeQueryResponse(days []DayIntervals) []byte {
	buf := make([]byte, 2, 2+len(days)*3)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(days)))
	for _, d := range days {
		buf = append(buf, d.Day)
		ic := make([]byte, 2)
		binary.BigEndian.PutUint16(ic, uint16(len(d.Intervals)))
		buf = append(buf, ic...)
		for _, iv := range d.Intervals {
			pair := make([]byte, 4)
			binary.BigEndian.PutUint16(pair[0:2], iv[0])
			binary.BigEndian.PutUint16(pair[2:4], iv[1])
			buf = append(buf, pair...)
		}
	}
	return buf
}

func DecodeQueryResponse(payload []byte) ([]DayIntervals, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("query response too short")
	}
	off := 0
	dayCount := int(binary.BigEndian.Uint16(payload[off : off+2]))
	off += 2
	days := make([]DayIntervals, 0, dayCount)
	for i := 0; i < dayCount; i++ {
		if off+3 > len(payload) {
			return nil, fmt.Errorf("truncated query response at day %d", i)
		}
		day := payload[off]
		off++
		intervalCount := int(binary.BigEndian.Uint16(payload[off : off+2]))
		off += 2
		intervals := make([][2]uint16, intervalCount)
		for j := 0; j < intervalCount; j++ {
			if off+4 > len(payload) {
				return nil, fmt.Errorf("truncated query response at day %d interval %d", i, j)
			}
			intervals[j][0] = binary.BigEndian.Uint16(payload[off : off+2])
			intervals[j][1] = binary.BigEndian.Uint16(payload[off+2 : off+4])
			off += 4
		}
		days = append(days, DayIntervals{Day: day, Intervals: intervals})
	}
	return days, nil
}

// BookRequest is the decoded payload of a BOOK request:
// string name | u8 sDay sHour sMin eDay eHour eMin.
type BookRequest struct {
	Name                              string
	StartDay, StartHour, StartMinute  uint8
	EndDay, EndHour, EndMinute        uint8
}

func EncodeBookRequest(b BookRequest) ([]byte, error) {
	buf, err := writeString(nil, b.Name)
	if err != nil {
		return nil, err
	}
	buf = append(buf, b.StartDay, b.StartHour, b.StartMinute, b.EndDay, b.EndHour, b.EndMinute)
	return buf, nil
}

func DecodeBookRequest(payload []byte) (BookRequest, error) {
	name, off, err := readString(payload, 0)
	if err != nil {
		return BookRequest{}, err
	}
	if off+6 != len(payload) {
		return BookRequest{}, fmt.Errorf("book payload has wrong length after name")
	}
	return BookRequest{
		Name:        name,
		StartDay:    payload[off],
		StartHour:   payload[off+1],
		StartMinute: payload[off+2],
		EndDay:      payload[off+3],
		EndHour:     payload[off+4],
		EndMinute:   payload[off+5],
	}, nil
}

// EncodeConfirmationID builds the 4-byte confirmation-id payload
// shared by BOOK and OP_B success replies.
func EncodeConfirmationID(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

func DecodeConfirmationID(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("confirmation id payload must be 4 bytes, got %d", len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

// ChangeRequest is the decoded payload of a CHANGE request:
// u32 confirmation_id | i32 offset_minutes (sign-extended).
type ChangeRequest struct {
	ConfirmationID uint32
	OffsetMinutes  int32
}

func EncodeChangeRequest(c ChangeRequest) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], c.ConfirmationID)
	binary.BigEndian.PutUint32(buf[4:8], uint32(c.OffsetMinutes))
	return buf
}

func DecodeChangeRequest(payload []byte) (ChangeRequest, error) {
	if len(payload) != 8 {
		return ChangeRequest{}, fmt.Errorf("change payload must be 8 bytes, got %d", len(payload))
	}
	id := binary.BigEndian.Uint32(payload[0:4])
	offset := int32(binary.BigEndian.Uint32(payload[4:8]))
	return ChangeRequest{ConfirmationID: id, OffsetMinutes: offset}, nil
}

// RegisterMonitorRequest is the decoded payload of a REGISTER_MONITOR
// request: string name | u32 interval_seconds.
type RegisterMonitorRequest struct {
	Name            string
	IntervalSeconds uint32
}

func EncodeRegisterMonitorRequest(r RegisterMonitorRequest) ([]byte, error) {
	buf, err := writeString(nil, r.Name)
	if err != nil {
		return nil, err
	}
	tail := make([]byte, 4)
	binary.BigEndian.PutUint32(tail, r.IntervalSeconds)
	buf = append(buf, tail...)
	return buf, nil
}

func DecodeRegisterMonitorRequest(payload []byte) (RegisterMonitorRequest, error) {
	name, off, err := readString(payload, 0)
	if err != nil {
		return RegisterMonitorRequest{}, err
	}
	if off+4 != len(payload) {
		return RegisterMonitorRequest{}, fmt.Errorf("register_monitor payload has wrong length after name")
	}
	interval := binary.BigEndian.Uint32(payload[off : off+4])
	return RegisterMonitorRequest{Name: name, IntervalSeconds: interval}, nil
}

// DecodeOptionalName decodes the optional-string-name payload shared
// by OP_A and OP_B: either an empty payload (no name) or exactly one
// length-prefixed string consuming the whole payload.
func DecodeOptionalName(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	name, off, err := readString(payload, 0)
	if err != nil {
		return "", err
	}
	if off != len(payload) {
		return "", fmt.Errorf("trailing bytes after optional name")
	}
	return name, nil
}

// EncodeOptionalName builds the optional-string-name payload for an
// OP_A/OP_B request.
func EncodeOptionalName(name string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}
	return writeString(nil, name)
}

// MonitorCallback is the decoded raw monitor-callback datagram
// payload (not wrapped in a response frame):
// string facility_name | u16 booking_count |
// booking_count * (i32 start_min_of_week, i32 end_min_of_week).
type MonitorCallback struct {
	FacilityName string
	Bookings     [][2]int32
}

func EncodeMonitorCallback(cb MonitorCallback) ([]byte, error) {
	buf, err := writeString(nil, cb.FacilityName)
	if err != nil {
		return nil, err
	}
	countBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(countBuf, uint16(len(cb.Bookings)))
	buf = append(buf, countBuf...)
	for _, iv := range cb.Bookings {
		pair := make([]byte, 8)
		binary.BigEndian.PutUint32(pair[0:4], uint32(iv[0]))
		binary.BigEndian.PutUint32(pair[4:8], uint32(iv[1]))
		buf = append(buf, pair...)
	}
	return buf, nil
}

func DecodeMonitorCallback(data []byte) (MonitorCallback, error) {
	name, off, err := readString(data, 0)
	if err != nil {
		return MonitorCallback{}, err
	}
	if off+2 > len(data) {
		return MonitorCallback{}, fmt.Errorf("missing booking_count")
	}
	count := int(binary.BigEndian.Uint16(data[off : off+2]))
	off += 2
	bookings := make([][2]int32, count)
	for i := 0; i < count; i++ {
		if off+8 > len(data) {
			return MonitorCallback{}, fmt.Errorf("truncated monitor callback at booking %d", i)
		}
		start := int32(binary.BigEndian.Uint32(data[off : off+4]))
		end := int32(binary.BigEndian.Uint32(data[off+4 : off+8]))
		bookings[i] = [2]int32{start, end}
		off += 8
	}
	if off != len(data) {
		return MonitorCallback{}, fmt.Errorf("trailing bytes after monitor callback")
	}
	return MonitorCallback{FacilityName: name, Bookings: bookings}, nil
}
