package protocol

import "testing"

func TestQueryRequestRoundTrip(t *testing.T) {
	want := QueryRequest{Name: "RoomA", Days: []uint8{0, 2, 6}}
	payload, err := EncodeQueryRequest(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeQueryRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != want.Name || len(got.Days) != len(want.Days) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want.Days {
		if got.Days[i] != want.Days[i] {
			t.Fatalf("day %d: got %d want %d", i, got.Days[i], want.Days[i])
		}
	}
}

func TestQueryRequestRejectsOutOfRangeDay(t *testing.T) {
	_, err := DecodeQueryRequest(append(mustEncodeName(t, "RoomA"), 1, 7))
	if err == nil {
		t.Fatal("expected error for day index 7")
	}
}

func TestQueryResponseRoundTrip(t *testing.T) {
	want := []DayIntervals{
		{Day: 0, Intervals: [][2]uint16{{540, 660}}},
		{Day: 1, Intervals: nil},
	}
	payload := EncodeQueryResponse(want)
	got, err := DecodeQueryResponse(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d days, want %d", len(got), len(want))
	}
	if got[0].Day != 0 || len(got[0].Intervals) != 1 || got[0].Intervals[0] != [2]uint16{540, 660} {
		t.Fatalf("day 0 mismatch: %+v", got[0])
	}
}

func TestBookRequestRoundTrip(t *testing.T) {
	want := BookRequest{Name: "RoomB", StartDay: 0, StartHour: 9, StartMinute: 0, EndDay: 0, EndHour: 11, EndMinute: 0}
	payload, err := EncodeBookRequest(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeBookRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestConfirmationIDRoundTrip(t *testing.T) {
	payload := EncodeConfirmationID(12345)
	got, err := DecodeConfirmationID(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != 12345 {
		t.Fatalf("got %d want 12345", got)
	}
}

func TestChangeRequestRoundTripNegativeOffset(t *testing.T) {
	want := ChangeRequest{ConfirmationID: 7, OffsetMinutes: -90}
	payload := EncodeChangeRequest(want)
	got, err := DecodeChangeRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestRegisterMonitorRequestRoundTrip(t *testing.T) {
	want := RegisterMonitorRequest{Name: "RoomA", IntervalSeconds: 120}
	payload, err := EncodeRegisterMonitorRequest(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRegisterMonitorRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestOptionalNameEmptyAndPresent(t *testing.T) {
	empty, err := EncodeOptionalName("")
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	name, err := DecodeOptionalName(empty)
	if err != nil || name != "" {
		t.Fatalf("expected empty name, got %q err %v", name, err)
	}

	present, err := EncodeOptionalName("RoomA")
	if err != nil {
		t.Fatalf("encode present: %v", err)
	}
	name, err = DecodeOptionalName(present)
	if err != nil || name != "RoomA" {
		t.Fatalf("expected RoomA, got %q err %v", name, err)
	}
}

func TestMonitorCallbackRoundTrip(t *testing.T) {
	want := MonitorCallback{FacilityName: "RoomB", Bookings: [][2]int32{{840, 960}, {2280, 2400}}}
	payload, err := EncodeMonitorCallback(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMonitorCallback(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FacilityName != want.FacilityName || len(got.Bookings) != len(want.Bookings) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want.Bookings {
		if got.Bookings[i] != want.Bookings[i] {
			t.Fatalf("booking %d: got %v want %v", i, got.Bookings[i], want.Bookings[i])
		}
	}
}

func mustEncodeName(t *testing.T, name string) []byte {
	t.Helper()
	buf, err := writeString(nil, name)
	if err != nil {
		t.Fatalf("writeString: %v", err)
	}
	return buf
}
