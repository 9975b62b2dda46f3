// Package booking implements the in-memory facility and booking store:
// conflict detection, shift-based modification, and day-clipped
// queries over the week-minute time domain. It is grounded on
// server/state.go's facilityData/bookings split in the teacher repo
// and on BookingManager.java's facilities/bookingsById split in
// original_source, generalized to the richer operation set spec.md
// requires (CHANGE-by-offset rather than absolute retime, day-clipped
// multi-day QUERY, and a booking -> facility reverse lookup).
package booking

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Booking is a half-open interval [Start, End) in the week-minute
// domain bound to a facility.
type Booking struct {
	ConfirmationID uint32
	FacilityName   string
	Start          int
	End            int
}

// Facility is a named slot container. Facilities are created on
// demand or pre-seeded and are never destroyed.
type Facility struct {
	Name     string
	Bookings []*Booking
}

// Engine is the booking store. A single mutex enforces the
// reader/writer discipline spec.md §9 calls for across the three
// views (facilities by name, bookings by id, and each facility's
// booking set) so they never mutate independently of one another.
type Engine struct {
	mu           sync.RWMutex
	facilities   map[string]*Facility
	bookingsByID map[uint32]*Booking
	nextID       uint32
}

// NewEngine constructs an engine pre-seeded with the bootstrap
// facilities spec.md §3 names.
func NewEngine() *Engine {
	e := &Engine{
		facilities:   make(map[string]*Facility),
		bookingsByID: make(map[uint32]*Booking),
	}
	e.EnsureFacility("RoomA")
	e.EnsureFacility("RoomB")
	return e
}

// EnsureFacility idempotently adds an empty facility if absent.
func (e *Engine) EnsureFacility(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.facilities[name]; !ok {
		e.facilities[name] = &Facility{Name: name}
	}
}

// ListFacilities returns all known facility names, in no particular order.
func (e *Engine) ListFacilities() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.facilities))
	for name := range e.facilities {
		names = append(names, name)
	}
	return names
}

// allocID hands out the next monotonically increasing confirmation
// id. Held under e.mu by callers; atomic so it stays safe if a future
// caller reads it without the lock.
func (e *Engine) allocID() uint32 {
	return atomic.AddUint32(&e.nextID, 1)
}

// Book creates a new booking on the named facility if the interval is
// valid and does not overlap any existing booking on that facility.
func (e *Engine) Book(name string, sDay, sHour, sMin, eDay, eHour, eMin uint8) (uint32, error) {
	start, err := toMinuteOfWeek(sDay, sHour, sMin)
	if err != nil {
		return 0, err
	}
	end, err := toMinuteOfWeek(eDay, eHour, eMin)
	if err != nil {
		return 0, err
	}
	if end <= start {
		return 0, invalidf("end time must be after start time")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.facilities[name]
	if !ok {
		return 0, notFoundf("facility not found: %s", name)
	}
	for _, b := range f.Bookings {
		if overlap(start, end, b.Start, b.End) {
			return 0, conflictf("interval conflicts with booking %d", b.ConfirmationID)
		}
	}
	id := e.allocID()
	nb := &Booking{ConfirmationID: id, FacilityName: name, Start: start, End: end}
	f.Bookings = append(f.Bookings, nb)
	e.bookingsByID[id] = nb
	return id, nil
}

// Change shifts both endpoints of an existing booking by offsetMinutes
// (any sign). It fails with Conflict if the shifted interval overlaps
// any other booking on the same facility, and with InvalidArgument if
// the shifted interval falls outside [0, MinutesPerWeek] or is empty.
// The booking never conflicts with itself.
func (e *Engine) Change(confirmationID uint32, offsetMinutes int32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bookingsByID[confirmationID]
	if !ok {
		return notFoundf("confirmation id not found: %d", confirmationID)
	}
	newStart := b.Start + int(offsetMinutes)
	newEnd := b.End + int(offsetMinutes)
	if newStart < 0 || newEnd > MinutesPerWeek || newEnd <= newStart {
		return invalidf("shift results in invalid time range")
	}

	f := e.facilities[b.FacilityName]
	for _, other := range f.Bookings {
		if other.ConfirmationID == confirmationID {
			continue
		}
		if overlap(newStart, newEnd, other.Start, other.End) {
			return conflictf("shifted interval conflicts with booking %d", other.ConfirmationID)
		}
	}

	b.Start = newStart
	b.End = newEnd
	return nil
}

// FacilityForBooking returns the facility name a confirmation id
// belongs to. This reverse lookup is what lets the dispatcher narrow
// CHANGE monitor notification to the one affected facility instead of
// broadcasting to every monitored facility.
func (e *Engine) FacilityForBooking(confirmationID uint32) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bookingsByID[confirmationID]
	if !ok {
		return "", false
	}
	return b.FacilityName, true
}

// Query returns, for each requested day (all seven when days is
// empty), the facility's bookings clipped to that day's 1440-minute
// window, sorted ascending by start. A booking spanning midnight
// contributes one clipped interval to each day it touches.
func (e *Engine) Query(name string, days []uint8) (map[uint8][][2]int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	f, ok := e.facilities[name]
	if !ok {
		return nil, notFoundf("facility not found: %s", name)
	}
	if len(days) == 0 {
		days = []uint8{0, 1, 2, 3, 4, 5, 6}
	}

	result := make(map[uint8][][2]int, len(days))
	for _, d := range days {
		result[d] = nil
	}
	for _, b := range f.Bookings {
		for _, d := range days {
			dayStart := int(d) * minutesPerDay
			dayEnd := dayStart + minutesPerDay
			clipStart := max(b.Start, dayStart)
			clipEnd := min(b.End, dayEnd)
			if clipStart < clipEnd {
				result[d] = append(result[d], [2]int{clipStart - dayStart, clipEnd - dayStart})
			}
		}
	}
	for d, intervals := range result {
		sort.Slice(intervals, func(i, j int) bool { return intervals[i][0] < intervals[j][0] })
		result[d] = intervals
	}
	return result, nil
}

// AllBookingsMinuteOfWeek returns every current booking of a facility
// as minute-of-week intervals, used to build monitor callback payloads.
func (e *Engine) AllBookingsMinuteOfWeek(name string) ([][2]int32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.facilities[name]
	if !ok {
		return nil, notFoundf("facility not found: %s", name)
	}
	out := make([][2]int32, 0, len(f.Bookings))
	for _, b := range f.Bookings {
		out = append(out, [2]int32{int32(b.Start), int32(b.End)})
	}
	return out, nil
}

// BookEarliestFree finds the earliest free minute-of-week t such that
// [t, t+durationMinutes) does not overlap any existing booking on the
// named facility and atomically books it, returning the new
// confirmation id. It fails with Conflict ("no free slot") if the
// entire week is occupied. Finding the slot and creating the booking
// happen under a single write lock so two concurrent callers can
// never race for the same slot.
func (e *Engine) BookEarliestFree(name string, durationMinutes int) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.facilities[name]
	if !ok {
		return 0, notFoundf("facility not found: %s", name)
	}
	intervals := make([][2]int, len(f.Bookings))
	for i, b := range f.Bookings {
		intervals[i] = [2]int{b.Start, b.End}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i][0] < intervals[j][0] })

	maxStart := MinutesPerWeek - durationMinutes
	start := -1
	for candidate := 0; candidate <= maxStart; candidate++ {
		end := candidate + durationMinutes
		free := true
		for _, iv := range intervals {
			if overlap(candidate, end, iv[0], iv[1]) {
				free = false
				candidate = iv[1] - 1 // skip past this booking; loop increment restores it to iv[1]
				break
			}
		}
		if free {
			start = candidate
			break
		}
	}
	if start == -1 {
		return 0, conflictf("no free slot")
	}

	id := e.allocID()
	nb := &Booking{ConfirmationID: id, FacilityName: name, Start: start, End: start + durationMinutes}
	f.Bookings = append(f.Bookings, nb)
	e.bookingsByID[id] = nb
	return id, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
