// Package monitor implements the time-bounded subscription registry:
// facility -> set of client endpoints with expiry, consulted and
// lazily swept on every callback fan-out. Grounded on
// server/monitor.go's MonitorRegistration/notifySubscribers in the
// teacher repo and RequestProcessor.java's nested MonitorRegistry in
// original_source.
package monitor

import (
	"net"
	"sync"
	"time"
)

// Subscription is a single (facility, endpoint, expiry) registration.
type Subscription struct {
	FacilityName string
	Addr         *net.UDPAddr
	Expiry       time.Time
}

// Registry holds all active subscriptions, keyed by facility name.
// Expired entries are never returned to callers and are dropped the
// next time their facility is touched (lazy cleanup, per spec.md §9 —
// no background timer is needed because both this registry and the
// duplicate-request cache are consulted on every relevant event).
type Registry struct {
	mu   sync.Mutex
	subs map[string][]Subscription
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string][]Subscription)}
}

// Register appends a subscription with expiry = now + intervalSeconds.
// Multiple subscriptions from the same endpoint are permitted.
func (r *Registry) Register(facilityName string, addr *net.UDPAddr, intervalSeconds uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry := time.Now().Add(time.Duration(intervalSeconds) * time.Second)
	r.subs[facilityName] = append(r.subs[facilityName], Subscription{
		FacilityName: facilityName,
		Addr:         addr,
		Expiry:       expiry,
	})
}

// WatchersFor returns the non-expired subscriber addresses for a
// facility, sweeping expired entries for that facility as a side
// effect.
func (r *Registry) WatchersFor(facilityName string) []*net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	live := r.subs[facilityName][:0:0]
	for _, s := range r.subs[facilityName] {
		if s.Expiry.After(now) {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		delete(r.subs, facilityName)
		return nil
	}
	r.subs[facilityName] = live
	addrs := make([]*net.UDPAddr, len(live))
	for i, s := range live {
		addrs[i] = s.Addr
	}
	return addrs
}

// AllMonitoredFacilities returns the set of facility names with at
// least one non-expired subscription.
func (r *Registry) AllMonitoredFacilities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	names := make([]string, 0, len(r.subs))
	for name, subs := range r.subs {
		for _, s := range subs {
			if s.Expiry.After(now) {
				names = append(names, name)
				break
			}
		}
	}
	return names
}

// Sweep removes every expired subscription across all facilities.
// Called periodically by the server loop; not required for
// correctness since WatchersFor already sweeps lazily, but it keeps
// AllMonitoredFacilities and memory usage from drifting between
// touches of an idle facility.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for name, subs := range r.subs {
		live := subs[:0:0]
		for _, s := range subs {
			if s.Expiry.After(now) {
				live = append(live, s)
			}
		}
		if len(live) == 0 {
			delete(r.subs, name)
		} else {
			r.subs[name] = live
		}
	}
}
