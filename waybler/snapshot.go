package waybler

import (
	"sync"
	"time"
)

// Snapshot holds the latest ChargeZone pushed by the feed for every zone id.
// The feed listener is the only writer.
type Snapshot struct {
	mu    sync.RWMutex
	zones map[int]ChargeZone
	order []int
}

func NewSnapshot() *Snapshot {
	return &Snapshot{zones: map[int]ChargeZone{}}
}

// Put replaces the zone wholesale. Zones keep the position in which they were first seen.
func (s *Snapshot) Put(zone ChargeZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zone.ZoneID]; !ok {
		s.order = append(s.order, zone.ZoneID)
	}
	s.zones[zone.ZoneID] = zone
}

// Zones returns a copy of the known zones in first-seen order.
func (s *Snapshot) Zones() []ChargeZone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zones := make([]ChargeZone, 0, len(s.order))
	for _, id := range s.order {
		zones = append(zones, s.zones[id])
	}
	return zones
}

func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.zones)
}

// IsVehicleConnected reports whether any station has a vehicle plugged in, charging or not.
func (s *Snapshot) IsVehicleConnected() bool {
	return s.anyStation(func(st Station) bool {
		return st.State == StationStateEvConnected || st.State == StationStateBusy
	})
}

func (s *Snapshot) IsCharging() bool {
	return s.anyStation(func(st Station) bool {
		return st.State == StationStateBusy
	})
}

// LowestPrice returns the entry with the smallest VAT-inclusive total in [now, now+window],
// or nil when no entry falls inside the window.
func (s *Snapshot) LowestPrice(now time.Time, window time.Duration) *PriceListEntry {
	cutoff := now.Add(window)

	var lowest *PriceListEntry
	for _, zone := range s.Zones() {
		for i := range zone.PriceList {
			entry := zone.PriceList[i]
			if entry.At.Before(now) || entry.At.After(cutoff) {
				continue
			}
			if lowest == nil || entry.ConsumptionFee.Total < lowest.ConsumptionFee.Total {
				lowest = &entry
			}
		}
	}
	return lowest
}

// FirstConnectedStation finds the first station waiting with a plugged-in vehicle
// together with the zone it belongs to.
func (s *Snapshot) FirstConnectedStation() (*Station, *ChargeZone) {
	for _, zone := range s.Zones() {
		for _, group := range zone.StationGroups {
			for _, st := range group.Stations {
				if st.State == StationStateEvConnected {
					return &st, &zone
				}
			}
		}
	}
	return nil, nil
}

func (s *Snapshot) anyStation(match func(Station) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, zone := range s.zones {
		for _, group := range zone.StationGroups {
			for _, st := range group.Stations {
				if match(st) {
					return true
				}
			}
		}
	}
	return false
}
