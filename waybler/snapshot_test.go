package waybler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 17, 17, 0, 0, 0, time.UTC)

func price(at time.Time, value, total float64) PriceListEntry {
	return PriceListEntry{
		At: at,
		ConsumptionFee: ConsumptionFee{
			Currency: "SEK",
			Vat:      25,
			Value:    value,
			Total:    total,
		},
	}
}

func zoneWithStates(id int, states ...StationState) ChargeZone {
	var stations []Station
	for i, s := range states {
		stations = append(stations, Station{StationID: id*100 + i, Name: "station", State: s})
	}
	return ChargeZone{
		ZoneID:         id,
		ContractUserID: id * 10,
		StationGroups:  []StationGroup{{Name: "group", Stations: stations}},
	}
}

func TestSnapshot_IsVehicleConnected(t *testing.T) {
	tests := []struct {
		name     string
		zones    []ChargeZone
		expected bool
	}{
		{name: "empty snapshot", expected: false},
		{name: "idle and unknown", zones: []ChargeZone{zoneWithStates(1, StationStateOk, StationStateUnknown)}, expected: false},
		{name: "ev connected", zones: []ChargeZone{zoneWithStates(1, StationStateOk, StationStateEvConnected)}, expected: true},
		{name: "busy counts as connected", zones: []ChargeZone{zoneWithStates(1, StationStateBusy)}, expected: true},
		{name: "second zone", zones: []ChargeZone{zoneWithStates(1, StationStateOk), zoneWithStates(2, StationStateEvConnected)}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot()
			for _, z := range tt.zones {
				s.Put(z)
			}
			assert.Equal(t, tt.expected, s.IsVehicleConnected())
		})
	}
}

func TestSnapshot_IsCharging(t *testing.T) {
	s := NewSnapshot()
	assert.False(t, s.IsCharging())

	s.Put(zoneWithStates(1, StationStateEvConnected, StationStateOk))
	assert.False(t, s.IsCharging())

	s.Put(zoneWithStates(2, StationStateBusy))
	assert.True(t, s.IsCharging())
}

func TestSnapshot_PutReplacesZone(t *testing.T) {
	s := NewSnapshot()
	s.Put(zoneWithStates(1, StationStateBusy))
	s.Put(zoneWithStates(2, StationStateOk))
	s.Put(zoneWithStates(1, StationStateOk))

	assert.Equal(t, 2, s.Len())
	assert.False(t, s.IsCharging())

	zones := s.Zones()
	require.Len(t, zones, 2)
	assert.Equal(t, 1, zones[0].ZoneID)
	assert.Equal(t, 2, zones[1].ZoneID)
}

func TestSnapshot_LowestPrice(t *testing.T) {
	s := NewSnapshot()
	zone := zoneWithStates(1, StationStateEvConnected)
	zone.PriceList = []PriceListEntry{
		price(testNow.Add(1*time.Hour), 1.6, 2.0),
		price(testNow.Add(5*time.Hour), 0.96, 1.2),
		price(testNow.Add(20*time.Hour), 0.4, 0.5),
	}
	s.Put(zone)

	lowest := s.LowestPrice(testNow, 14*time.Hour)
	require.NotNil(t, lowest)
	assert.Equal(t, 1.2, lowest.ConsumptionFee.Total)
	assert.Equal(t, 0.96, lowest.ConsumptionFee.Value)
	assert.Equal(t, testNow.Add(5*time.Hour), lowest.At)

	lowest = s.LowestPrice(testNow, 24*time.Hour)
	require.NotNil(t, lowest)
	assert.Equal(t, 0.5, lowest.ConsumptionFee.Total)
}

func TestSnapshot_LowestPriceWindowBounds(t *testing.T) {
	s := NewSnapshot()
	zone := zoneWithStates(1)
	zone.PriceList = []PriceListEntry{
		price(testNow.Add(-time.Minute), 0.1, 0.1),
		price(testNow, 0.9, 1.1),
		price(testNow.Add(2*time.Hour), 0.7, 0.9),
		price(testNow.Add(2*time.Hour+time.Second), 0.2, 0.3),
	}
	s.Put(zone)

	lowest := s.LowestPrice(testNow, 2*time.Hour)
	require.NotNil(t, lowest)
	assert.Equal(t, 0.9, lowest.ConsumptionFee.Total, "entries before now and after the cutoff are excluded")

	lowest = s.LowestPrice(testNow, time.Minute)
	require.NotNil(t, lowest)
	assert.Equal(t, testNow, lowest.At, "now is inclusive")
}

func TestSnapshot_LowestPriceEmpty(t *testing.T) {
	s := NewSnapshot()
	assert.Nil(t, s.LowestPrice(testNow, 14*time.Hour))

	zone := zoneWithStates(1)
	zone.PriceList = []PriceListEntry{price(testNow.Add(20*time.Hour), 0.4, 0.5)}
	s.Put(zone)
	assert.Nil(t, s.LowestPrice(testNow, 14*time.Hour))
}

func TestSnapshot_LowestPriceTieKeepsFirst(t *testing.T) {
	s := NewSnapshot()
	first := zoneWithStates(1)
	first.PriceList = []PriceListEntry{price(testNow.Add(3*time.Hour), 0.8, 1.0)}
	second := zoneWithStates(2)
	second.PriceList = []PriceListEntry{price(testNow.Add(1*time.Hour), 0.8, 1.0)}
	s.Put(first)
	s.Put(second)

	lowest := s.LowestPrice(testNow, 14*time.Hour)
	require.NotNil(t, lowest)
	assert.Equal(t, testNow.Add(3*time.Hour), lowest.At)
}

func TestSnapshot_FirstConnectedStation(t *testing.T) {
	s := NewSnapshot()
	station, zone := s.FirstConnectedStation()
	assert.Nil(t, station)
	assert.Nil(t, zone)

	s.Put(zoneWithStates(1, StationStateBusy, StationStateOk))
	s.Put(zoneWithStates(2, StationStateOk, StationStateEvConnected, StationStateEvConnected))

	station, zone = s.FirstConnectedStation()
	require.NotNil(t, station)
	require.NotNil(t, zone)
	assert.Equal(t, 201, station.StationID)
	assert.Equal(t, 20, zone.ContractUserID)
}
