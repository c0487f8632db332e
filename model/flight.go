// File: model/flight.go
package model

import (
	"fmt"
	"time"
)

// FlightStatus is the status code reported by oracles for a flight.
type FlightStatus int

const (
	StatusUnknown       FlightStatus = 0
	StatusOnTime        FlightStatus = 10
	StatusLateAirline   FlightStatus = 20
	StatusLateWeather   FlightStatus = 30
	StatusLateTechnical FlightStatus = 40
	StatusLateOther     FlightStatus = 50
)

// Valid reports whether s is one of the known status codes.
func (s FlightStatus) Valid() bool {
	switch s {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	}
	return false
}

// IsLate is true for every Late* status.
func (s FlightStatus) IsLate() bool {
	return s >= StatusLateAirline && s <= StatusLateOther && s.Valid()
}

func (s FlightStatus) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusOnTime:
		return "ON_TIME"
	case StatusLateAirline:
		return "LATE_AIRLINE"
	case StatusLateWeather:
		return "LATE_WEATHER"
	case StatusLateTechnical:
		return "LATE_TECHNICAL"
	case StatusLateOther:
		return "LATE_OTHER"
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// FlightKey identifies a flight by designator and scheduled departure (unix seconds).
type FlightKey struct {
	Designator  string `json:"designator"`
	ScheduledAt int64  `json:"scheduledAt"`
}

func (k FlightKey) String() string {
	return fmt.Sprintf("%s@%d", k.Designator, k.ScheduledAt)
}

// Flight is a flight published by a funded airline.
type Flight struct {
	ObjectType    string       `json:"objectType"` // "Flight"
	Designator    string       `json:"designator"`
	ScheduledAt   int64        `json:"scheduledAt"`
	Airline       string       `json:"airline"` // Owning airline identity
	Status        FlightStatus `json:"status"`
	StatusTxID    string       `json:"statusTxId"` // Transaction that finalized the status
	CreatedAt     time.Time    `json:"createdAt"`
	LastUpdatedAt time.Time    `json:"lastUpdatedAt"`
}

// Key returns the flight's key.
func (f *Flight) Key() FlightKey {
	return FlightKey{Designator: f.Designator, ScheduledAt: f.ScheduledAt}
}

// PaginatedFlightResponse is one page of a flight listing.
type PaginatedFlightResponse struct {
	Flights      []Flight `json:"flights"`
	NextBookmark string   `json:"nextBookmark"`
	FetchedCount int32    `json:"fetchedCount"`
}
