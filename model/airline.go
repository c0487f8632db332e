// File: model/airline.go
package model

import "time"

// Airline stores admission and funding state for one airline identity.
type Airline struct {
	ObjectType    string    `json:"objectType"`    // Set to the composite key object type (Airline)
	ID            string    `json:"id"`            // Full X.509 identity of the airline
	Registered    bool      `json:"registered"`    // True once admitted
	Genesis       bool      `json:"genesis"`       // True for the airline seeded by InitLedger
	Votes         []string  `json:"votes"`         // Voters pending admission; empty once registered
	Funded        string    `json:"funded"`        // Decimal total deposited by the airline
	RegisteredBy  string    `json:"registeredBy"`  // Identity whose call completed the admission
	RegisteredAt  time.Time `json:"registeredAt"`  // Zero while pending
	LastUpdatedAt time.Time `json:"lastUpdatedAt"` // Timestamp of last update to this record
}

// HasVoteFrom reports whether voter already voted for this airline.
func (a *Airline) HasVoteFrom(voter string) bool {
	for _, v := range a.Votes {
		if v == voter {
			return true
		}
	}
	return false
}

// AirlineStats is the singleton counter of admitted airlines.
type AirlineStats struct {
	RegisteredCount int `json:"registeredCount"`
}
