// File: model/insurance.go
package model

import "time"

// Policy is a passenger's insurance on one flight.
type Policy struct {
	ObjectType    string    `json:"objectType"` // "Policy"
	Passenger     string    `json:"passenger"`
	Designator    string    `json:"designator"`
	ScheduledAt   int64     `json:"scheduledAt"`
	Premium       string    `json:"premium"`    // Decimal, capped by Parameters.PremiumCap
	CreditOwed    string    `json:"creditOwed"` // Decimal, set once when the flight is late
	PaidOut       bool      `json:"paidOut"`
	PurchasedAt   time.Time `json:"purchasedAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}
