// File: model/oracle.go
package model

import "time"

// Oracle is a registered status reporter and its assigned topics.
type Oracle struct {
	ObjectType   string    `json:"objectType"` // "Oracle"
	ID           string    `json:"id"`
	Topics       []int     `json:"topics"`
	Fee          string    `json:"fee"` // Decimal fee paid on the latest registration
	RegisteredAt time.Time `json:"registeredAt"`
}

// HasTopic reports whether topic is one of the oracle's assigned topics.
func (o *Oracle) HasTopic(topic int) bool {
	for _, t := range o.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// OracleRequest collects responses for one (topic, flight) status fetch.
type OracleRequest struct {
	ObjectType  string              `json:"objectType"` // "OracleRequest"
	RequestID   string              `json:"requestId"`
	Topic       int                 `json:"topic"`
	Designator  string              `json:"designator"`
	ScheduledAt int64               `json:"scheduledAt"`
	Requester   string              `json:"requester"`
	Open        bool                `json:"open"`
	Responses   map[string][]string `json:"responses"` // Status code (decimal string) -> reporters
	FinalStatus FlightStatus        `json:"finalStatus"`
	OpenedAt    time.Time           `json:"openedAt"`
	ClosedAt    time.Time           `json:"closedAt"`
}

// HasResponseFrom reports whether reporter already answered this request.
func (r *OracleRequest) HasResponseFrom(reporter string) bool {
	for _, reporters := range r.Responses {
		for _, id := range reporters {
			if id == reporter {
				return true
			}
		}
	}
	return false
}
