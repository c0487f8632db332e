// File: model/ledger.go
package model

import "time"

// Parameters are the genesis constants persisted by InitLedger.
type Parameters struct {
	AdmitDirectThreshold int    `json:"admitDirectThreshold"` // Airlines admitted without voting below this count
	VoteNumerator        int    `json:"voteNumerator"`        // Fraction of registered airlines whose votes admit a candidate
	VoteDenominator      int    `json:"voteDenominator"`
	MinFunding           string `json:"minFunding"`       // Decimal stake required to participate
	PremiumCap           string `json:"premiumCap"`       // Decimal cap per policy
	PayoutMultiplier     string `json:"payoutMultiplier"` // Decimal credit factor on delay
	RegistrationFee      string `json:"registrationFee"`  // Decimal oracle fee
	Quorum               int    `json:"quorum"`           // Concordant responses that finalize a request
	TopicSpace           int    `json:"topicSpace"`       // Topics are drawn from [0, TopicSpace)
	TopicsPerOracle      int    `json:"topicsPerOracle"`
}

// OperatingState is the pause switch.
type OperatingState struct {
	Operational   bool      `json:"operational"`
	ChangedBy     string    `json:"changedBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Wallet is an on-ledger token balance.
type Wallet struct {
	ObjectType    string    `json:"objectType"` // "Wallet"
	Owner         string    `json:"owner"`
	Balance       string    `json:"balance"` // Decimal
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Event is one entry of the append-only event log.
type Event struct {
	ObjectType string            `json:"objectType"` // "Event"
	ID         string            `json:"id"`
	TxID       string            `json:"txId"`
	Index      int               `json:"index"`
	Name       string            `json:"name"`
	Payload    map[string]string `json:"payload"`
	Timestamp  time.Time         `json:"timestamp"`
}
