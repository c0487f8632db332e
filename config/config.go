// Package config defines chaincode process configuration and the genesis
// parameters written to the ledger by InitLedger.
package config

import (
	"fmt"

	"flightsurety/model"

	"github.com/shopspring/decimal"
)

// Config contains process configuration.
type Config struct {
	// LogSpec is a flogging spec, e.g. "info" or "flightsurety.oracles=debug:info".
	LogSpec string `koanf:"log_spec"`

	// ChaincodeID is the package ID used when running as an external service.
	ChaincodeID string `koanf:"chaincode_id"`

	// ServerAddress switches the process to chaincode-as-a-service mode when set.
	ServerAddress string `koanf:"server_address"`

	// MetricsAddress serves /metrics when set. Only used in service mode.
	MetricsAddress string `koanf:"metrics_address"`

	// TLSDisabled disables TLS for the chaincode server.
	TLSDisabled bool `koanf:"tls_disabled"`

	// EntropySeed, when non-zero, draws oracle topics from a seeded PRNG
	// instead of the transaction hash. For single-peer development only.
	EntropySeed int64 `koanf:"entropy_seed"`

	Genesis Genesis `koanf:"genesis"`
}

// Genesis holds the defaults InitLedger persists as model.Parameters.
type Genesis struct {
	AdmitDirectThreshold int    `koanf:"admit_direct_threshold"`
	VoteNumerator        int    `koanf:"vote_numerator"`
	VoteDenominator      int    `koanf:"vote_denominator"`
	MinFunding           string `koanf:"min_funding"`
	PremiumCap           string `koanf:"premium_cap"`
	PayoutMultiplier     string `koanf:"payout_multiplier"`
	RegistrationFee      string `koanf:"registration_fee"`
	Quorum               int    `koanf:"quorum"`
	TopicSpace           int    `koanf:"topic_space"`
	TopicsPerOracle      int    `koanf:"topics_per_oracle"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogSpec:        "info",
		MetricsAddress: ":9443",
		TLSDisabled:    true,
		Genesis:        DefaultGenesis(),
	}
}

// DefaultGenesis returns the standard FlightSurety constants.
func DefaultGenesis() Genesis {
	return Genesis{
		AdmitDirectThreshold: 4,
		VoteNumerator:        1,
		VoteDenominator:      2,
		MinFunding:           "10",
		PremiumCap:           "1",
		PayoutMultiplier:     "1.5",
		RegistrationFee:      "1",
		Quorum:               3,
		TopicSpace:           10,
		TopicsPerOracle:      3,
	}
}

// Validate checks the genesis block is usable.
func (g Genesis) Validate() error {
	return ValidateParameters(g.Parameters())
}

// ValidateParameters checks a genesis parameter record. InitLedger runs it
// again on the parameters it is about to persist.
func ValidateParameters(p model.Parameters) error {
	if p.AdmitDirectThreshold < 1 {
		return fmt.Errorf("%w: admit_direct_threshold must be at least 1", ErrInvalidConfig)
	}
	if p.VoteNumerator < 1 || p.VoteDenominator < 1 || p.VoteNumerator > p.VoteDenominator {
		return fmt.Errorf("%w: vote fraction %d/%d must be in (0, 1]", ErrInvalidConfig, p.VoteNumerator, p.VoteDenominator)
	}
	if p.Quorum < 1 {
		return fmt.Errorf("%w: quorum must be at least 1", ErrInvalidConfig)
	}
	if p.TopicSpace < 1 || p.TopicsPerOracle < 1 {
		return fmt.Errorf("%w: topic_space and topics_per_oracle must be positive", ErrInvalidConfig)
	}
	if p.TopicsPerOracle > p.TopicSpace {
		return fmt.Errorf("%w: topics_per_oracle %d exceeds topic_space %d", ErrInvalidConfig, p.TopicsPerOracle, p.TopicSpace)
	}
	amounts := []struct{ field, raw string }{
		{"min_funding", p.MinFunding},
		{"premium_cap", p.PremiumCap},
		{"payout_multiplier", p.PayoutMultiplier},
		{"registration_fee", p.RegistrationFee},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(a.raw)
		if err != nil {
			return fmt.Errorf("%w: %s %q is not a decimal: %v", ErrInvalidConfig, a.field, a.raw, err)
		}
		if !d.IsPositive() {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, a.field)
		}
	}
	return nil
}

// Parameters converts the genesis block into its ledger record.
func (g Genesis) Parameters() model.Parameters {
	return model.Parameters{
		AdmitDirectThreshold: g.AdmitDirectThreshold,
		VoteNumerator:        g.VoteNumerator,
		VoteDenominator:      g.VoteDenominator,
		MinFunding:           g.MinFunding,
		PremiumCap:           g.PremiumCap,
		PayoutMultiplier:     g.PayoutMultiplier,
		RegistrationFee:      g.RegistrationFee,
		Quorum:               g.Quorum,
		TopicSpace:           g.TopicSpace,
		TopicsPerOracle:      g.TopicsPerOracle,
	}
}
