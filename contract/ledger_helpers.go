package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/shopspring/decimal"
)

// Object types for composite keys, also stored as 'objectType' in each record.
const (
	configObjectType  = "Config"        // Singletons. Attribute: config name.
	airlineObjectType = "Airline"       // Attribute: airline identity.
	flightObjectType  = "Flight"        // Attributes: designator, scheduledAt.
	policyObjectType  = "Policy"        // Attributes: designator, scheduledAt, passenger.
	oracleObjectType  = "Oracle"        // Attribute: oracle identity.
	requestObjectType = "OracleRequest" // Attributes: topic, designator, scheduledAt.
	walletObjectType  = "Wallet"        // Attribute: owner identity.
	eventObjectType   = "Event"         // Attributes: txID, index.
)

// Config singleton names.
const (
	configParameters   = "parameters"
	configOwner        = "owner"
	configOperational  = "operational"
	configAirlineStats = "airlineStats"
	configNonce        = "nonce"
)

const (
	maxDesignatorLength = 64
	maxAmountDecimals   = 18
	defaultPageSize     = 10
	maxPageSize         = 100
)

// rules are the genesis parameters with their amounts parsed.
type rules struct {
	model.Parameters
	minFunding       decimal.Decimal
	premiumCap       decimal.Decimal
	payoutMultiplier decimal.Decimal
	registrationFee  decimal.Decimal
}

func newRules(p model.Parameters) (*rules, error) {
	r := &rules{Parameters: p}
	var err error
	if r.minFunding, err = decimal.NewFromString(p.MinFunding); err != nil {
		return nil, fmt.Errorf("stored parameter minFunding '%s' is not a decimal: %w", p.MinFunding, err)
	}
	if r.premiumCap, err = decimal.NewFromString(p.PremiumCap); err != nil {
		return nil, fmt.Errorf("stored parameter premiumCap '%s' is not a decimal: %w", p.PremiumCap, err)
	}
	if r.payoutMultiplier, err = decimal.NewFromString(p.PayoutMultiplier); err != nil {
		return nil, fmt.Errorf("stored parameter payoutMultiplier '%s' is not a decimal: %w", p.PayoutMultiplier, err)
	}
	if r.registrationFee, err = decimal.NewFromString(p.RegistrationFee); err != nil {
		return nil, fmt.Errorf("stored parameter registrationFee '%s' is not a decimal: %w", p.RegistrationFee, err)
	}
	return r, nil
}

// --- Key Creation Helpers ---

func configKey(ctx contractapi.TransactionContextInterface, name string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(configObjectType, []string{name})
}

func airlineKey(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(airlineObjectType, []string{id})
}

func flightKey(ctx contractapi.TransactionContextInterface, k model.FlightKey) (string, error) {
	return ctx.GetStub().CreateCompositeKey(flightObjectType, []string{k.Designator, formatScheduledAt(k.ScheduledAt)})
}

func policyKey(ctx contractapi.TransactionContextInterface, k model.FlightKey, passenger string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(policyObjectType, []string{k.Designator, formatScheduledAt(k.ScheduledAt), passenger})
}

func oracleKey(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(oracleObjectType, []string{id})
}

func requestKey(ctx contractapi.TransactionContextInterface, topic int, k model.FlightKey) (string, error) {
	return ctx.GetStub().CreateCompositeKey(requestObjectType, []string{strconv.Itoa(topic), k.Designator, formatScheduledAt(k.ScheduledAt)})
}

func walletKey(ctx contractapi.TransactionContextInterface, owner string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(walletObjectType, []string{owner})
}

// formatScheduledAt zero-pads so composite keys sort chronologically.
func formatScheduledAt(ts int64) string {
	return fmt.Sprintf("%020d", ts)
}

// --- State Helpers ---

// getJSON unmarshals the value at key into v. It reports false when the key is absent.
func getJSON(ctx contractapi.TransactionContextInterface, key string, v interface{}) (bool, error) {
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read '%s' from ledger: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal '%s': %w", key, err)
	}
	return true, nil
}

func putJSON(ctx contractapi.TransactionContextInterface, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal '%s': %w", key, err)
	}
	if err := ctx.GetStub().PutState(key, raw); err != nil {
		return fmt.Errorf("failed to save '%s' to ledger: %w", key, err)
	}
	return nil
}

func getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// --- Validation Helpers ---

func parseFlightKey(designator string, scheduledAt int64) (model.FlightKey, error) {
	d := strings.TrimSpace(designator)
	if d == "" {
		return model.FlightKey{}, fmt.Errorf("%w: designator cannot be empty", ErrInvalidArgument)
	}
	if len(d) > maxDesignatorLength {
		return model.FlightKey{}, fmt.Errorf("%w: designator exceeds max length %d", ErrInvalidArgument, maxDesignatorLength)
	}
	if scheduledAt <= 0 {
		return model.FlightKey{}, fmt.Errorf("%w: scheduledAt must be a positive unix timestamp", ErrInvalidArgument)
	}
	return model.FlightKey{Designator: d, ScheduledAt: scheduledAt}, nil
}

// parseAmount parses an attached amount, which must be positive.
func parseAmount(raw, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s '%s' is not a decimal", ErrInvalidAmount, field, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, field)
	}
	if d.Exponent() < -maxAmountDecimals {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, field, maxAmountDecimals)
	}
	return d, nil
}

// storedAmount parses an amount read back from the ledger; empty means zero.
func storedAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored amount '%s' is not a decimal: %w", raw, err)
	}
	return d, nil
}

// parsePageSize reads a page size argument, falling back to the default
// when it is missing or invalid and capping it at maxPageSize.
func parsePageSize(raw string) int32 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || n <= 0 {
		if raw != "" {
			logger.Warningf("Invalid pageSize '%s', using default of %d", raw, defaultPageSize)
		}
		return defaultPageSize
	}
	if n > maxPageSize {
		logger.Warningf("Requested pageSize %d exceeds max of %d. Capping.", n, maxPageSize)
		return maxPageSize
	}
	return int32(n)
}
