package contract

import (
	"fmt"
	"strings"

	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Queries ---
// Queries bypass the operational gate but still fail before InitLedger.

func (c *FlightSuretyContract) IsOperational(ctx contractapi.TransactionContextInterface) (bool, error) {
	logger.Debug("Chaincode Call: IsOperational")
	s, release, err := c.session(ctx)
	if err != nil {
		return false, fmt.Errorf("IsOperational: %w", err)
	}
	defer release()
	st, err := NewOperationalGate(s).state()
	if err != nil {
		return false, fmt.Errorf("IsOperational: %w", err)
	}
	return st.Operational, nil
}

func (c *FlightSuretyContract) GetParameters(ctx contractapi.TransactionContextInterface) (*model.Parameters, error) {
	logger.Debug("Chaincode Call: GetParameters")
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetParameters: %w", err)
	}
	defer release()
	p := s.rules.Parameters
	return &p, nil
}

func (c *FlightSuretyContract) GetOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	logger.Debug("Chaincode Call: GetOwner")
	s, release, err := c.session(ctx)
	if err != nil {
		return "", fmt.Errorf("GetOwner: %w", err)
	}
	defer release()
	owner, err := NewOperationalGate(s).owner()
	if err != nil {
		return "", fmt.Errorf("GetOwner: %w", err)
	}
	return owner, nil
}

// FundedEnough reports whether identity's stake meets the minimum funding.
func (c *FlightSuretyContract) FundedEnough(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	logger.Debugf("Chaincode Call: FundedEnough for '%s'", identity)
	s, release, err := c.session(ctx)
	if err != nil {
		return false, fmt.Errorf("FundedEnough: %w", err)
	}
	defer release()
	id, err := normalizeIdentity(identity, "identity")
	if err != nil {
		return false, fmt.Errorf("FundedEnough: %w", err)
	}
	ok, err := NewAirlineRegistry(s).fundedEnough(id)
	if err != nil {
		return false, fmt.Errorf("FundedEnough: %w", err)
	}
	return ok, nil
}

func (c *FlightSuretyContract) GetAirline(ctx contractapi.TransactionContextInterface, identity string) (*model.Airline, error) {
	logger.Debugf("Chaincode Call: GetAirline for '%s'", identity)
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAirline: %w", err)
	}
	defer release()
	id, err := normalizeIdentity(identity, "identity")
	if err != nil {
		return nil, fmt.Errorf("GetAirline: %w", err)
	}
	a, _, err := NewAirlineRegistry(s).get(id)
	if err != nil {
		return nil, fmt.Errorf("GetAirline: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("GetAirline: %w: airline '%s'", ErrNotFound, id)
	}
	return a, nil
}

func (c *FlightSuretyContract) GetRegisteredAirlinesCount(ctx contractapi.TransactionContextInterface) (int, error) {
	logger.Debug("Chaincode Call: GetRegisteredAirlinesCount")
	s, release, err := c.session(ctx)
	if err != nil {
		return 0, fmt.Errorf("GetRegisteredAirlinesCount: %w", err)
	}
	defer release()
	st, err := NewAirlineRegistry(s).stats()
	if err != nil {
		return 0, fmt.Errorf("GetRegisteredAirlinesCount: %w", err)
	}
	return st.RegisteredCount, nil
}

func (c *FlightSuretyContract) GetFlight(ctx contractapi.TransactionContextInterface, designator string, scheduledAt int64) (*model.Flight, error) {
	logger.Debugf("Chaincode Call: GetFlight '%s' at %d", designator, scheduledAt)
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFlight: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("GetFlight: %w", err)
	}
	f, _, err := NewFlightRegistry(s).get(k)
	if err != nil {
		return nil, fmt.Errorf("GetFlight: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("GetFlight: %w: '%s'", ErrFlightNotRegistered, k)
	}
	return f, nil
}

// GetFlights returns a page of registered flights ordered by designator, then scheduled time.
func (c *FlightSuretyContract) GetFlights(ctx contractapi.TransactionContextInterface, pageSizeStr string, bookmark string) (*model.PaginatedFlightResponse, error) {
	pageSize := parsePageSize(pageSizeStr)
	logger.Debugf("Chaincode Call: GetFlights (pageSize: %d, bookmark: '%s')", pageSize, bookmark)
	_, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFlights: %w", err)
	}
	defer release()
	page, err := listFlights(ctx, "", pageSize, bookmark)
	if err != nil {
		return nil, fmt.Errorf("GetFlights: %w", err)
	}
	logger.Debugf("GetFlights: Retrieved %d flights for this page.", page.FetchedCount)
	return page, nil
}

func (c *FlightSuretyContract) GetFlightsByAirline(ctx contractapi.TransactionContextInterface, identity string, pageSizeStr string, bookmark string) (*model.PaginatedFlightResponse, error) {
	pageSize := parsePageSize(pageSizeStr)
	logger.Debugf("Chaincode Call: GetFlightsByAirline for '%s' (pageSize: %d, bookmark: '%s')", identity, pageSize, bookmark)
	_, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFlightsByAirline: %w", err)
	}
	defer release()
	id, err := normalizeIdentity(identity, "identity")
	if err != nil {
		return nil, fmt.Errorf("GetFlightsByAirline: %w", err)
	}
	page, err := listFlights(ctx, id, pageSize, bookmark)
	if err != nil {
		return nil, fmt.Errorf("GetFlightsByAirline: %w", err)
	}
	return page, nil
}

// GetPolicy returns passenger's policy on a flight; an empty passenger means the caller.
func (c *FlightSuretyContract) GetPolicy(ctx contractapi.TransactionContextInterface, designator string, scheduledAt int64, passenger string) (*model.Policy, error) {
	logger.Debugf("Chaincode Call: GetPolicy '%s' at %d for '%s'", designator, scheduledAt, passenger)
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPolicy: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("GetPolicy: %w", err)
	}
	who := s.caller
	if strings.TrimSpace(passenger) != "" {
		if who, err = normalizeIdentity(passenger, "passenger"); err != nil {
			return nil, fmt.Errorf("GetPolicy: %w", err)
		}
	}
	p, _, err := NewInsuranceLedger(s, c.transferor).get(k, who)
	if err != nil {
		return nil, fmt.Errorf("GetPolicy: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("GetPolicy: %w: policy of '%s' on '%s'", ErrNotFound, who, k)
	}
	return p, nil
}

// GetOracleIndexes returns the caller's assigned topics.
func (c *FlightSuretyContract) GetOracleIndexes(ctx contractapi.TransactionContextInterface) ([]int, error) {
	logger.Debug("Chaincode Call: GetOracleIndexes")
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetOracleIndexes: %w", err)
	}
	defer release()
	o, err := NewOracleConsensus(s, c.transferor).requireOracle(s.caller)
	if err != nil {
		return nil, fmt.Errorf("GetOracleIndexes: %w", err)
	}
	return o.Topics, nil
}

func (c *FlightSuretyContract) GetOracleRequest(ctx contractapi.TransactionContextInterface, topic int, designator string, scheduledAt int64) (*model.OracleRequest, error) {
	logger.Debugf("Chaincode Call: GetOracleRequest topic %d on '%s' at %d", topic, designator, scheduledAt)
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetOracleRequest: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("GetOracleRequest: %w", err)
	}
	r, _, err := NewOracleConsensus(s, c.transferor).getRequest(topic, k)
	if err != nil {
		return nil, fmt.Errorf("GetOracleRequest: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("GetOracleRequest: %w: topic %d on '%s'", ErrNotFound, topic, k)
	}
	return r, nil
}

func (c *FlightSuretyContract) GetWalletBalance(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	logger.Debugf("Chaincode Call: GetWalletBalance for '%s'", identity)
	s, release, err := c.session(ctx)
	if err != nil {
		return "", fmt.Errorf("GetWalletBalance: %w", err)
	}
	defer release()
	id, err := normalizeIdentity(identity, "identity")
	if err != nil {
		return "", fmt.Errorf("GetWalletBalance: %w", err)
	}
	bal, err := NewTreasury(s.view, s.now).balance(id)
	if err != nil {
		return "", fmt.Errorf("GetWalletBalance: %w", err)
	}
	return bal.String(), nil
}

// GetEscrowBalance returns the value held by the contract: stakes, premiums and fees less payouts.
func (c *FlightSuretyContract) GetEscrowBalance(ctx contractapi.TransactionContextInterface) (string, error) {
	logger.Debug("Chaincode Call: GetEscrowBalance")
	s, release, err := c.session(ctx)
	if err != nil {
		return "", fmt.Errorf("GetEscrowBalance: %w", err)
	}
	defer release()
	bal, err := NewTreasury(s.view, s.now).balance(escrowAccount)
	if err != nil {
		return "", fmt.Errorf("GetEscrowBalance: %w", err)
	}
	return bal.String(), nil
}

// GetTransactionEvents returns the events a committed transaction emitted.
func (c *FlightSuretyContract) GetTransactionEvents(ctx contractapi.TransactionContextInterface, txID string) ([]model.Event, error) {
	logger.Debugf("Chaincode Call: GetTransactionEvents for '%s'", txID)
	_, release, err := c.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionEvents: %w", err)
	}
	defer release()
	id := strings.TrimSpace(txID)
	if id == "" {
		return nil, fmt.Errorf("GetTransactionEvents: %w: txID cannot be empty", ErrInvalidArgument)
	}
	events, err := transactionEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionEvents: %w", err)
	}
	return events, nil
}
