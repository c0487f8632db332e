package contract

import (
	"fmt"
	"sync"

	"flightsurety/config"
	"flightsurety/metrics"
	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("flightsurety.contract")

// FlightSuretyContract issues flight-delay insurance and pays it out once
// registered oracles agree on a late status.
// @contract:FlightSuretyContract
type FlightSuretyContract struct {
	contractapi.Contract

	params     model.Parameters
	entropy    Entropy
	transferor Transferor

	mu     sync.Mutex
	active map[string]*txSession // sessions of transactions in progress, by tx ID
}

// Option configures a FlightSuretyContract.
type Option func(*FlightSuretyContract)

// WithParameters sets the genesis parameters InitLedger persists.
func WithParameters(p model.Parameters) Option {
	return func(c *FlightSuretyContract) {
		c.params = p
	}
}

// WithEntropy replaces the ledger-derived topic source.
func WithEntropy(e Entropy) Option {
	return func(c *FlightSuretyContract) {
		c.entropy = e
	}
}

// WithTransferor replaces the escrow payout used by WithdrawalRefund.
func WithTransferor(t Transferor) Option {
	return func(c *FlightSuretyContract) {
		c.transferor = t
	}
}

// NewFlightSuretyContract returns a contract with the default parameters and ledger entropy.
func NewFlightSuretyContract(opts ...Option) *FlightSuretyContract {
	c := &FlightSuretyContract{
		params:  config.DefaultGenesis().Parameters(),
		entropy: ledgerEntropy{},
		active:  make(map[string]*txSession),
	}
	c.Name = "FlightSuretyContract"
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session returns the session of the transaction in progress, opening it on
// the outermost call. A call made re-entrantly within the same transaction
// shares that session and so sees every write made before it. release must
// run when the call returns.
func (c *FlightSuretyContract) session(ctx contractapi.TransactionContextInterface) (*txSession, func(), error) {
	txID := ctx.GetStub().GetTxID()

	c.mu.Lock()
	if s, ok := c.active[txID]; ok {
		s.depth++
		c.mu.Unlock()
		logger.Debugf("Re-entrant call joined session of tx '%s' at depth %d", txID, s.depth)
		return s, func() { c.release(s) }, nil
	}
	c.mu.Unlock()

	entropy := c.entropy
	if entropy == nil {
		entropy = ledgerEntropy{}
	}
	s, err := openSession(ctx, entropy)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	if c.active == nil {
		c.active = make(map[string]*txSession)
	}
	s.depth = 1
	c.active[txID] = s
	c.mu.Unlock()
	return s, func() { c.release(s) }, nil
}

func (c *FlightSuretyContract) release(s *txSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.depth--
	if s.depth == 0 {
		delete(c.active, s.txID)
	}
}

// begin opens a session for a mutating call and applies the operational gate.
func (c *FlightSuretyContract) begin(ctx contractapi.TransactionContextInterface) (*txSession, func(), error) {
	s, release, err := c.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := NewOperationalGate(s).requireOperational(); err != nil {
		release()
		return nil, nil, err
	}
	return s, release, nil
}

// InitLedger writes the genesis block: the parameters, the caller as
// owner, the operational flag and the first airline (the caller when
// firstAirline is empty). It can run only once.
func (c *FlightSuretyContract) InitLedger(ctx contractapi.TransactionContextInterface, firstAirline string) (err error) {
	defer func() { metrics.RecordTransaction("InitLedger", err) }()
	logger.Infof("Chaincode Call: InitLedger with first airline '%s'", firstAirline)

	s, err := openBareSession(ctx, c.entropy)
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	var existing model.Parameters
	found, err := s.view.getConfig(configParameters, &existing)
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	if found {
		return fmt.Errorf("InitLedger: %w", ErrAlreadyInitialized)
	}
	if err := config.ValidateParameters(c.params); err != nil {
		return fmt.Errorf("InitLedger: %w: %v", ErrInvalidArgument, err)
	}
	first := s.caller
	if firstAirline != "" {
		if first, err = normalizeIdentity(firstAirline, "firstAirline"); err != nil {
			return fmt.Errorf("InitLedger: %w", err)
		}
	}
	if s.rules, err = newRules(c.params); err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}

	if err := s.view.putConfig(configParameters, c.params); err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	if err := s.view.putConfig(configOwner, s.caller); err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	op := model.OperatingState{Operational: true, ChangedBy: s.caller, LastUpdatedAt: s.now}
	if err := s.view.putConfig(configOperational, op); err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	if err := NewAirlineRegistry(s).seedGenesis(first); err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	logger.Infof("Ledger initialized by owner '%s'", s.caller)
	return nil
}

// SetOperatingStatus pauses or resumes the contract. Owner only.
func (c *FlightSuretyContract) SetOperatingStatus(ctx contractapi.TransactionContextInterface, mode bool) (err error) {
	defer func() { metrics.RecordTransaction("SetOperatingStatus", err) }()
	logger.Infof("Chaincode Call: SetOperatingStatus to %t", mode)

	s, release, err := c.session(ctx)
	if err != nil {
		return fmt.Errorf("SetOperatingStatus: %w", err)
	}
	defer release()
	if err := NewOperationalGate(s).setOperatingStatus(s.caller, mode); err != nil {
		return fmt.Errorf("SetOperatingStatus: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("SetOperatingStatus: %w", err)
	}
	return nil
}

// IssueTokens credits amount to recipient's wallet. Owner only.
func (c *FlightSuretyContract) IssueTokens(ctx contractapi.TransactionContextInterface, recipient string, amount string) (err error) {
	defer func() { metrics.RecordTransaction("IssueTokens", err) }()
	logger.Infof("Chaincode Call: IssueTokens %s to '%s'", amount, recipient)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("IssueTokens: %w", err)
	}
	defer release()
	if err := NewOperationalGate(s).requireOwner(s.caller); err != nil {
		return fmt.Errorf("IssueTokens: %w", err)
	}
	to, err := normalizeIdentity(recipient, "recipient")
	if err != nil {
		return fmt.Errorf("IssueTokens: %w", err)
	}
	value, err := parseAmount(amount, "amount")
	if err != nil {
		return fmt.Errorf("IssueTokens: %w", err)
	}
	if err := NewTreasury(s.view, s.now).credit(to, value); err != nil {
		return fmt.Errorf("IssueTokens: %w", err)
	}
	s.emit(EventTokensIssued, map[string]string{"account": to, "amount": value.String()})
	if err := s.commit(); err != nil {
		return fmt.Errorf("IssueTokens: %w", err)
	}
	return nil
}

// RegisterAirline admits candidate or records the caller's vote for it.
func (c *FlightSuretyContract) RegisterAirline(ctx contractapi.TransactionContextInterface, candidate string) (err error) {
	defer func() { metrics.RecordTransaction("RegisterAirline", err) }()
	logger.Infof("Chaincode Call: RegisterAirline for '%s'", candidate)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("RegisterAirline: %w", err)
	}
	defer release()
	id, err := normalizeIdentity(candidate, "candidate")
	if err != nil {
		return fmt.Errorf("RegisterAirline: %w", err)
	}
	if err := NewAirlineRegistry(s).register(s.caller, id); err != nil {
		return fmt.Errorf("RegisterAirline: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("RegisterAirline: %w", err)
	}
	return nil
}

// FundAirline deposits amount from the caller's wallet as airline stake.
func (c *FlightSuretyContract) FundAirline(ctx contractapi.TransactionContextInterface, amount string) (err error) {
	defer func() { metrics.RecordTransaction("FundAirline", err) }()
	logger.Infof("Chaincode Call: FundAirline %s", amount)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("FundAirline: %w", err)
	}
	defer release()
	value, err := parseAmount(amount, "amount")
	if err != nil {
		return fmt.Errorf("FundAirline: %w", err)
	}
	if err := NewAirlineRegistry(s).fund(s.caller, value); err != nil {
		return fmt.Errorf("FundAirline: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("FundAirline: %w", err)
	}
	return nil
}

// RegisterFlight publishes a flight owned by the calling airline.
func (c *FlightSuretyContract) RegisterFlight(ctx contractapi.TransactionContextInterface, designator string, scheduledAt int64) (err error) {
	defer func() { metrics.RecordTransaction("RegisterFlight", err) }()
	logger.Infof("Chaincode Call: RegisterFlight '%s' at %d", designator, scheduledAt)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("RegisterFlight: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return fmt.Errorf("RegisterFlight: %w", err)
	}
	if err := NewFlightRegistry(s).register(s.caller, k); err != nil {
		return fmt.Errorf("RegisterFlight: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("RegisterFlight: %w", err)
	}
	return nil
}

// BuyInsurance escrows amount as the caller's premium on a flight.
func (c *FlightSuretyContract) BuyInsurance(ctx contractapi.TransactionContextInterface, designator string, scheduledAt int64, amount string) (err error) {
	defer func() { metrics.RecordTransaction("BuyInsurance", err) }()
	logger.Infof("Chaincode Call: BuyInsurance %s on '%s' at %d", amount, designator, scheduledAt)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("BuyInsurance: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return fmt.Errorf("BuyInsurance: %w", err)
	}
	value, err := parseAmount(amount, "amount")
	if err != nil {
		return fmt.Errorf("BuyInsurance: %w", err)
	}
	if err := NewInsuranceLedger(s, c.transferor).buy(s.caller, k, value); err != nil {
		return fmt.Errorf("BuyInsurance: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("BuyInsurance: %w", err)
	}
	return nil
}

// FetchFlightStatus asks oracles holding a freshly drawn topic to report on a flight.
func (c *FlightSuretyContract) FetchFlightStatus(ctx contractapi.TransactionContextInterface, designator string, scheduledAt int64) (_ *model.OracleRequest, err error) {
	defer func() { metrics.RecordTransaction("FetchFlightStatus", err) }()
	logger.Infof("Chaincode Call: FetchFlightStatus '%s' at %d", designator, scheduledAt)

	s, release, err := c.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFlightStatus: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("FetchFlightStatus: %w", err)
	}
	req, err := NewOracleConsensus(s, c.transferor).fetchFlightStatus(s.caller, k)
	if err != nil {
		return nil, fmt.Errorf("FetchFlightStatus: %w", err)
	}
	if err := s.commit(); err != nil {
		return nil, fmt.Errorf("FetchFlightStatus: %w", err)
	}
	return req, nil
}

// RegisterOracle pays fee into escrow and returns the caller's assigned topics.
func (c *FlightSuretyContract) RegisterOracle(ctx contractapi.TransactionContextInterface, fee string) (_ []int, err error) {
	defer func() { metrics.RecordTransaction("RegisterOracle", err) }()
	logger.Infof("Chaincode Call: RegisterOracle with fee %s", fee)

	s, release, err := c.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	defer release()
	value, err := parseAmount(fee, "fee")
	if err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	topics, err := NewOracleConsensus(s, c.transferor).registerOracle(s.caller, value)
	if err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	if err := s.commit(); err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	return topics, nil
}

// SubmitOracleResponse records the caller's report for an open request.
func (c *FlightSuretyContract) SubmitOracleResponse(ctx contractapi.TransactionContextInterface, topic int, designator string, scheduledAt int64, status int) (err error) {
	defer func() { metrics.RecordTransaction("SubmitOracleResponse", err) }()
	logger.Infof("Chaincode Call: SubmitOracleResponse topic %d on '%s' at %d: %d", topic, designator, scheduledAt, status)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	fin, err := NewOracleConsensus(s, c.transferor).submitResponse(s.caller, topic, k, model.FlightStatus(status))
	if err != nil {
		return fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	if fin != nil {
		metrics.RecordFinalization(fin.Status.String())
	}
	return nil
}

// WithdrawalRefund pays the caller's credit on a late flight out of escrow.
func (c *FlightSuretyContract) WithdrawalRefund(ctx contractapi.TransactionContextInterface, designator string, scheduledAt int64) (err error) {
	defer func() { metrics.RecordTransaction("WithdrawalRefund", err) }()
	logger.Infof("Chaincode Call: WithdrawalRefund on '%s' at %d", designator, scheduledAt)

	s, release, err := c.begin(ctx)
	if err != nil {
		return fmt.Errorf("WithdrawalRefund: %w", err)
	}
	defer release()
	k, err := parseFlightKey(designator, scheduledAt)
	if err != nil {
		return fmt.Errorf("WithdrawalRefund: %w", err)
	}
	if _, err := NewInsuranceLedger(s, c.transferor).withdraw(s.caller, k); err != nil {
		return fmt.Errorf("WithdrawalRefund: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("WithdrawalRefund: %w", err)
	}
	metrics.RecordPayout()
	return nil
}
