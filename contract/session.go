package contract

import (
	"encoding/json"
	"fmt"
	"time"

	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// ledgerView is a write-through view of world state for one transaction.
// Fabric's GetState does not return writes made earlier in the same
// transaction, so those keys are served from here.
type ledgerView struct {
	ctx    contractapi.TransactionContextInterface
	writes map[string][]byte
}

func newLedgerView(ctx contractapi.TransactionContextInterface) *ledgerView {
	return &ledgerView{ctx: ctx, writes: make(map[string][]byte)}
}

func (v *ledgerView) get(key string, out interface{}) (bool, error) {
	raw, ok := v.writes[key]
	if !ok {
		return getJSON(v.ctx, key, out)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal '%s': %w", key, err)
	}
	return true, nil
}

func (v *ledgerView) put(key string, val interface{}) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal '%s': %w", key, err)
	}
	if err := v.ctx.GetStub().PutState(key, raw); err != nil {
		return fmt.Errorf("failed to save '%s' to ledger: %w", key, err)
	}
	v.writes[key] = raw
	return nil
}

func (v *ledgerView) getConfig(name string, out interface{}) (bool, error) {
	key, err := configKey(v.ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to create config key '%s': %w", name, err)
	}
	return v.get(key, out)
}

func (v *ledgerView) putConfig(name string, val interface{}) error {
	key, err := configKey(v.ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create config key '%s': %w", name, err)
	}
	return v.put(key, val)
}

// txSession carries what every operation of one transaction needs: the
// authenticated caller, the ledger position and the genesis rules.
type txSession struct {
	ctx     contractapi.TransactionContextInterface
	view    *ledgerView
	caller  string
	txID    string
	now     time.Time
	rules   *rules
	events  *eventLog
	entropy Entropy

	nonce       uint64
	nonceLoaded bool
	nonceDirty  bool

	depth int // calls sharing this session; only the outermost commits
}

// openSession authenticates the caller and loads the genesis rules.
// It fails with ErrNotInitialized before InitLedger has run.
func openSession(ctx contractapi.TransactionContextInterface, entropy Entropy) (*txSession, error) {
	s, err := openBareSession(ctx, entropy)
	if err != nil {
		return nil, err
	}
	var params model.Parameters
	found, err := s.view.getConfig(configParameters, &params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	if s.rules, err = newRules(params); err != nil {
		return nil, err
	}
	return s, nil
}

// openBareSession is openSession without the genesis rules. Only InitLedger uses it.
func openBareSession(ctx contractapi.TransactionContextInterface, entropy Entropy) (*txSession, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	now, err := getCurrentTxTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	txID := ctx.GetStub().GetTxID()
	return &txSession{
		ctx:     ctx,
		view:    newLedgerView(ctx),
		caller:  caller,
		txID:    txID,
		now:     now,
		events:  newEventLog(txID, now),
		entropy: entropy,
	}, nil
}

func (s *txSession) emit(name string, payload map[string]string) {
	s.events.emit(name, payload)
}

// nextNonce returns the running entropy nonce and advances it. The stored
// value is read at most once per transaction and written back by commit.
func (s *txSession) nextNonce() (uint64, error) {
	if !s.nonceLoaded {
		if _, err := s.view.getConfig(configNonce, &s.nonce); err != nil {
			return 0, err
		}
		s.nonceLoaded = true
	}
	n := s.nonce
	s.nonce++
	s.nonceDirty = true
	return n, nil
}

// commit persists the nonce and flushes the event log. It is the last step
// of every successful mutating transaction; a re-entrant call leaves it to
// the outermost one.
func (s *txSession) commit() error {
	if s.depth > 1 {
		return nil
	}
	if s.nonceDirty {
		if err := s.view.putConfig(configNonce, s.nonce); err != nil {
			return err
		}
		s.nonceDirty = false
	}
	return s.events.flush(s.ctx)
}
