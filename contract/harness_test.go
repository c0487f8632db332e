package contract

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"testing"

	"flightsurety/model"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"
)

const (
	owner     = "x509::CN=owner,OU=admin::CN=ca.org1.example.com"
	airline1  = "x509::CN=airline1,OU=client::CN=ca.org1.example.com"
	airline2  = "x509::CN=airline2,OU=client::CN=ca.org1.example.com"
	airline3  = "x509::CN=airline3,OU=client::CN=ca.org1.example.com"
	airline4  = "x509::CN=airline4,OU=client::CN=ca.org1.example.com"
	airline5  = "x509::CN=airline5,OU=client::CN=ca.org1.example.com"
	passenger = "x509::CN=passenger1,OU=client::CN=ca.org2.example.com"
	stranger  = "x509::CN=stranger,OU=client::CN=ca.org2.example.com"

	flightND      = "ND1309"
	flightNDDepAt = int64(1700000000)
)

func oracleID(n int) string {
	return fmt.Sprintf("x509::CN=oracle%d,OU=peer::CN=ca.org3.example.com", n)
}

type fakeIdentity struct {
	id string
}

func (f *fakeIdentity) GetID() (string, error)                         { return f.id, nil }
func (f *fakeIdentity) GetMSPID() (string, error)                      { return "Org1MSP", nil }
func (f *fakeIdentity) GetAttributeValue(string) (string, bool, error) { return "", false, nil }
func (f *fakeIdentity) AssertAttributeValue(string, string) error      { return nil }
func (f *fakeIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

// scriptedEntropy cycles through a fixed sequence of indexes.
type scriptedEntropy struct {
	seq  []int
	next int
}

func (e *scriptedEntropy) Index(_ []byte, space int) int {
	v := e.seq[e.next%len(e.seq)] % space
	e.next++
	return v
}

// ledgerStub is a MockStub that reads like a Fabric peer: a transaction's
// writes are buffered, invisible to its own reads, and applied only when the
// transaction succeeds. It also pages partial composite key queries.
type ledgerStub struct {
	*shimtest.MockStub
	pending map[string][]byte
	order   []string
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{MockStub: shimtest.NewMockStub("flightsurety", nil)}
}

func (s *ledgerStub) PutState(key string, value []byte) error {
	if s.TxID == "" {
		return fmt.Errorf("cannot PutState without a transaction")
	}
	if s.pending == nil {
		s.pending = make(map[string][]byte)
	}
	if _, ok := s.pending[key]; !ok {
		s.order = append(s.order, key)
	}
	s.pending[key] = value
	return nil
}

// end applies the buffered writes when ok and discards them otherwise.
func (s *ledgerStub) end(ok bool) error {
	defer func() {
		s.pending = nil
		s.order = nil
	}()
	if !ok {
		return nil
	}
	for _, key := range s.order {
		if err := s.MockStub.PutState(key, s.pending[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ledgerStub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *peer.QueryResponseMetadata, error) {
	it, err := s.MockStub.GetStateByPartialCompositeKey(objectType, keys)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	page := []*queryresult.KV{}
	next := ""
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, nil, err
		}
		if bookmark != "" && kv.Key < bookmark {
			continue
		}
		if int32(len(page)) == pageSize {
			next = kv.Key
			break
		}
		page = append(page, kv)
	}
	return &kvIterator{kvs: page}, &peer.QueryResponseMetadata{FetchedRecordsCount: int32(len(page)), Bookmark: next}, nil
}

type kvIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (i *kvIterator) HasNext() bool { return i.pos < len(i.kvs) }
func (i *kvIterator) Close() error  { return nil }

func (i *kvIterator) Next() (*queryresult.KV, error) {
	if !i.HasNext() {
		return nil, fmt.Errorf("iterator exhausted")
	}
	kv := i.kvs[i.pos]
	i.pos++
	return kv, nil
}

type harness struct {
	t      *testing.T
	stub   *ledgerStub
	cc     *FlightSuretyContract
	txSeq  int
	lastTx string
	events []model.Event // events of the last call
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	opts = append([]Option{WithEntropy(&scriptedEntropy{seq: []int{0, 1, 2}})}, opts...)
	return &harness{
		t:    t,
		stub: newLedgerStub(),
		cc:   NewFlightSuretyContract(opts...),
	}
}

func (h *harness) ctxFor(caller string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(&fakeIdentity{id: caller})
	return ctx
}

// call runs fn as one transaction submitted by caller and collects the
// events it published. Its writes are committed only when fn succeeds.
func (h *harness) call(caller string, fn func(ctx contractapi.TransactionContextInterface) error) error {
	h.txSeq++
	txID := fmt.Sprintf("tx%04d", h.txSeq)
	h.stub.MockTransactionStart(txID)
	err := fn(h.ctxFor(caller))
	require.NoError(h.t, h.stub.end(err == nil))
	h.stub.MockTransactionEnd(txID)
	h.lastTx = txID
	h.events = h.drain()
	return err
}

func (h *harness) drain() []model.Event {
	var out []model.Event
	for {
		select {
		case ev := <-h.stub.ChaincodeEventsChannel:
			require.Equal(h.t, chaincodeEventName, ev.EventName)
			var batch []model.Event
			require.NoError(h.t, json.Unmarshal(ev.Payload, &batch))
			out = append(out, batch...)
		default:
			return out
		}
	}
}

func (h *harness) eventNames() []string {
	names := make([]string, len(h.events))
	for i, e := range h.events {
		names[i] = e.Name
	}
	return names
}

// --- Operation shorthands ---

func (h *harness) initLedger(first string) error {
	return h.call(owner, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.InitLedger(ctx, first)
	})
}

func (h *harness) issue(to, amount string) {
	h.t.Helper()
	require.NoError(h.t, h.call(owner, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.IssueTokens(ctx, to, amount)
	}))
}

func (h *harness) registerAirline(caller, candidate string) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.RegisterAirline(ctx, candidate)
	})
}

func (h *harness) fundAirline(caller, amount string) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.FundAirline(ctx, amount)
	})
}

// fund issues tokens to airline and deposits them as its stake.
func (h *harness) fund(airline, amount string) {
	h.t.Helper()
	h.issue(airline, amount)
	require.NoError(h.t, h.fundAirline(airline, amount))
}

func (h *harness) registerFlight(caller, designator string, at int64) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.RegisterFlight(ctx, designator, at)
	})
}

func (h *harness) buy(caller, designator string, at int64, amount string) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.BuyInsurance(ctx, designator, at, amount)
	})
}

func (h *harness) registerOracle(caller, fee string) ([]int, error) {
	var topics []int
	err := h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		topics, err = h.cc.RegisterOracle(ctx, fee)
		return err
	})
	return topics, err
}

func (h *harness) fetch(caller, designator string, at int64) (*model.OracleRequest, error) {
	var req *model.OracleRequest
	err := h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		req, err = h.cc.FetchFlightStatus(ctx, designator, at)
		return err
	})
	return req, err
}

func (h *harness) respond(caller string, topic int, designator string, at int64, status model.FlightStatus) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.SubmitOracleResponse(ctx, topic, designator, at, int(status))
	})
}

func (h *harness) withdraw(caller, designator string, at int64) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.WithdrawalRefund(ctx, designator, at)
	})
}

func (h *harness) setOperating(caller string, mode bool) error {
	return h.call(caller, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.SetOperatingStatus(ctx, mode)
	})
}

func (h *harness) balance(id string) string {
	h.t.Helper()
	var bal string
	require.NoError(h.t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		bal, err = h.cc.GetWalletBalance(ctx, id)
		return err
	}))
	return bal
}

func (h *harness) escrow() string {
	h.t.Helper()
	var bal string
	require.NoError(h.t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		bal, err = h.cc.GetEscrowBalance(ctx)
		return err
	}))
	return bal
}

func (h *harness) airline(id string) *model.Airline {
	h.t.Helper()
	var a *model.Airline
	require.NoError(h.t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		a, err = h.cc.GetAirline(ctx, id)
		return err
	}))
	return a
}

func (h *harness) flight(designator string, at int64) *model.Flight {
	h.t.Helper()
	var f *model.Flight
	require.NoError(h.t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		f, err = h.cc.GetFlight(ctx, designator, at)
		return err
	}))
	return f
}

func (h *harness) policy(designator string, at int64, who string) *model.Policy {
	h.t.Helper()
	var p *model.Policy
	require.NoError(h.t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		p, err = h.cc.GetPolicy(ctx, designator, at, who)
		return err
	}))
	return p
}

func (h *harness) registeredCount() int {
	h.t.Helper()
	var n int
	require.NoError(h.t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		n, err = h.cc.GetRegisteredAirlinesCount(ctx)
		return err
	}))
	return n
}

// genesis initializes the ledger with airline1 as the first airline.
func (h *harness) genesis() {
	h.t.Helper()
	require.NoError(h.t, h.initLedger(airline1))
}

// fourAirlines admits airline2..airline4 through airline1.
func (h *harness) fourAirlines() {
	h.t.Helper()
	h.genesis()
	for _, a := range []string{airline2, airline3, airline4} {
		require.NoError(h.t, h.registerAirline(airline1, a))
	}
}

// insuredFlight registers flightND for a funded airline1 and sells passenger
// a policy of premium.
func (h *harness) insuredFlight(premium string) {
	h.t.Helper()
	h.genesis()
	h.fund(airline1, "10")
	require.NoError(h.t, h.registerFlight(airline1, flightND, flightNDDepAt))
	h.issue(passenger, "5")
	require.NoError(h.t, h.buy(passenger, flightND, flightNDDepAt, premium))
}

// oracles registers n oracles and returns their IDs.
func (h *harness) oracles(n int) []string {
	h.t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = oracleID(i + 1)
		h.issue(ids[i], "1")
		_, err := h.registerOracle(ids[i], "1")
		require.NoError(h.t, err)
	}
	return ids
}
