package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"flightsurety/model"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// chaincodeEventName is the single Fabric event published per transaction.
const chaincodeEventName = "FlightSuretyEvents"

// Event names.
const (
	EventAirlineRegistered      = "AirlineRegistered"
	EventAirlineVoted           = "AirlineVoted"
	EventAirlineFunded          = "AirlineFunded"
	EventFlightRegistered       = "FlightRegistered"
	EventBuyInsurance           = "BuyInsurance"
	EventOracleRequest          = "OracleRequest"
	EventOracleRegistered       = "OracleRegistered"
	EventOracleReport           = "OracleReport"
	EventFlightStatusInfo       = "FlightStatusInfo"
	EventPayoutWithdrawn        = "PayoutWithdrawn"
	EventTokensIssued           = "TokensIssued"
	EventOperatingStatusChanged = "OperatingStatusChanged"
)

// eventNamespace seeds the deterministic event IDs.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("flightsurety/events"))

// eventLog collects the events of one transaction in emission order.
type eventLog struct {
	txID    string
	now     time.Time
	entries []model.Event
}

func newEventLog(txID string, now time.Time) *eventLog {
	return &eventLog{txID: txID, now: now}
}

func (l *eventLog) emit(name string, payload map[string]string) {
	idx := len(l.entries)
	l.entries = append(l.entries, model.Event{
		ObjectType: eventObjectType,
		ID:         uuid.NewSHA1(eventNamespace, []byte(l.txID+"/"+strconv.Itoa(idx))).String(),
		TxID:       l.txID,
		Index:      idx,
		Name:       name,
		Payload:    payload,
		Timestamp:  l.now,
	})
}

// flush stores every entry under Event/<txID>/<index> and publishes the
// batch as one chaincode event.
func (l *eventLog) flush(ctx contractapi.TransactionContextInterface) error {
	if len(l.entries) == 0 {
		return nil
	}
	for _, e := range l.entries {
		key, err := eventKey(ctx, e.TxID, e.Index)
		if err != nil {
			return fmt.Errorf("failed to create event key: %w", err)
		}
		if err := putJSON(ctx, key, e); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(l.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := ctx.GetStub().SetEvent(chaincodeEventName, payload); err != nil {
		return fmt.Errorf("failed to set chaincode event: %w", err)
	}
	return nil
}

func eventKey(ctx contractapi.TransactionContextInterface, txID string, index int) (string, error) {
	return ctx.GetStub().CreateCompositeKey(eventObjectType, []string{txID, fmt.Sprintf("%06d", index)})
}

// transactionEvents reads back the events stored by txID, in emission order.
func transactionEvents(ctx contractapi.TransactionContextInterface, txID string) ([]model.Event, error) {
	it, err := ctx.GetStub().GetStateByPartialCompositeKey(eventObjectType, []string{txID})
	if err != nil {
		return nil, fmt.Errorf("failed to get events iterator: %w", err)
	}
	defer it.Close()

	events := []model.Event{}
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate events: %w", err)
		}
		var e model.Event
		if err := json.Unmarshal(kv.Value, &e); err != nil {
			logger.Warningf("Skipping unreadable event at key '%s': %v", kv.Key, err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
