package contract

import (
	"fmt"
	"strconv"
	"strings"

	"flightsurety/model"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/shopspring/decimal"
)

var oracleLogger = flogging.MustGetLogger("flightsurety.oracles")

// requestNamespace seeds the deterministic oracle request IDs.
var requestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("flightsurety/oracle-requests"))

// OracleConsensus registers oracles and turns their reports into one
// authoritative flight status per request.
type OracleConsensus struct {
	s          *txSession
	transferor Transferor
}

func NewOracleConsensus(s *txSession, transferor Transferor) *OracleConsensus {
	return &OracleConsensus{s: s, transferor: transferor}
}

// finalization describes a request that reached quorum in this transaction.
type finalization struct {
	Status  model.FlightStatus
	Applied bool
}

func requestID(topic int, k model.FlightKey) string {
	return uuid.NewSHA1(requestNamespace, []byte(strconv.Itoa(topic)+"|"+k.String())).String()
}

func joinTopics(topics []int) string {
	parts := make([]string, len(topics))
	for i, t := range topics {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ",")
}

func (c *OracleConsensus) getOracle(id string) (*model.Oracle, string, error) {
	key, err := oracleKey(c.s.ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create oracle key for '%s': %w", id, err)
	}
	var o model.Oracle
	found, err := c.s.view.get(key, &o)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &o, key, nil
}

func (c *OracleConsensus) requireOracle(id string) (*model.Oracle, error) {
	o, _, err := c.getOracle(id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegisteredOracle, id)
	}
	return o, nil
}

func (c *OracleConsensus) getRequest(topic int, k model.FlightKey) (*model.OracleRequest, string, error) {
	key, err := requestKey(c.s.ctx, topic, k)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request key for topic %d on '%s': %w", topic, k, err)
	}
	var r model.OracleRequest
	found, err := c.s.view.get(key, &r)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &r, key, nil
}

// registerOracle takes the fee into escrow and assigns fresh topics.
// Registering again pays again and replaces the topics.
func (c *OracleConsensus) registerOracle(caller string, fee decimal.Decimal) ([]int, error) {
	if fee.LessThan(c.s.rules.registrationFee) {
		return nil, fmt.Errorf("%w: paid %s, requires %s", ErrInadequateFee, fee, c.s.rules.registrationFee)
	}
	existing, key, err := c.getOracle(caller)
	if err != nil {
		return nil, err
	}
	if err := NewTreasury(c.s.view, c.s.now).deposit(caller, fee); err != nil {
		return nil, err
	}
	topics, err := c.s.drawTopics(caller, c.s.rules.TopicsPerOracle, c.s.rules.TopicSpace)
	if err != nil {
		return nil, err
	}
	o := model.Oracle{ObjectType: oracleObjectType, ID: caller, Topics: topics, Fee: fee.String(), RegisteredAt: c.s.now}
	if err := c.s.view.put(key, o); err != nil {
		return nil, err
	}
	c.s.emit(EventOracleRegistered, map[string]string{
		"account": caller,
		"indexes": joinTopics(topics),
	})
	if existing != nil {
		oracleLogger.Infof("Oracle '%s' re-registered with topics %v (was %v)", caller, topics, existing.Topics)
	} else {
		oracleLogger.Infof("Oracle '%s' registered with topics %v", caller, topics)
	}
	return topics, nil
}

// fetchFlightStatus opens a request for k on a freshly drawn topic. An
// open request on that topic is left as is; a closed one is reopened.
func (c *OracleConsensus) fetchFlightStatus(caller string, k model.FlightKey) (*model.OracleRequest, error) {
	topics, err := c.s.drawTopics(caller, 1, c.s.rules.TopicSpace)
	if err != nil {
		return nil, err
	}
	topic := topics[0]
	req, key, err := c.getRequest(topic, k)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.Open {
		req = &model.OracleRequest{
			ObjectType: requestObjectType, RequestID: requestID(topic, k), Topic: topic,
			Designator: k.Designator, ScheduledAt: k.ScheduledAt, Requester: caller,
			Open: true, Responses: map[string][]string{}, FinalStatus: model.StatusUnknown, OpenedAt: c.s.now,
		}
		if err := c.s.view.put(key, req); err != nil {
			return nil, err
		}
		oracleLogger.Infof("Opened request %s for '%s' on topic %d", req.RequestID, k, topic)
	} else {
		oracleLogger.Debugf("Request %s for '%s' on topic %d is already open", req.RequestID, k, topic)
	}
	c.s.emit(EventOracleRequest, map[string]string{
		"index":     strconv.Itoa(topic),
		"flight":    k.Designator,
		"timestamp": strconv.FormatInt(k.ScheduledAt, 10),
		"requestId": req.RequestID,
	})
	return req, nil
}

// submitResponse records one oracle report. When a status reaches quorum
// the request closes and, if the flight is still unknown, its status is
// set and late-flight credits are issued. It returns nil until quorum.
func (c *OracleConsensus) submitResponse(caller string, topic int, k model.FlightKey, status model.FlightStatus) (*finalization, error) {
	o, err := c.requireOracle(caller)
	if err != nil {
		return nil, err
	}
	if !o.HasTopic(topic) {
		return nil, fmt.Errorf("%w: topic %d not assigned to '%s'", ErrIndexMismatch, topic, caller)
	}
	req, key, err := c.getRequest(topic, k)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.Open {
		return nil, fmt.Errorf("%w: topic %d on '%s'", ErrRequestClosed, topic, k)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status code %d", ErrInvalidArgument, int(status))
	}
	if req.HasResponseFrom(caller) {
		return nil, fmt.Errorf("%w: '%s' on request %s", ErrDuplicateResponse, caller, req.RequestID)
	}

	if req.Responses == nil {
		req.Responses = map[string][]string{}
	}
	code := strconv.Itoa(int(status))
	req.Responses[code] = append(req.Responses[code], caller)
	c.s.emit(EventOracleReport, map[string]string{
		"flight":    k.Designator,
		"timestamp": strconv.FormatInt(k.ScheduledAt, 10),
		"status":    code,
		"oracle":    caller,
	})
	oracleLogger.Debugf("Oracle '%s' reported %s for '%s' on topic %d", caller, status, k, topic)

	if len(req.Responses[code]) < c.s.rules.Quorum {
		return nil, c.s.view.put(key, req)
	}

	req.Open = false
	req.FinalStatus = status
	req.ClosedAt = c.s.now
	if err := c.s.view.put(key, req); err != nil {
		return nil, err
	}
	applied, err := NewFlightRegistry(c.s).setStatus(k, status)
	if err != nil {
		return nil, err
	}
	if applied {
		if _, err := NewInsuranceLedger(c.s, c.transferor).creditOnDelay(k, status); err != nil {
			return nil, err
		}
	}
	c.s.emit(EventFlightStatusInfo, map[string]string{
		"flight":    k.Designator,
		"timestamp": strconv.FormatInt(k.ScheduledAt, 10),
		"status":    code,
		"applied":   strconv.FormatBool(applied),
	})
	oracleLogger.Infof("Request %s closed with %s (applied=%t)", req.RequestID, status, applied)
	return &finalization{Status: status, Applied: applied}, nil
}
