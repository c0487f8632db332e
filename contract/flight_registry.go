package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var flightLogger = flogging.MustGetLogger("flightsurety.flights")

// FlightRegistry holds the flights published by funded airlines.
type FlightRegistry struct {
	s *txSession
}

func NewFlightRegistry(s *txSession) *FlightRegistry {
	return &FlightRegistry{s: s}
}

// get returns the flight at k, or nil when it is not registered.
func (r *FlightRegistry) get(k model.FlightKey) (*model.Flight, string, error) {
	key, err := flightKey(r.s.ctx, k)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create flight key for '%s': %w", k, err)
	}
	var f model.Flight
	found, err := r.s.view.get(key, &f)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &f, key, nil
}

func (r *FlightRegistry) register(caller string, k model.FlightKey) error {
	if _, err := NewAirlineRegistry(r.s).requireParticipant(caller); err != nil {
		return err
	}
	existing, key, err := r.get(k)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: '%s'", ErrFlightAlreadyExists, k)
	}
	f := model.Flight{
		ObjectType: flightObjectType, Designator: k.Designator, ScheduledAt: k.ScheduledAt,
		Airline: caller, Status: model.StatusUnknown, CreatedAt: r.s.now, LastUpdatedAt: r.s.now,
	}
	if err := r.s.view.put(key, f); err != nil {
		return err
	}
	r.s.emit(EventFlightRegistered, map[string]string{
		"airline":   caller,
		"flight":    k.Designator,
		"timestamp": strconv.FormatInt(k.ScheduledAt, 10),
	})
	flightLogger.Infof("Flight '%s' registered by '%s'", k, caller)
	return nil
}

// setStatus finalizes the flight's status. It reports false, without
// writing, when the flight is missing or already finalized.
func (r *FlightRegistry) setStatus(k model.FlightKey, status model.FlightStatus) (bool, error) {
	f, key, err := r.get(k)
	if err != nil {
		return false, err
	}
	if f == nil {
		flightLogger.Warningf("Quorum reached for unregistered flight '%s'; status %s not recorded", k, status)
		return false, nil
	}
	if f.Status != model.StatusUnknown {
		flightLogger.Warningf("Flight '%s' already finalized as %s; ignoring %s", k, f.Status, status)
		return false, nil
	}
	f.Status = status
	f.StatusTxID = r.s.txID
	f.LastUpdatedAt = r.s.now
	if err := r.s.view.put(key, f); err != nil {
		return false, err
	}
	flightLogger.Infof("Flight '%s' finalized as %s", k, status)
	return true, nil
}

// listFlights returns one page of flights in key order (designator, then
// scheduled time), optionally only those of airline. The airline filter
// applies within the page, so a page may hold fewer than pageSize flights.
func listFlights(ctx contractapi.TransactionContextInterface, airline string, pageSize int32, bookmark string) (*model.PaginatedFlightResponse, error) {
	it, metadata, err := ctx.GetStub().GetStateByPartialCompositeKeyWithPagination(flightObjectType, []string{}, pageSize, bookmark)
	if err != nil {
		return nil, fmt.Errorf("failed to get flights iterator: %w", err)
	}
	defer it.Close()

	flights := []model.Flight{}
	fetched := int32(0)
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate flights: %w", err)
		}
		var f model.Flight
		if err := json.Unmarshal(kv.Value, &f); err != nil {
			flightLogger.Warningf("Skipping unreadable flight at key '%s': %v", kv.Key, err)
			continue
		}
		if airline != "" && f.Airline != airline {
			continue
		}
		flights = append(flights, f)
		fetched++
	}
	return &model.PaginatedFlightResponse{
		Flights:      flights,
		NextBookmark: metadata.GetBookmark(),
		FetchedCount: fetched,
	}, nil
}
