package contract

import (
	"testing"

	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFlight(t *testing.T) {
	h := newHarness(t)
	h.genesis()
	require.NoError(t, h.registerAirline(airline1, airline2))

	assert.ErrorIs(t, h.registerFlight(stranger, flightND, flightNDDepAt), ErrCallerNotRegisteredAirline)
	assert.ErrorIs(t, h.registerFlight(airline1, flightND, flightNDDepAt), ErrInsufficientFunding)

	h.fund(airline1, "10")
	assert.ErrorIs(t, h.registerFlight(airline1, "", flightNDDepAt), ErrInvalidArgument)
	assert.ErrorIs(t, h.registerFlight(airline1, flightND, 0), ErrInvalidArgument)

	require.NoError(t, h.registerFlight(airline1, flightND, flightNDDepAt))
	require.Equal(t, []string{EventFlightRegistered}, h.eventNames())
	assert.Equal(t, map[string]string{"airline": airline1, "flight": flightND, "timestamp": "1700000000"}, h.events[0].Payload)

	assert.ErrorIs(t, h.registerFlight(airline1, flightND, flightNDDepAt), ErrFlightAlreadyExists)

	f := h.flight(flightND, flightNDDepAt)
	assert.Equal(t, airline1, f.Airline)
	assert.Equal(t, model.StatusUnknown, f.Status)
}

func TestListFlights(t *testing.T) {
	h := newHarness(t)
	h.genesis()
	require.NoError(t, h.registerAirline(airline1, airline2))
	h.fund(airline1, "10")
	h.fund(airline2, "10")

	require.NoError(t, h.registerFlight(airline2, "ZZ100", 1700000000))
	require.NoError(t, h.registerFlight(airline1, flightND, 1800000000))
	require.NoError(t, h.registerFlight(airline1, flightND, 900000000))

	page := func(pageSize, bookmark string) *model.PaginatedFlightResponse {
		t.Helper()
		var res *model.PaginatedFlightResponse
		require.NoError(t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
			var err error
			res, err = h.cc.GetFlights(ctx, pageSize, bookmark)
			return err
		}))
		return res
	}

	first := page("2", "")
	require.Len(t, first.Flights, 2)
	assert.Equal(t, int32(2), first.FetchedCount)
	assert.NotEmpty(t, first.NextBookmark)
	assert.Equal(t, model.FlightKey{Designator: flightND, ScheduledAt: 900000000}, first.Flights[0].Key())
	assert.Equal(t, model.FlightKey{Designator: flightND, ScheduledAt: 1800000000}, first.Flights[1].Key())

	second := page("2", first.NextBookmark)
	require.Len(t, second.Flights, 1)
	assert.Equal(t, "ZZ100", second.Flights[0].Designator)
	assert.Empty(t, second.NextBookmark)

	all := page("not-a-number", "")
	assert.Len(t, all.Flights, 3)
	assert.Empty(t, all.NextBookmark)

	var mine *model.PaginatedFlightResponse
	require.NoError(t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		mine, err = h.cc.GetFlightsByAirline(ctx, airline2, "", "")
		return err
	}))
	require.Len(t, mine.Flights, 1)
	assert.Equal(t, airline2, mine.Flights[0].Airline)
}

func TestParsePageSize(t *testing.T) {
	assert.Equal(t, int32(defaultPageSize), parsePageSize(""))
	assert.Equal(t, int32(defaultPageSize), parsePageSize("-3"))
	assert.Equal(t, int32(25), parsePageSize("25"))
	assert.Equal(t, int32(maxPageSize), parsePageSize("5000"))
}

func TestGetFlightUnknown(t *testing.T) {
	h := newHarness(t)
	h.genesis()
	err := h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.GetFlight(ctx, flightND, flightNDDepAt)
		return err
	})
	assert.ErrorIs(t, err, ErrFlightNotRegistered)
}
