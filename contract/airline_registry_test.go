package contract

import (
	"testing"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectAdmissionBelowThreshold(t *testing.T) {
	h := newHarness(t)
	h.genesis()

	require.NoError(t, h.registerAirline(airline1, airline2))
	assert.Equal(t, []string{EventAirlineRegistered}, h.eventNames())
	assert.Equal(t, airline2, h.events[0].Payload["account"])

	require.NoError(t, h.registerAirline(airline1, airline3))
	require.NoError(t, h.registerAirline(airline1, airline4))
	assert.Equal(t, 4, h.registeredCount())

	a := h.airline(airline4)
	assert.True(t, a.Registered)
	assert.False(t, a.Genesis)
	assert.Equal(t, airline1, a.RegisteredBy)
}

func TestVotingAboveThreshold(t *testing.T) {
	h := newHarness(t)
	h.fourAirlines()

	require.NoError(t, h.registerAirline(airline1, airline5))
	assert.Equal(t, []string{EventAirlineVoted}, h.eventNames())
	assert.Equal(t, "1", h.events[0].Payload["votedCount"])
	assert.Equal(t, airline1, h.events[0].Payload["voter"])

	pending := h.airline(airline5)
	assert.False(t, pending.Registered)
	assert.Equal(t, []string{airline1}, pending.Votes)
	assert.Equal(t, 4, h.registeredCount())

	// airline2 is not the genesis airline and must be funded to vote.
	err := h.registerAirline(airline2, airline5)
	assert.ErrorIs(t, err, ErrCallerNotRegisteredAirline)
	assert.NotErrorIs(t, err, ErrInsufficientFunding)
	assert.Equal(t, []string{airline1}, h.airline(airline5).Votes)

	h.fund(airline2, "10")
	require.NoError(t, h.registerAirline(airline2, airline5))
	assert.Equal(t, []string{EventAirlineVoted, EventAirlineRegistered}, h.eventNames())

	admitted := h.airline(airline5)
	assert.True(t, admitted.Registered)
	assert.Empty(t, admitted.Votes)
	assert.Equal(t, airline2, admitted.RegisteredBy)
	assert.Equal(t, 5, h.registeredCount())
}

func TestDuplicateVoteRejected(t *testing.T) {
	h := newHarness(t)
	h.fourAirlines()
	require.NoError(t, h.registerAirline(airline1, airline5))

	assert.ErrorIs(t, h.registerAirline(airline1, airline5), ErrDuplicateVote)
	assert.Empty(t, h.events)
	assert.Equal(t, []string{airline1}, h.airline(airline5).Votes)
}

func TestRegisterAirlineRejections(t *testing.T) {
	h := newHarness(t)
	h.genesis()
	require.NoError(t, h.registerAirline(airline1, airline2))

	assert.ErrorIs(t, h.registerAirline(stranger, airline3), ErrCallerNotRegisteredAirline)
	assert.ErrorIs(t, h.registerAirline(airline1, airline2), ErrAirlineAlreadyRegistered)
	assert.ErrorIs(t, h.registerAirline(airline1, "  "), ErrInvalidArgument)
	assert.ErrorIs(t, h.registerAirline(airline2, airline3), ErrCallerNotRegisteredAirline, "a registered but unfunded voter")
	assert.Equal(t, 2, h.registeredCount())
}

func TestFundAirline(t *testing.T) {
	h := newHarness(t)
	h.genesis()
	require.NoError(t, h.registerAirline(airline1, airline2))

	assert.ErrorIs(t, h.fundAirline(airline2, "4"), ErrInsufficientBalance)
	assert.ErrorIs(t, h.fundAirline(airline2, "0"), ErrInvalidAmount)
	assert.ErrorIs(t, h.fundAirline(stranger, "1"), ErrCallerNotRegisteredAirline)

	h.issue(airline2, "12")
	require.NoError(t, h.fundAirline(airline2, "4"))
	require.Equal(t, []string{EventAirlineFunded}, h.eventNames())
	assert.Equal(t, "4", h.events[0].Payload["deposit"])
	assert.Equal(t, "4", h.events[0].Payload["totalFunded"])

	fundedEnough := func(id string) bool {
		var ok bool
		require.NoError(t, h.call(stranger, func(ctx contractapi.TransactionContextInterface) error {
			var err error
			ok, err = h.cc.FundedEnough(ctx, id)
			return err
		}))
		return ok
	}
	assert.False(t, fundedEnough(airline2))

	require.NoError(t, h.fundAirline(airline2, "6"))
	assert.Equal(t, "10", h.events[0].Payload["totalFunded"])
	assert.True(t, fundedEnough(airline2))
	assert.False(t, fundedEnough(stranger))

	assert.Equal(t, "2", h.balance(airline2))
	assert.Equal(t, "10", h.escrow())
	assert.Equal(t, "10", h.airline(airline2).Funded)
}
