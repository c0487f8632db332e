package contract

import (
	"fmt"
	"strconv"

	"flightsurety/model"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/shopspring/decimal"
)

var airlineLogger = flogging.MustGetLogger("flightsurety.airlines")

// AirlineRegistry handles airline admission and the stake each airline
// deposits (the funding ledger).
type AirlineRegistry struct {
	s *txSession
}

func NewAirlineRegistry(s *txSession) *AirlineRegistry {
	return &AirlineRegistry{s: s}
}

// get returns the airline record for id, or nil when none exists.
func (r *AirlineRegistry) get(id string) (*model.Airline, string, error) {
	key, err := airlineKey(r.s.ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create airline key for '%s': %w", id, err)
	}
	var a model.Airline
	found, err := r.s.view.get(key, &a)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &a, key, nil
}

func (r *AirlineRegistry) stats() (model.AirlineStats, error) {
	var st model.AirlineStats
	_, err := r.s.view.getConfig(configAirlineStats, &st)
	return st, err
}

// requireRegistered returns the record of a registered airline.
func (r *AirlineRegistry) requireRegistered(id string) (*model.Airline, string, error) {
	a, key, err := r.get(id)
	if err != nil {
		return nil, "", err
	}
	if a == nil || !a.Registered {
		return nil, "", fmt.Errorf("%w: '%s'", ErrCallerNotRegisteredAirline, id)
	}
	return a, key, nil
}

// requireFunded fails unless the airline's stake meets the minimum.
func (r *AirlineRegistry) requireFunded(a *model.Airline) error {
	ok, err := r.isFunded(a)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: '%s' has funded %s of %s", ErrInsufficientFunding, a.ID, a.Funded, r.s.rules.minFunding)
	}
	return nil
}

func (r *AirlineRegistry) isFunded(a *model.Airline) (bool, error) {
	funded, err := storedAmount(a.Funded)
	if err != nil {
		return false, err
	}
	return funded.GreaterThanOrEqual(r.s.rules.minFunding), nil
}

// requireParticipant returns the caller's record when it is a registered,
// funded airline.
func (r *AirlineRegistry) requireParticipant(id string) (*model.Airline, error) {
	a, _, err := r.requireRegistered(id)
	if err != nil {
		return nil, err
	}
	if err := r.requireFunded(a); err != nil {
		return nil, err
	}
	return a, nil
}

// seedGenesis registers the first airline. Only InitLedger calls it.
func (r *AirlineRegistry) seedGenesis(id string) error {
	_, key, err := r.get(id)
	if err != nil {
		return err
	}
	a := model.Airline{
		ObjectType: airlineObjectType, ID: id, Registered: true, Genesis: true,
		Votes: []string{}, Funded: "0", RegisteredBy: r.s.caller,
		RegisteredAt: r.s.now, LastUpdatedAt: r.s.now,
	}
	if err := r.s.view.put(key, a); err != nil {
		return err
	}
	if err := r.s.view.putConfig(configAirlineStats, model.AirlineStats{RegisteredCount: 1}); err != nil {
		return err
	}
	r.s.emit(EventAirlineRegistered, map[string]string{"account": id})
	airlineLogger.Infof("Genesis airline '%s' registered", id)
	return nil
}

// register admits candidate directly while fewer than the threshold are
// registered. Above it, caller's call counts as a vote and the candidate is
// admitted once votes reach the configured fraction of registered airlines.
func (r *AirlineRegistry) register(caller, candidate string) error {
	voter, _, err := r.requireRegistered(caller)
	if err != nil {
		return err
	}
	if !voter.Genesis {
		funded, err := r.isFunded(voter)
		if err != nil {
			return err
		}
		if !funded {
			return fmt.Errorf("%w: '%s' has funded %s of %s", ErrCallerNotRegisteredAirline, caller, voter.Funded, r.s.rules.minFunding)
		}
	}

	target, key, err := r.get(candidate)
	if err != nil {
		return err
	}
	if target != nil && target.Registered {
		return fmt.Errorf("%w: '%s'", ErrAirlineAlreadyRegistered, candidate)
	}
	if target == nil {
		target = &model.Airline{ObjectType: airlineObjectType, ID: candidate, Votes: []string{}, Funded: "0"}
	}
	st, err := r.stats()
	if err != nil {
		return err
	}

	if st.RegisteredCount < r.s.rules.AdmitDirectThreshold {
		return r.admit(target, key, caller, st)
	}

	if target.HasVoteFrom(caller) {
		return fmt.Errorf("%w: '%s' already voted for '%s'", ErrDuplicateVote, caller, candidate)
	}
	target.Votes = append(target.Votes, caller)
	votes := len(target.Votes)
	r.s.emit(EventAirlineVoted, map[string]string{
		"account":    candidate,
		"voter":      caller,
		"votedCount": strconv.Itoa(votes),
	})
	airlineLogger.Infof("Airline '%s' voted for '%s' (%d of %d registered)", caller, candidate, votes, st.RegisteredCount)

	if votes*r.s.rules.VoteDenominator >= st.RegisteredCount*r.s.rules.VoteNumerator {
		return r.admit(target, key, caller, st)
	}
	target.LastUpdatedAt = r.s.now
	return r.s.view.put(key, target)
}

func (r *AirlineRegistry) admit(a *model.Airline, key, by string, st model.AirlineStats) error {
	a.Registered = true
	a.Votes = []string{}
	a.RegisteredBy = by
	a.RegisteredAt = r.s.now
	a.LastUpdatedAt = r.s.now
	if err := r.s.view.put(key, a); err != nil {
		return err
	}
	st.RegisteredCount++
	if err := r.s.view.putConfig(configAirlineStats, st); err != nil {
		return err
	}
	r.s.emit(EventAirlineRegistered, map[string]string{"account": a.ID})
	airlineLogger.Infof("Airline '%s' registered by '%s'; %d airlines registered", a.ID, by, st.RegisteredCount)
	return nil
}

// fund moves amount from the caller's wallet into escrow and adds it to
// the caller's stake.
func (r *AirlineRegistry) fund(caller string, amount decimal.Decimal) error {
	a, key, err := r.requireRegistered(caller)
	if err != nil {
		return err
	}
	funded, err := storedAmount(a.Funded)
	if err != nil {
		return err
	}
	if err := NewTreasury(r.s.view, r.s.now).deposit(caller, amount); err != nil {
		return err
	}
	total := funded.Add(amount)
	a.Funded = total.String()
	a.LastUpdatedAt = r.s.now
	if err := r.s.view.put(key, a); err != nil {
		return err
	}
	r.s.emit(EventAirlineFunded, map[string]string{
		"account":     caller,
		"deposit":     amount.String(),
		"totalFunded": total.String(),
	})
	airlineLogger.Infof("Airline '%s' deposited %s (total %s)", caller, amount, total)
	return nil
}

// fundedEnough reports whether id is an airline whose stake meets the minimum.
func (r *AirlineRegistry) fundedEnough(id string) (bool, error) {
	a, _, err := r.get(id)
	if err != nil || a == nil {
		return false, err
	}
	return r.isFunded(a)
}
