package contract

import (
	"fmt"
	"strconv"

	"flightsurety/model"
)

// OperationalGate is the owner-controlled pause switch.
type OperationalGate struct {
	s *txSession
}

func NewOperationalGate(s *txSession) *OperationalGate {
	return &OperationalGate{s: s}
}

func (g *OperationalGate) state() (model.OperatingState, error) {
	var st model.OperatingState
	if _, err := g.s.view.getConfig(configOperational, &st); err != nil {
		return st, err
	}
	return st, nil
}

func (g *OperationalGate) owner() (string, error) {
	var owner string
	found, err := g.s.view.getConfig(configOwner, &owner)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotInitialized
	}
	return owner, nil
}

// requireOperational is the first check of every mutating entry point.
func (g *OperationalGate) requireOperational() error {
	st, err := g.state()
	if err != nil {
		return err
	}
	if !st.Operational {
		return ErrNotOperational
	}
	return nil
}

// requireOwner fails unless caller is the contract owner.
func (g *OperationalGate) requireOwner(caller string) error {
	owner, err := g.owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return fmt.Errorf("%w: '%s'", ErrCallerNotOwner, caller)
	}
	return nil
}

// setOperatingStatus is owner-only and not gated so a paused contract can
// be resumed. Setting the current value is a no-op.
func (g *OperationalGate) setOperatingStatus(caller string, mode bool) error {
	if err := g.requireOwner(caller); err != nil {
		return err
	}
	st, err := g.state()
	if err != nil {
		return err
	}
	if st.Operational == mode {
		logger.Debugf("Operating status already %t", mode)
		return nil
	}
	next := model.OperatingState{Operational: mode, ChangedBy: caller, LastUpdatedAt: g.s.now}
	if err := g.s.view.putConfig(configOperational, next); err != nil {
		return err
	}
	g.s.emit(EventOperatingStatusChanged, map[string]string{
		"operational": strconv.FormatBool(mode),
		"changedBy":   caller,
	})
	logger.Infof("Operating status changed to %t by '%s'", mode, caller)
	return nil
}
