package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"flightsurety/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/shopspring/decimal"
)

var insuranceLogger = flogging.MustGetLogger("flightsurety.insurance")

// Transferor pays a withdrawn credit out of escrow to the passenger. It
// runs after the policy has been marked paid.
type Transferor interface {
	Transfer(ctx contractapi.TransactionContextInterface, payee string, amount decimal.Decimal) error
}

// InsuranceLedger holds passenger policies: premium escrow, credit on
// delay and withdrawal.
type InsuranceLedger struct {
	s          *txSession
	transferor Transferor
}

// NewInsuranceLedger builds the ledger; a nil transferor pays from the
// treasury escrow.
func NewInsuranceLedger(s *txSession, transferor Transferor) *InsuranceLedger {
	return &InsuranceLedger{s: s, transferor: transferor}
}

func (l *InsuranceLedger) get(k model.FlightKey, passenger string) (*model.Policy, string, error) {
	key, err := policyKey(l.s.ctx, k, passenger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create policy key for '%s' on '%s': %w", passenger, k, err)
	}
	var p model.Policy
	found, err := l.s.view.get(key, &p)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &p, key, nil
}

// buy escrows amount as premium for caller on flight k. Repeated purchases
// accumulate up to the premium cap.
func (l *InsuranceLedger) buy(caller string, k model.FlightKey, amount decimal.Decimal) error {
	f, _, err := NewFlightRegistry(l.s).get(k)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%w: '%s'", ErrFlightNotRegistered, k)
	}
	if f.Status != model.StatusUnknown {
		return fmt.Errorf("%w: '%s' is %s", ErrFlightStatusFinal, k, f.Status)
	}

	p, key, err := l.get(k, caller)
	if err != nil {
		return err
	}
	if p == nil {
		p = &model.Policy{
			ObjectType: policyObjectType, Passenger: caller, Designator: k.Designator,
			ScheduledAt: k.ScheduledAt, Premium: "0", CreditOwed: "0", PurchasedAt: l.s.now,
		}
	}
	premium, err := storedAmount(p.Premium)
	if err != nil {
		return err
	}
	total := premium.Add(amount)
	if total.GreaterThan(l.s.rules.premiumCap) {
		return fmt.Errorf("%w: %s + %s exceeds %s", ErrPremiumExceedsCap, premium, amount, l.s.rules.premiumCap)
	}
	if err := NewTreasury(l.s.view, l.s.now).deposit(caller, amount); err != nil {
		return err
	}
	p.Premium = total.String()
	p.LastUpdatedAt = l.s.now
	if err := l.s.view.put(key, p); err != nil {
		return err
	}
	l.s.emit(EventBuyInsurance, map[string]string{
		"account":   caller,
		"flight":    k.Designator,
		"timestamp": strconv.FormatInt(k.ScheduledAt, 10),
		"amount":    amount.String(),
	})
	insuranceLogger.Infof("Passenger '%s' insured '%s' for %s (premium now %s)", caller, k, amount, total)
	return nil
}

// creditOnDelay sets CreditOwed = premium x multiplier on every unpaid,
// uncredited policy of a late flight. It returns the number credited.
func (l *InsuranceLedger) creditOnDelay(k model.FlightKey, status model.FlightStatus) (int, error) {
	if !status.IsLate() {
		return 0, nil
	}
	it, err := l.s.ctx.GetStub().GetStateByPartialCompositeKey(policyObjectType, []string{k.Designator, formatScheduledAt(k.ScheduledAt)})
	if err != nil {
		return 0, fmt.Errorf("failed to get policies iterator for '%s': %w", k, err)
	}
	defer it.Close()

	credited := 0
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return credited, fmt.Errorf("failed to iterate policies for '%s': %w", k, err)
		}
		raw := kv.Value
		if pending, ok := l.s.view.writes[kv.Key]; ok {
			raw = pending
		}
		var p model.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return credited, fmt.Errorf("failed to unmarshal policy at '%s': %w", kv.Key, err)
		}
		owed, err := storedAmount(p.CreditOwed)
		if err != nil {
			return credited, err
		}
		if p.PaidOut || !owed.IsZero() {
			continue
		}
		premium, err := storedAmount(p.Premium)
		if err != nil {
			return credited, err
		}
		p.CreditOwed = premium.Mul(l.s.rules.payoutMultiplier).String()
		p.LastUpdatedAt = l.s.now
		if err := l.s.view.put(kv.Key, p); err != nil {
			return credited, err
		}
		credited++
		insuranceLogger.Infof("Credited %s to '%s' for late flight '%s'", p.CreditOwed, p.Passenger, k)
	}
	return credited, nil
}

// withdraw pays out the caller's credit on flight k. The policy is stored
// as paid before the transferor runs.
func (l *InsuranceLedger) withdraw(caller string, k model.FlightKey) (decimal.Decimal, error) {
	p, key, err := l.get(k, caller)
	if err != nil {
		return decimal.Zero, err
	}
	if p == nil || p.PaidOut {
		return decimal.Zero, fmt.Errorf("%w: '%s' on '%s'", ErrNoPayoutDue, caller, k)
	}
	owed, err := storedAmount(p.CreditOwed)
	if err != nil {
		return decimal.Zero, err
	}
	if !owed.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: '%s' on '%s'", ErrNoPayoutDue, caller, k)
	}

	p.PaidOut = true
	p.CreditOwed = "0"
	p.LastUpdatedAt = l.s.now
	if err := l.s.view.put(key, p); err != nil {
		return decimal.Zero, err
	}

	if l.transferor != nil {
		err = l.transferor.Transfer(l.s.ctx, caller, owed)
	} else {
		err = NewTreasury(l.s.view, l.s.now).transfer(escrowAccount, caller, owed)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("payout transfer failed: %w", err)
	}

	l.s.emit(EventPayoutWithdrawn, map[string]string{
		"account":   caller,
		"flight":    k.Designator,
		"timestamp": strconv.FormatInt(k.ScheduledAt, 10),
		"amount":    owed.String(),
	})
	insuranceLogger.Infof("Paid %s to '%s' for '%s'", owed, caller, k)
	return owed, nil
}
