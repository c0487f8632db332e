package contract

import (
	"fmt"
	"time"

	"flightsurety/model"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/shopspring/decimal"
)

var treasuryLogger = flogging.MustGetLogger("flightsurety.treasury")

// Treasury keeps the on-ledger wallets and the contract escrow. Value
// attached to a call moves wallet -> escrow; payouts move escrow -> wallet.
type Treasury struct {
	view *ledgerView
	now  time.Time
}

func NewTreasury(view *ledgerView, now time.Time) *Treasury {
	return &Treasury{view: view, now: now}
}

func (t *Treasury) wallet(owner string) (*model.Wallet, string, error) {
	key, err := walletKey(t.view.ctx, owner)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create wallet key for '%s': %w", owner, err)
	}
	w := &model.Wallet{}
	found, err := t.view.get(key, w)
	if err != nil {
		return nil, "", err
	}
	if !found {
		w = &model.Wallet{ObjectType: walletObjectType, Owner: owner, Balance: "0"}
	}
	return w, key, nil
}

// balance returns the balance of owner; a missing wallet holds zero.
func (t *Treasury) balance(owner string) (decimal.Decimal, error) {
	w, _, err := t.wallet(owner)
	if err != nil {
		return decimal.Zero, err
	}
	return storedAmount(w.Balance)
}

func (t *Treasury) adjust(owner string, delta decimal.Decimal) error {
	w, key, err := t.wallet(owner)
	if err != nil {
		return err
	}
	bal, err := storedAmount(w.Balance)
	if err != nil {
		return err
	}
	next := bal.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: '%s' holds %s, needs %s", ErrInsufficientBalance, owner, bal, delta.Neg())
	}
	w.Balance = next.String()
	w.LastUpdatedAt = t.now
	return t.view.put(key, w)
}

// credit adds newly issued value to owner's wallet.
func (t *Treasury) credit(owner string, amount decimal.Decimal) error {
	if err := t.adjust(owner, amount); err != nil {
		return err
	}
	treasuryLogger.Infof("Issued %s to '%s'", amount, owner)
	return nil
}

// transfer moves amount from one wallet to another. The debit is checked
// before anything is written.
func (t *Treasury) transfer(from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}
	bal, err := t.balance(from)
	if err != nil {
		return err
	}
	if bal.LessThan(amount) {
		return fmt.Errorf("%w: '%s' holds %s, needs %s", ErrInsufficientBalance, from, bal, amount)
	}
	if err := t.adjust(from, amount.Neg()); err != nil {
		return err
	}
	if err := t.adjust(to, amount); err != nil {
		return err
	}
	treasuryLogger.Debugf("Transferred %s from '%s' to '%s'", amount, from, to)
	return nil
}

// deposit moves value attached to a call from caller into escrow.
func (t *Treasury) deposit(caller string, amount decimal.Decimal) error {
	return t.transfer(caller, escrowAccount, amount)
}
