// Package positions maintains a stock's aggregate holding (shares and
// weighted-average cost) from its BUY/SELL history.
//
// A Position keeps three all-time running sums instead of the (shares, avg)
// pair alone: bought shares, buy cost (price*shares+commission over BUYs) and
// sold shares. Shares and average cost are derived from them. Applying or
// reversing a trade is O(1), and because the sums are exactly what Recalculate
// accumulates, the incrementally maintained position always equals a full
// recompute from history, whatever order creates, edits and deletes happen in.
package positions

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
)

// Entry is the part of a transaction that affects a position
type Entry struct {
	Type       domain.TransactionType
	Price      decimal.Decimal
	Shares     decimal.Decimal
	Commission decimal.Decimal
}

// Cost is price*shares+commission, the amount a BUY adds to the cost basis
func (e Entry) Cost() decimal.Decimal {
	return e.Price.Mul(e.Shares).Add(e.Commission)
}

// Position is a stock's holding derived from its transactions
type Position struct {
	BoughtShares decimal.Decimal
	BuyCost      decimal.Decimal
	SoldShares   decimal.Decimal
}

// Shares is the current holding. A history that sold more than it bought
// yields zero, matching the full recompute.
func (p Position) Shares() decimal.Decimal {
	net := p.BoughtShares.Sub(p.SoldShares)
	if !net.IsPositive() {
		return decimal.Zero
	}
	return net
}

// AvgCost is total buy cost over total bought shares while anything is held,
// zero otherwise. Partial sells leave it unchanged.
func (p Position) AvgCost() decimal.Decimal {
	if !p.BoughtShares.Sub(p.SoldShares).IsPositive() || !p.BoughtShares.IsPositive() {
		return decimal.Zero
	}
	return p.BuyCost.Div(p.BoughtShares)
}

// net is bought minus sold without clamping; negative only mid-update.
func (p Position) net() decimal.Decimal {
	return p.BoughtShares.Sub(p.SoldShares)
}

// Recalculate rebuilds a position from the full transaction history.
// O(n); used to reconcile stored positions, never on the mutation path.
func Recalculate(entries []Entry) Position {
	var p Position
	for _, e := range entries {
		p = add(p, e)
	}
	return p
}

// Apply adds a new transaction's effect. A SELL larger than the current
// holding fails with a validation error and leaves p untouched.
func Apply(p Position, e Entry) (Position, error) {
	if err := validateEntry(e); err != nil {
		return p, err
	}
	if e.Type == domain.TransactionSell && e.Shares.GreaterThan(p.net()) {
		return p, domain.Validation("insufficient shares: selling %s but only %s held",
			e.Shares.String(), clampZero(p.net()).String())
	}
	return add(p, e), nil
}

// Reverse removes a recorded transaction's effect. Reversing a BUY whose
// shares have since been sold would drive the holding negative, which a
// persisted position may never be; Reverse rejects that.
func Reverse(p Position, e Entry) (Position, error) {
	next := subtract(p, e)
	if next.net().IsNegative() {
		return p, domain.Validation("cannot remove %s of %s shares: only %s held",
			e.Type, e.Shares.String(), clampZero(p.net()).String())
	}
	return next, nil
}

// Replace swaps a recorded transaction for its edited version on the same
// stock. The end state equals Reverse(old) followed by Apply(new); the reversed
// intermediate may dip below zero (e.g. shrinking an old BUY that was partly
// sold) as long as the final holding does not.
func Replace(p Position, old, updated Entry) (Position, error) {
	if err := validateEntry(updated); err != nil {
		return p, err
	}

	reversed := subtract(p, old)
	if updated.Type == domain.TransactionSell && updated.Shares.GreaterThan(reversed.net()) {
		return p, domain.Validation("insufficient shares: selling %s but only %s held",
			updated.Shares.String(), clampZero(reversed.net()).String())
	}

	next := add(reversed, updated)
	if next.net().IsNegative() {
		return p, domain.Validation("update would leave %s shares held", next.net().String())
	}
	return next, nil
}

func add(p Position, e Entry) Position {
	switch e.Type {
	case domain.TransactionBuy:
		p.BoughtShares = p.BoughtShares.Add(e.Shares)
		p.BuyCost = p.BuyCost.Add(e.Cost())
	case domain.TransactionSell:
		p.SoldShares = p.SoldShares.Add(e.Shares)
	}
	return p
}

func subtract(p Position, e Entry) Position {
	switch e.Type {
	case domain.TransactionBuy:
		p.BoughtShares = p.BoughtShares.Sub(e.Shares)
		p.BuyCost = p.BuyCost.Sub(e.Cost())
	case domain.TransactionSell:
		p.SoldShares = p.SoldShares.Sub(e.Shares)
	}
	return p
}

func validateEntry(e Entry) error {
	if !e.Type.Valid() {
		return domain.Validation("invalid transaction type %q", e.Type)
	}
	if !e.Price.IsPositive() {
		return domain.Validation("price must be greater than 0")
	}
	if !e.Shares.IsPositive() {
		return domain.Validation("shares must be greater than 0")
	}
	if e.Commission.IsNegative() {
		return domain.Validation("commission must not be negative")
	}
	return nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
