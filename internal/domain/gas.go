package domain

import (
	"github.com/holiman/uint256"
)

// RebateRateBasis is the denominator of the storage rebate rate, in basis points.
const RebateRateBasis = 10000

// DefaultRebateRate applies when the gas report does not carry a rate.
const DefaultRebateRate = 9900

// ObjectStorage is one object's share of the transaction's storage accounting.
// NonRefundableFee is derived from StorageRebate, never read from input.
type ObjectStorage struct {
	ObjectID         string
	Size             uint64
	StorageCost      *uint256.Int
	StorageRebate    *uint256.Int
	NonRefundableFee *uint256.Int
}

// GasLedger is the aggregated cost and rebate accounting of the transaction.
type GasLedger struct {
	Payment         []ObjectRef
	Owner           string
	Price           *uint256.Int
	Budget          *uint256.Int
	ComputationCost *uint256.Int
	StorageCost     *uint256.Int
	StorageRebate   *uint256.Int
	RebateRate      uint64
	PerObject       []ObjectStorage
}

// NonRefundableFee computes floor(rebate * (10000 - rate) / 10000). Rates
// above the basis are clamped to it.
func NonRefundableFee(rebate *uint256.Int, rate uint64) *uint256.Int {
	if rebate == nil {
		return new(uint256.Int)
	}
	if rate > RebateRateBasis {
		rate = RebateRateBasis
	}
	fee := new(uint256.Int).Mul(rebate, uint256.NewInt(RebateRateBasis-rate))
	return fee.Div(fee, uint256.NewInt(RebateRateBasis))
}

// TotalNonRefundableFee sums the per-object derived fees.
func (g GasLedger) TotalNonRefundableFee() *uint256.Int {
	total := new(uint256.Int)
	for _, entry := range g.PerObject {
		if entry.NonRefundableFee != nil {
			total.Add(total, entry.NonRefundableFee)
		}
	}
	return total
}

// NetCost is computation + storage - rebate, floored at zero.
func (g GasLedger) NetCost() *uint256.Int {
	spent := new(uint256.Int)
	if g.ComputationCost != nil {
		spent.Add(spent, g.ComputationCost)
	}
	if g.StorageCost != nil {
		spent.Add(spent, g.StorageCost)
	}
	if g.StorageRebate == nil {
		return spent
	}
	if spent.Lt(g.StorageRebate) {
		return new(uint256.Int)
	}
	return spent.Sub(spent, g.StorageRebate)
}

// Storage returns the per-object entry for id.
func (g GasLedger) Storage(id string) (ObjectStorage, bool) {
	for _, entry := range g.PerObject {
		if entry.ObjectID == id {
			return entry, true
		}
	}
	return ObjectStorage{}, false
}
