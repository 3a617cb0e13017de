package protocol

import (
	"github.com/shopspring/decimal"

	"seedpool/internal/config"
)

var bpsDenominator = decimal.NewFromInt(10000)

// mulDivFloor computes floor(a * num / den) exactly. All ledger share math
// goes through here so no path accidentally rounds up.
func mulDivFloor(a, num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	q, _ := a.Mul(num).QuoRem(den, 0)
	return q
}

// bpsShare computes floor(amount * bps / 10000).
func bpsShare(amount decimal.Decimal, bps int64) decimal.Decimal {
	return mulDivFloor(amount, decimal.NewFromInt(bps), bpsDenominator)
}

// YieldAllocation is one harvest's split. The legs always sum exactly to the
// harvested amount; whichever leg absorbs the flooring remainder depends on
// the policy.
type YieldAllocation struct {
	User     decimal.Decimal
	Seed     decimal.Decimal
	Treasury decimal.Decimal
	Pool     decimal.Decimal
}

// Total returns the sum of all legs.
func (a YieldAllocation) Total() decimal.Decimal {
	return a.User.Add(a.Seed).Add(a.Treasury).Add(a.Pool)
}

// AllocationPolicy is the split-and-allocate primitive behind both
// accounting variants. yield_split carves harvested yield three ways;
// deposit_split carves the seed cut out of each deposit and parks harvested
// yield in a pool until an admin distribution.
type AllocationPolicy interface {
	Name() string
	SplitDeposit(amount decimal.Decimal, p config.ProtocolConfig) (principal, seed decimal.Decimal)
	SplitYield(yield decimal.Decimal, p config.ProtocolConfig) YieldAllocation
}

// PolicyFor maps a configured policy name to its implementation. The name is
// validated at config load; unknown names fall back to yield_split.
func PolicyFor(name string) AllocationPolicy {
	if name == config.PolicyDepositSplit {
		return depositSplitPolicy{}
	}
	return yieldSplitPolicy{}
}

type yieldSplitPolicy struct{}

func (yieldSplitPolicy) Name() string { return config.PolicyYieldSplit }

func (yieldSplitPolicy) SplitDeposit(amount decimal.Decimal, _ config.ProtocolConfig) (decimal.Decimal, decimal.Decimal) {
	return amount, decimal.Zero
}

func (yieldSplitPolicy) SplitYield(yield decimal.Decimal, p config.ProtocolConfig) YieldAllocation {
	user := bpsShare(yield, p.UserYieldBps)
	seed := bpsShare(yield, p.SeedYieldBps)
	// Treasury absorbs the flooring remainder so the legs sum exactly.
	treasury := yield.Sub(user).Sub(seed)
	return YieldAllocation{User: user, Seed: seed, Treasury: treasury, Pool: decimal.Zero}
}

type depositSplitPolicy struct{}

func (depositSplitPolicy) Name() string { return config.PolicyDepositSplit }

func (depositSplitPolicy) SplitDeposit(amount decimal.Decimal, p config.ProtocolConfig) (decimal.Decimal, decimal.Decimal) {
	seed := bpsShare(amount, p.DepositSeedBps)
	return amount.Sub(seed), seed
}

func (depositSplitPolicy) SplitYield(yield decimal.Decimal, _ config.ProtocolConfig) YieldAllocation {
	return YieldAllocation{Pool: yield}
}
