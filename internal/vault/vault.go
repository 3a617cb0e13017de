// Package vault defines the adapters to the external yield vault and the
// fungible token. The core never assumes a withdrawal is exact: every path
// validates the amount actually received against the amount requested and
// fails closed on shortfall.
package vault

import (
	"context"

	"github.com/shopspring/decimal"
)

// Vault wraps the external yield source's position held by the protocol.
type Vault interface {
	// Supply moves tokens from the protocol's liquid balance into the vault.
	Supply(ctx context.Context, amount decimal.Decimal) error
	// Withdraw pulls tokens back into the protocol's liquid balance and
	// reports the amount actually received, which may fall short of the
	// request under liquidity stress.
	Withdraw(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	// Balance reports the protocol's current vault position including any
	// accrued, not-yet-harvested yield.
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Token is the fungible-token collaborator. Transfer failures abort the
// enclosing operation.
type Token interface {
	// TransferFrom pulls a deposit from a user into the protocol.
	TransferFrom(ctx context.Context, from string, amount decimal.Decimal) error
	// Transfer pays out of the protocol's liquid balance to a recipient.
	Transfer(ctx context.Context, to string, amount decimal.Decimal) error
	// BalanceOf reports a holder's liquid token balance.
	BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error)
}

// ProtocolHolder is the holder identity used when querying the protocol's
// own liquid balance.
const ProtocolHolder = "protocol"
