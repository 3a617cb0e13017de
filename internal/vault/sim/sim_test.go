package sim

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"seedpool/internal/vault"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestSupplyAndWithdraw(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Fund(vault.ProtocolHolder, dec(1000))

	if err := s.Supply(ctx, dec(600)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(dec(600)) {
		t.Fatalf("vault balance = %s, want 600", balance)
	}

	if err := s.Supply(ctx, dec(500)); err == nil {
		t.Fatal("supply past liquid balance should fail")
	}

	received, err := s.Withdraw(ctx, dec(200))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !received.Equal(dec(200)) {
		t.Fatalf("received = %s, want 200", received)
	}
}

func TestWithdrawClampsToBalance(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Fund(vault.ProtocolHolder, dec(100))
	if err := s.Supply(ctx, dec(100)); err != nil {
		t.Fatalf("supply: %v", err)
	}

	received, err := s.Withdraw(ctx, dec(500))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !received.Equal(dec(100)) {
		t.Fatalf("received = %s, want the full balance of 100", received)
	}
}

func TestWithdrawHaircut(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Fund(vault.ProtocolHolder, dec(1000))
	if err := s.Supply(ctx, dec(1000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	s.SetHaircutBps(1000)

	received, err := s.Withdraw(ctx, dec(500))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !received.Equal(dec(450)) {
		t.Fatalf("received = %s, want 450 after 10%% haircut", received)
	}
}

func TestTokenTransfers(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Fund("0xalice", dec(300))

	if err := s.TransferFrom(ctx, "0xalice", dec(200)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if err := s.TransferFrom(ctx, "0xalice", dec(200)); err == nil {
		t.Fatal("transfer past balance should fail")
	}
	if err := s.Transfer(ctx, "0xbob", dec(150)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	got, err := s.BalanceOf(ctx, "0xbob")
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if !got.Equal(dec(150)) {
		t.Fatalf("bob balance = %s, want 150", got)
	}
	got, err = s.BalanceOf(ctx, vault.ProtocolHolder)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if !got.Equal(dec(50)) {
		t.Fatalf("protocol balance = %s, want 50", got)
	}
}
