package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDeriveCommission(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		want   int64
	}{
		{name: "round amount", amount: 1000, want: 150},
		{name: "floors fractional cents", amount: 999, want: 149},
		{name: "large amount", amount: 2500000, want: 375000},
	}

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &WithdrawalRequest{
				ID:           uuid.New(),
				InvestorID:   "inv_1",
				InvestorName: "Ada",
				Amount:       tt.amount,
			}
			c := DeriveCommission(req, now)
			if c.CommissionAmount != tt.want {
				t.Fatalf("expected commission %d, got %d", tt.want, c.CommissionAmount)
			}
			if c.CommissionRate != CommissionRatePercent {
				t.Fatalf("expected rate %d stamped, got %d", CommissionRatePercent, c.CommissionRate)
			}
			if c.WithdrawalID != req.ID {
				t.Fatal("expected the commission linked to its withdrawal")
			}
			if c.Date != "2026-08-30" {
				t.Fatalf("expected derivation date, got %q", c.Date)
			}
			if c.Status != CommissionStatusEarned {
				t.Fatalf("expected Earned status, got %q", c.Status)
			}
		})
	}
}

func TestWithdrawalRequestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: WithdrawalStatusPending, want: false},
		{status: WithdrawalStatusApproved, want: true},
		{status: WithdrawalStatusRejected, want: true},
	}

	for _, tt := range tests {
		req := &WithdrawalRequest{Status: tt.status}
		if got := req.IsTerminal(); got != tt.want {
			t.Fatalf("expected terminal=%t for %q, got %t", tt.want, tt.status, got)
		}
	}
}

func TestCanonicalParticipants(t *testing.T) {
	fromA, namesA := CanonicalParticipants("alpha", "Ada", "zeta", "Zoe")
	fromZ, namesZ := CanonicalParticipants("zeta", "Zoe", "alpha", "Ada")

	if fromA != fromZ {
		t.Fatalf("expected the same canonical pair from both sides, got %v and %v", fromA, fromZ)
	}
	if fromA != [2]string{"alpha", "zeta"} {
		t.Fatalf("expected lexicographic order, got %v", fromA)
	}
	if namesA != namesZ {
		t.Fatalf("expected names aligned identically from both sides, got %v and %v", namesA, namesZ)
	}
	if namesA != [2]string{"Ada", "Zoe"} {
		t.Fatalf("expected names following their ids, got %v", namesA)
	}
}

func TestTransactionBalanceDelta(t *testing.T) {
	tests := []struct {
		txType string
		amount int64
		want   int64
	}{
		{txType: TransactionTypeDeposit, amount: 1000, want: 1000},
		{txType: TransactionTypeCredit, amount: 1000, want: 1000},
		{txType: TransactionTypeEarnings, amount: 500, want: 500},
		{txType: TransactionTypeWithdrawal, amount: 1000, want: -1000},
	}

	for _, tt := range tests {
		tx := &Transaction{Type: tt.txType, Amount: tt.amount}
		if got := tx.BalanceDelta(); got != tt.want {
			t.Fatalf("expected delta %d for %q, got %d", tt.want, tt.txType, got)
		}
	}
}
