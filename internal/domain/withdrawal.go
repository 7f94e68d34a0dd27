/**
 * @description
 * This file defines the withdrawal-request and commission models. A withdrawal
 * request moves through a one-way state machine (Pending -> Approved or
 * Pending -> Rejected) and carries an independent W-8BEN tax-form sub-status
 * that evolves on its own, regardless of the primary decision. Approving a
 * request derives exactly one commission record from its amount.
 *
 * @notes
 * - Terminal statuses never transition again; the workflow service enforces
 *   this with ErrInvalidTransition.
 * - Commission amounts are derived, never edited: the rate in force at
 *   approval time is stored on the record so later rate changes leave history
 *   untouched.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Primary withdrawal-request statuses.
const (
	WithdrawalStatusPending  = "Pending"
	WithdrawalStatusApproved = "Approved"
	WithdrawalStatusRejected = "Rejected"
)

// W-8BEN tax-form sub-statuses, tracked independently of the primary status.
const (
	W8BENNotRequired = "not_required"
	W8BENPending     = "pending"
	W8BENApproved    = "approved"
	W8BENRejected    = "rejected"
)

// WithdrawalRequest represents one row in the `withdrawalRequests` collection.
type WithdrawalRequest struct {
	ID                   uuid.UUID  `json:"id"`
	InvestorID           string     `json:"investor_id"`
	InvestorName         string     `json:"investor_name"`
	Amount               int64      `json:"amount"` // in cents
	Status               string     `json:"status"`
	Date                 string     `json:"date"` // "YYYY-MM-DD" submission date
	ApprovalDate         *string    `json:"approval_date,omitempty"`
	ProcessedBy          *string    `json:"processed_by,omitempty"`
	ProcessedAt          *time.Time `json:"processed_at,omitempty"`
	Reason               *string    `json:"reason,omitempty"`
	W8BENStatus          string     `json:"w8ben_status"`
	W8BENApprovedAt      *time.Time `json:"w8ben_approved_at,omitempty"`
	W8BENRejectionReason *string    `json:"w8ben_rejection_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// IsTerminal reports whether the primary status has reached a terminal state.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status == WithdrawalStatusApproved || w.Status == WithdrawalStatusRejected
}

// ValidW8BENStatus reports whether s is a recognized tax-form sub-status.
func ValidW8BENStatus(s string) bool {
	switch s {
	case W8BENNotRequired, W8BENPending, W8BENApproved, W8BENRejected:
		return true
	}
	return false
}

// CommissionRatePercent is the affiliate commission rate in force. It is
// stamped onto every commission record so historical records are unaffected
// by future rate changes.
const CommissionRatePercent = 15

// Commission statuses.
const CommissionStatusEarned = "Earned"

// Commission represents one row in the `commissions` collection, derived from
// an approved withdrawal.
type Commission struct {
	ID               uuid.UUID `json:"id"`
	InvestorID       string    `json:"investor_id"`
	InvestorName     string    `json:"investor_name"`
	WithdrawalID     uuid.UUID `json:"withdrawal_id"`
	WithdrawalAmount int64     `json:"withdrawal_amount"` // in cents
	CommissionRate   int       `json:"commission_rate"`   // percent
	CommissionAmount int64     `json:"commission_amount"` // in cents
	Date             string    `json:"date"`              // "YYYY-MM-DD"
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// DeriveCommission computes the commission earned on an approved withdrawal.
// The derivation is pure: same request, same output.
func DeriveCommission(req *WithdrawalRequest, now time.Time) Commission {
	return Commission{
		ID:               uuid.New(),
		InvestorID:       req.InvestorID,
		InvestorName:     req.InvestorName,
		WithdrawalID:     req.ID,
		WithdrawalAmount: req.Amount,
		CommissionRate:   CommissionRatePercent,
		CommissionAmount: req.Amount * CommissionRatePercent / 100,
		Date:             now.Format(LedgerDateLayout),
		Status:           CommissionStatusEarned,
		CreatedAt:        now,
	}
}
