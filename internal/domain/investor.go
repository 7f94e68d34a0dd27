/**
 * @description
 * This file defines the investor-facing domain models for the backoffice-service.
 * Investors are the `users` documents with role 'investor'; their identity id is
 * shared with the external identity provider, so the service never creates or
 * deletes identities, it only maintains the back-office projection (balance,
 * status, flags, trading profile).
 *
 * @notes
 * - `CurrentBalance` is stored as `int64` in the smallest currency unit (cents)
 *   to avoid floating-point inaccuracies with financial data.
 * - Investors are never hard-deleted; removal requests only move
 *   `AccountStatus` to a review state.
 */

package domain

import "time"

// Investor account statuses. The set is open-ended on the store side; these are
// the values the service itself reads and writes.
const (
	AccountStatusActive         = "Active"
	AccountStatusDeletionReview = "Deletion Request Under Review"
	AccountStatusSuspended      = "Suspended"
)

// AccountFlags carries the administrative flags an admin can toggle on an
// investor account. Unknown flags written by other tools are preserved by the
// store layer, not modeled here.
type AccountFlags struct {
	PolicyViolation    bool `json:"policyViolation"`
	PendingKyc         bool `json:"pendingKyc"`
	WithdrawalDisabled bool `json:"withdrawalDisabled"`
}

// TradingData is the investor's trading profile as captured at onboarding.
type TradingData struct {
	PositionsPerDay int      `json:"positionsPerDay"`
	Pairs           []string `json:"pairs"`
	Platform        string   `json:"platform"`
	Leverage        string   `json:"leverage"`
	Currency        string   `json:"currency"`
}

// Investor represents one investor account document in the `users` collection.
type Investor struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Country        string       `json:"country"`
	CurrentBalance int64        `json:"current_balance"` // in cents
	AccountStatus  string       `json:"account_status"`
	AccountFlags   AccountFlags `json:"account_flags"`
	TradingData    TradingData  `json:"trading_data"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// WithdrawalsAllowed reports whether the account is currently permitted to
// submit withdrawal requests.
func (i *Investor) WithdrawalsAllowed() bool {
	return !i.AccountFlags.WithdrawalDisabled && i.AccountStatus == AccountStatusActive
}
