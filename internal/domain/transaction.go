/**
 * @description
 * This file defines the ledger transaction model. A Transaction is the
 * append-only record of any balance-affecting event on an investor account;
 * rows are immutable once written and the investor's `CurrentBalance` is kept
 * consistent with them by the ledger service, not by the store.
 *
 * @notes
 * - Withdrawals are recorded with a positive `Amount`; the `Type` field alone
 *   distinguishes direction. `BalanceDelta` maps a type to its signed effect.
 * - `Date` is a calendar string ("YYYY-MM-DD") because the ledger is presented
 *   and sorted by business date, not by write time. `CreatedAt` keeps the
 *   server timestamp for auditing.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types. Credit-like types increase the balance; Withdrawal
// decreases it even though its amount is stored as a positive magnitude.
const (
	TransactionTypeDeposit    = "Deposit"
	TransactionTypeWithdrawal = "Withdrawal"
	TransactionTypeEarnings   = "Earnings"
	TransactionTypeCredit     = "Credit"
)

// Transaction statuses.
const (
	TransactionStatusCompleted = "Completed"
	TransactionStatusPending   = "Pending"
)

// LedgerDateLayout is the calendar-date format used by the `date` column.
const LedgerDateLayout = "2006-01-02"

// Transaction represents one row in the `transactions` collection.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	InvestorID  string    `json:"investor_id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"` // in cents, always >= 0
	Date        string    `json:"date"`   // "YYYY-MM-DD"
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// BalanceDelta returns the signed effect this transaction has on the owning
// investor's balance.
func (t *Transaction) BalanceDelta() int64 {
	if t.Type == TransactionTypeWithdrawal {
		return -t.Amount
	}
	return t.Amount
}

// LedgerDate parses the calendar-date string. Unparseable dates sort as the
// zero time, which places them last in a descending ledger view.
func (t *Transaction) LedgerDate() time.Time {
	d, err := time.Parse(LedgerDateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}
