/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the backoffice-service performs against the external document store.
 * By defining an interface, we decouple the ledger, workflow and messaging
 * logic from the concrete store implementation (PostgreSQL), making the code
 * modular and easy to test with stubs.
 *
 * @notes
 * - Ordered list methods take an `ordered` flag: true requests the store-side
 *   ordering (which needs a provisioned index and may fail with
 *   ErrIndexUnavailable), false requests the same filter without ordering so
 *   callers can sort in memory. The feed package owns that fallback.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For document ids.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/investa/backoffice-service/internal/domain"
)

var (
	ErrInvestorNotFound     = errors.New("investor not found")
	ErrAdminNotFound        = errors.New("admin account not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists for participant pair")

	// ErrWithdrawalAlreadyDecided marks a decision write that lost to an
	// earlier one: the request was already terminal when the row lock was
	// acquired.
	ErrWithdrawalAlreadyDecided = errors.New("withdrawal request already decided")

	// ErrIndexUnavailable marks an ordered query the store refused because
	// the supporting index has not been provisioned. Always recovered
	// locally by the feed fallback, never surfaced to callers.
	ErrIndexUnavailable = errors.New("ordering index unavailable")

	// ErrStoreUnavailable marks network or permission failures talking to
	// the store.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// DecisionParams carries the fields stamped onto a withdrawal request when an
// admin processes it.
type DecisionParams struct {
	Status       string
	ProcessedBy  string
	ProcessedAt  time.Time
	ApprovalDate *string // set only for approvals
	Reason       *string
}

// TaxFormParams carries the fields stamped onto a withdrawal request's W-8BEN
// sub-status. Only the tax-form columns are touched.
type TaxFormParams struct {
	Status          string
	ProcessedBy     string
	ApprovedAt      *time.Time
	RejectionReason *string
}

// Repository defines the set of methods for interacting with the store.
type Repository interface {
	// Investor methods
	FindInvestorByID(ctx context.Context, investorID string) (*domain.Investor, error)
	CreditInvestor(ctx context.Context, investorID string, amount int64, entry *domain.Transaction) (newBalance int64, err error)
	UpdateAccountStatus(ctx context.Context, investorID string, status string) error
	UpdateAccountFlags(ctx context.Context, investorID string, flags domain.AccountFlags) error
	SumInvestorBalances(ctx context.Context) (int64, error)
	// FindAdminIdentity resolves the designated admin account by role.
	FindAdminIdentity(ctx context.Context) (id string, name string, err error)

	// Transaction methods
	InsertTransaction(ctx context.Context, entry *domain.Transaction) error
	ListTransactionsByInvestor(ctx context.Context, investorID string, ordered bool) ([]domain.Transaction, error)

	// Withdrawal request methods
	InsertWithdrawalRequest(ctx context.Context, req *domain.WithdrawalRequest) error
	FindWithdrawalRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error)
	// ProcessWithdrawalDecision stamps a terminal decision and, for an
	// approval, inserts the derived commission in the same transaction, so
	// the two writes commit or fail together. Returns
	// ErrWithdrawalAlreadyDecided when the request is already terminal.
	ProcessWithdrawalDecision(ctx context.Context, requestID uuid.UUID, params DecisionParams, commission *domain.Commission) error
	UpdateW8BENStatus(ctx context.Context, requestID uuid.UUID, params TaxFormParams) error
	ListWithdrawalRequests(ctx context.Context, ordered bool) ([]domain.WithdrawalRequest, error)
	ListWithdrawalRequestsByInvestor(ctx context.Context, investorID string, ordered bool) ([]domain.WithdrawalRequest, error)

	// Commission methods
	ListCommissionsByInvestor(ctx context.Context, investorID string, ordered bool) ([]domain.Commission, error)

	// Conversation methods
	FindConversationByParticipant(ctx context.Context, userID string) (*domain.Conversation, error)
	FindConversationByPair(ctx context.Context, participants [2]string) (*domain.Conversation, error)
	InsertConversation(ctx context.Context, conv *domain.Conversation) error
	UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) error
	ListConversationsByParticipant(ctx context.Context, userID string, ordered bool) ([]domain.Conversation, error)

	// Message methods
	InsertMessage(ctx context.Context, msg *domain.AffiliateMessage) error
	ListMessagesByConversation(ctx context.Context, conversationID uuid.UUID, ordered bool) ([]domain.AffiliateMessage, error)
	MarkConversationMessagesRead(ctx context.Context, conversationID uuid.UUID, readerID string) (int64, error)
}
