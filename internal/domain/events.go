/**
 * @description
 * This file defines the event payloads the service publishes to RabbitMQ.
 * Change events drive the live feeds (every mutating write announces which
 * collection moved, and feeds re-run their queries); domain events carry the
 * business facts for sibling services.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collection names, shared between the store schema, change events and feed
// routing keys.
const (
	CollectionInvestors          = "users"
	CollectionTransactions       = "transactions"
	CollectionWithdrawalRequests = "withdrawalRequests"
	CollectionCommissions        = "commissions"
	CollectionConversations      = "conversations"
	CollectionAffiliateMessages  = "affiliateMessages"
)

// ChangeEvent announces that a document in a collection changed. ScopeID
// narrows the announcement to one investor or conversation so feeds only
// re-fetch when their own slice of the data moved.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	ScopeID    string    `json:"scope_id,omitempty"`
	DocumentID string    `json:"document_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// WithdrawalProcessedEvent is published when a request reaches a terminal
// primary status.
type WithdrawalProcessedEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	InvestorID  string    `json:"investor_id"`
	Amount      int64     `json:"amount"`
	Decision    string    `json:"decision"`
	ProcessedBy string    `json:"processed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// CommissionEarnedEvent is published alongside the commission record created
// at approval.
type CommissionEarnedEvent struct {
	CommissionID     uuid.UUID `json:"commission_id"`
	WithdrawalID     uuid.UUID `json:"withdrawal_id"`
	InvestorID       string    `json:"investor_id"`
	CommissionAmount int64     `json:"commission_amount"`
	Timestamp        time.Time `json:"timestamp"`
}

// TransactionRecordedEvent is published on every ledger append.
type TransactionRecordedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	InvestorID    string    `json:"investor_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// MessageAppendedEvent is published on every message append.
type MessageAppendedEvent struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Timestamp      time.Time `json:"timestamp"`
}
