/**
 * @description
 * This file contains the core business logic for the backoffice-service. The
 * `Service` struct owns the account ledger: investor balances, the
 * append-only transaction log, and the account-status administration the
 * admin dashboard drives. The withdrawal workflow and the messaging directory
 * live in their own files on the same struct.
 *
 * Key features:
 * - Balance reads and credits with the ledger append kept consistent in one
 *   store transaction.
 * - Ledger views exposed through the change feed, so UI instances see updates
 *   pushed rather than polled.
 * - Publishes change notifications and domain events to RabbitMQ after every
 *   mutating write.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For document id generation.
 * - internal/domain, internal/feed, internal/store: Domain models, live
 *   feeds, and data access.
 * - pkg/rabbitmq: Event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/investa/backoffice-service/internal/domain"
	"github.com/investa/backoffice-service/internal/feed"
	"github.com/investa/backoffice-service/internal/store"
	"github.com/investa/backoffice-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrRateLimited   = errors.New("rate limit exceeded")
)

// RateLimiter is the slice of the redis limiter the service needs; nil-safe
// stubs satisfy it in tests.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Limits configures the per-minute write budgets enforced on investor-facing
// operations. Zero disables a limit.
type Limits struct {
	WithdrawalSubmitsPerMinute int
	MessageSendsPerMinute      int
}

// Service provides the core business logic for the back office. It holds no
// mutable process-wide state; the external store owns all durable data.
type Service struct {
	repo     store.Repository
	events   rabbitmq.Publisher
	notifier feed.Notifier
	limiter  RateLimiter
	limits   Limits

	// Fallback identity used when the designated admin account cannot be
	// resolved, so conversation creation never blocks on its absence.
	fallbackAdminID   string
	fallbackAdminName string
}

// NewService creates a new back-office service instance.
func NewService(repo store.Repository, events rabbitmq.Publisher, notifier feed.Notifier, fallbackAdminID, fallbackAdminName string) *Service {
	return &Service{
		repo:              repo,
		events:            events,
		notifier:          notifier,
		fallbackAdminID:   fallbackAdminID,
		fallbackAdminName: fallbackAdminName,
	}
}

// ConfigureRateLimiting attaches the distributed limiter; absent a limiter
// every budget check passes.
func (s *Service) ConfigureRateLimiting(limiter RateLimiter, limits Limits) {
	s.limiter = limiter
	s.limits = limits
}

func (s *Service) consumeLimit(ctx context.Context, scope, subject string, perMinute int) error {
	if s.limiter == nil || perMinute <= 0 {
		return nil
	}
	count, _, err := s.limiter.ConsumeRateLimit(ctx, scope, subject, perMinute, time.Minute)
	if err != nil {
		// The limiter is a hardening layer; its own outage must not block writes.
		log.Printf("level=warn component=service msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return nil
	}
	if count > perMinute {
		return ErrRateLimited
	}
	return nil
}

// publishChange announces a collection change. Publication failures are
// logged, not raised: the write already landed and one-shot readers stay
// correct; only remote live feeds miss a nudge.
func (s *Service) publishChange(ctx context.Context, collection, scopeID, documentID string) {
	if s.events == nil {
		return
	}
	event := domain.ChangeEvent{
		Collection: collection,
		ScopeID:    scopeID,
		DocumentID: documentID,
		Timestamp:  time.Now(),
	}
	if err := s.events.PublishChangeEvent(ctx, event); err != nil {
		log.Printf("level=warn component=service msg=\"change event publish failed\" collection=%s document_id=%s err=%v", collection, documentID, err)
	}
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, rabbitmq.ChangeExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"domain event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

// GetBalance returns the investor's current balance.
func (s *Service) GetBalance(ctx context.Context, investorID string) (int64, error) {
	inv, err := s.repo.FindInvestorByID(ctx, investorID)
	if err != nil {
		if errors.Is(err, store.ErrInvestorNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read balance for investor %s: %w", investorID, err)
	}
	return inv.CurrentBalance, nil
}

// GetInvestor returns the full investor document.
func (s *Service) GetInvestor(ctx context.Context, investorID string) (*domain.Investor, error) {
	inv, err := s.repo.FindInvestorByID(ctx, investorID)
	if err != nil {
		if errors.Is(err, store.ErrInvestorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load investor %s: %w", investorID, err)
	}
	return inv, nil
}

// Credit adds amount to the investor's balance and appends the matching
// Credit transaction. The store applies both in one transaction with the
// investor row locked, so concurrent credits serialize; the contract is still
// read-balance-in, new-balance-out.
func (s *Service) Credit(ctx context.Context, investorID string, amount int64, actorID string) (*domain.Transaction, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	now := time.Now()
	entry := &domain.Transaction{
		ID:          uuid.New(),
		InvestorID:  investorID,
		Type:        domain.TransactionTypeCredit,
		Amount:      amount,
		Date:        now.Format(domain.LedgerDateLayout),
		Status:      domain.TransactionStatusCompleted,
		Description: fmt.Sprintf("Balance credit by %s", actorID),
		CreatedAt:   now,
	}

	newBalance, err := s.repo.CreditInvestor(ctx, investorID, amount, entry)
	if err != nil {
		if errors.Is(err, store.ErrInvestorNotFound) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("failed to credit investor %s: %w", investorID, err)
	}
	log.Printf("level=info component=service msg=\"investor credited\" investor_id=%s amount=%d new_balance=%d actor=%s", investorID, amount, newBalance, actorID)

	s.publishChange(ctx, domain.CollectionInvestors, investorID, investorID)
	s.publishChange(ctx, domain.CollectionTransactions, investorID, entry.ID.String())
	s.publishEvent(ctx, "transaction.recorded", domain.TransactionRecordedEvent{
		TransactionID: entry.ID,
		InvestorID:    investorID,
		Type:          entry.Type,
		Amount:        amount,
		Timestamp:     now,
	})
	return entry, newBalance, nil
}

// RecordTransaction appends a ledger entry without touching the balance;
// callers are responsible for keeping balance and ledger consistent.
func (s *Service) RecordTransaction(ctx context.Context, entry *domain.Transaction) error {
	switch entry.Type {
	case domain.TransactionTypeDeposit, domain.TransactionTypeWithdrawal, domain.TransactionTypeEarnings, domain.TransactionTypeCredit:
	default:
		return fmt.Errorf("unknown transaction type %q", entry.Type)
	}
	if entry.Amount < 0 {
		return ErrInvalidAmount
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	if entry.Date == "" {
		entry.Date = now.Format(domain.LedgerDateLayout)
	}
	if entry.Status == "" {
		entry.Status = domain.TransactionStatusCompleted
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	if err := s.repo.InsertTransaction(ctx, entry); err != nil {
		return fmt.Errorf("failed to record transaction for investor %s: %w", entry.InvestorID, err)
	}

	s.publishChange(ctx, domain.CollectionTransactions, entry.InvestorID, entry.ID.String())
	s.publishEvent(ctx, "transaction.recorded", domain.TransactionRecordedEvent{
		TransactionID: entry.ID,
		InvestorID:    entry.InvestorID,
		Type:          entry.Type,
		Amount:        entry.Amount,
		Timestamp:     entry.CreatedAt,
	})
	return nil
}

// transactionsQuery builds the descending-by-date ledger view for one
// investor, with the unordered fallback sorting by the same key.
func (s *Service) transactionsQuery(investorID string) feed.Query[domain.Transaction] {
	return feed.Query[domain.Transaction]{
		Collection: domain.CollectionTransactions,
		ScopeID:    investorID,
		FetchOrdered: func(ctx context.Context) ([]domain.Transaction, error) {
			return s.repo.ListTransactionsByInvestor(ctx, investorID, true)
		},
		FetchUnordered: func(ctx context.Context) ([]domain.Transaction, error) {
			return s.repo.ListTransactionsByInvestor(ctx, investorID, false)
		},
		Less: func(a, b domain.Transaction) bool {
			ad, bd := a.LedgerDate(), b.LedgerDate()
			if !ad.Equal(bd) {
				return ad.After(bd)
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
	}
}

// ListTransactions returns the investor's ledger, most recent first.
func (s *Service) ListTransactions(ctx context.Context, investorID string) ([]domain.Transaction, error) {
	return feed.Fetch(ctx, s.transactionsQuery(investorID))
}

// SubscribeTransactions opens a live feed over the investor's ledger.
func (s *Service) SubscribeTransactions(ctx context.Context, investorID string, callback func([]domain.Transaction)) (func(), error) {
	return feed.Subscribe(ctx, s.notifier, s.transactionsQuery(investorID), callback)
}

// AssetsUnderManagement returns the sum of all investor balances.
func (s *Service) AssetsUnderManagement(ctx context.Context) (int64, error) {
	total, err := s.repo.SumInvestorBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to compute assets under management: %w", err)
	}
	return total, nil
}

// SetAccountStatus flags an investor account (accounts are never hard-deleted).
func (s *Service) SetAccountStatus(ctx context.Context, investorID, status, actorID string) error {
	if err := s.repo.UpdateAccountStatus(ctx, investorID, status); err != nil {
		if errors.Is(err, store.ErrInvestorNotFound) {
			return err
		}
		return fmt.Errorf("failed to update account status for investor %s: %w", investorID, err)
	}
	log.Printf("level=info component=service msg=\"account status updated\" investor_id=%s status=%q actor=%s", investorID, status, actorID)
	s.publishChange(ctx, domain.CollectionInvestors, investorID, investorID)
	return nil
}

// SetAccountFlags replaces the administrative flags on an investor account.
func (s *Service) SetAccountFlags(ctx context.Context, investorID string, flags domain.AccountFlags, actorID string) error {
	if err := s.repo.UpdateAccountFlags(ctx, investorID, flags); err != nil {
		if errors.Is(err, store.ErrInvestorNotFound) {
			return err
		}
		return fmt.Errorf("failed to update account flags for investor %s: %w", investorID, err)
	}
	log.Printf("level=info component=service msg=\"account flags updated\" investor_id=%s withdrawal_disabled=%t actor=%s", investorID, flags.WithdrawalDisabled, actorID)
	s.publishChange(ctx, domain.CollectionInvestors, investorID, investorID)
	return nil
}
