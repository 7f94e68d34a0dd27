/**
 * @description
 * This file implements the withdrawal workflow: the one-way state machine a
 * request moves through from submission to a terminal decision, the
 * independent W-8BEN tax-form sub-status, and the commission derived when a
 * request is approved.
 *
 * Key invariants:
 * - Pending -> Approved and Pending -> Rejected are the only primary
 *   transitions; anything out of a terminal state fails with
 *   ErrInvalidTransition.
 * - Exactly one commission exists per approved request; the derivation is
 *   amount x 15% with the rate stored on the record. The decision and the
 *   commission are written in one store transaction, so no approval can land
 *   without its commission.
 * - The tax-form sub-status evolves independently of the primary status and
 *   may be set in either primary state.
 * - Rejection performs no balance reversal; the terminal status is the only
 *   record of it.
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
)

var (
	// ErrInvalidTransition marks an attempted move out of a terminal
	// withdrawal state.
	ErrInvalidTransition = errors.New("withdrawal request is already in a terminal state")

	ErrInvalidDecision      = errors.New("decision must be Approved or Rejected")
	ErrInvalidTaxFormStatus = errors.New("tax form status must be approved or rejected")
	ErrWithdrawalsDisabled  = errors.New("withdrawals are disabled for this account")
)

const withdrawalSubmitScope = "withdrawal_submit"

// SubmitWithdrawal creates a request in Pending. The W-8BEN sub-status is
// supplied by the caller per policy; empty defaults to not_required.
func (s *Service) SubmitWithdrawal(ctx context.Context, investorID, investorName string, amount int64, w8benStatus string) (*domain.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if w8benStatus == "" {
		w8benStatus = domain.W8BENNotRequired
	}
	if !domain.ValidW8BENStatus(w8benStatus) {
		return nil, fmt.Errorf("unknown w8ben status %q", w8benStatus)
	}

	if err := s.consumeLimit(ctx, withdrawalSubmitScope, investorID, s.limits.WithdrawalSubmitsPerMinute); err != nil {
		return nil, err
	}

	inv, err := s.repo.FindInvestorByID(ctx, investorID)
	if err != nil {
		if errors.Is(err, store.ErrInvestorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load investor %s: %w", investorID, err)
	}
	if !inv.WithdrawalsAllowed() {
		return nil, ErrWithdrawalsDisabled
	}
	if investorName == "" {
		investorName = inv.Name
	}

	now := time.Now()
	req := &domain.WithdrawalRequest{
		ID:           uuid.New(),
		InvestorID:   investorID,
		InvestorName: investorName,
		Amount:       amount,
		Status:       domain.WithdrawalStatusPending,
		Date:         now.Format(domain.LedgerDateLayout),
		W8BENStatus:  w8benStatus,
		CreatedAt:    now,
	}
	if err := s.repo.InsertWithdrawalRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to submit withdrawal request for investor %s: %w", investorID, err)
	}
	log.Printf("level=info component=service msg=\"withdrawal submitted\" request_id=%s investor_id=%s amount=%d", req.ID, investorID, amount)

	s.publishChange(ctx, domain.CollectionWithdrawalRequests, investorID, req.ID.String())
	return req, nil
}

// ProcessWithdrawal stamps a terminal decision onto a pending request. An
// approval additionally records the approval date and synchronously derives
// exactly one commission. Both transitions are one-way: processing a request
// already in a terminal state fails with ErrInvalidTransition.
func (s *Service) ProcessWithdrawal(ctx context.Context, requestID uuid.UUID, decision, processedBy string, reason *string) (*domain.WithdrawalRequest, error) {
	if decision != domain.WithdrawalStatusApproved && decision != domain.WithdrawalStatusRejected {
		return nil, ErrInvalidDecision
	}

	req, err := s.repo.FindWithdrawalRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrWithdrawalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load withdrawal request %s: %w", requestID, err)
	}
	if req.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, requestID, req.Status)
	}

	now := time.Now()
	params := store.DecisionParams{
		Status:      decision,
		ProcessedBy: processedBy,
		ProcessedAt: now,
		Reason:      reason,
	}
	var commission *domain.Commission
	if decision == domain.WithdrawalStatusApproved {
		approvalDate := now.Format(domain.LedgerDateLayout)
		params.ApprovalDate = &approvalDate
		c := domain.DeriveCommission(req, now)
		commission = &c
	}

	// The decision and the commission commit in one store transaction: a
	// transient failure rolls both back and leaves the request Pending, so
	// the admin can retry.
	if err := s.repo.ProcessWithdrawalDecision(ctx, requestID, params, commission); err != nil {
		if errors.Is(err, store.ErrWithdrawalAlreadyDecided) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, requestID)
		}
		return nil, fmt.Errorf("failed to process withdrawal request %s: %w", requestID, err)
	}

	req.Status = decision
	req.ProcessedBy = &processedBy
	req.ProcessedAt = &now
	req.ApprovalDate = params.ApprovalDate
	req.Reason = reason
	log.Printf("level=info component=service msg=\"withdrawal processed\" request_id=%s decision=%s processed_by=%s", requestID, decision, processedBy)

	s.publishChange(ctx, domain.CollectionWithdrawalRequests, req.InvestorID, requestID.String())
	s.publishEvent(ctx, "withdrawal.processed", domain.WithdrawalProcessedEvent{
		RequestID:   requestID,
		InvestorID:  req.InvestorID,
		Amount:      req.Amount,
		Decision:    decision,
		ProcessedBy: processedBy,
		Timestamp:   now,
	})

	if commission != nil {
		log.Printf("level=info component=service msg=\"commission earned\" commission_id=%s withdrawal_id=%s amount=%d", commission.ID, requestID, commission.CommissionAmount)
		s.publishChange(ctx, domain.CollectionCommissions, req.InvestorID, commission.ID.String())
		s.publishEvent(ctx, "commission.earned", domain.CommissionEarnedEvent{
			CommissionID:     commission.ID,
			WithdrawalID:     requestID,
			InvestorID:       req.InvestorID,
			CommissionAmount: commission.CommissionAmount,
			Timestamp:        now,
		})
	}
	return req, nil
}

// SetTaxFormStatus mutates only the W-8BEN sub-status and its
// timestamp/reason fields. It is independent of the primary status and may be
// called in either primary state.
func (s *Service) SetTaxFormStatus(ctx context.Context, requestID uuid.UUID, status, processedBy string, reason *string) (*domain.WithdrawalRequest, error) {
	if status != domain.W8BENApproved && status != domain.W8BENRejected {
		return nil, ErrInvalidTaxFormStatus
	}

	req, err := s.repo.FindWithdrawalRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrWithdrawalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load withdrawal request %s: %w", requestID, err)
	}

	now := time.Now()
	params := store.TaxFormParams{Status: status, ProcessedBy: processedBy}
	if status == domain.W8BENApproved {
		params.ApprovedAt = &now
	} else {
		params.RejectionReason = reason
	}
	if err := s.repo.UpdateW8BENStatus(ctx, requestID, params); err != nil {
		return nil, fmt.Errorf("failed to update tax form status for withdrawal %s: %w", requestID, err)
	}
	log.Printf("level=info component=service msg=\"tax form status updated\" request_id=%s w8ben_status=%s processed_by=%s", requestID, status, processedBy)

	req.W8BENStatus = status
	req.W8BENApprovedAt = params.ApprovedAt
	req.W8BENRejectionReason = params.RejectionReason

	s.publishChange(ctx, domain.CollectionWithdrawalRequests, req.InvestorID, requestID.String())
	return req, nil
}

// withdrawalsQuery builds the admin review queue view: every request,
// descending by submission date.
func (s *Service) withdrawalsQuery(investorID string) feed.Query[domain.WithdrawalRequest] {
	return feed.Query[domain.WithdrawalRequest]{
		Collection: domain.CollectionWithdrawalRequests,
		ScopeID:    investorID,
		FetchOrdered: func(ctx context.Context) ([]domain.WithdrawalRequest, error) {
			if investorID == "" {
				return s.repo.ListWithdrawalRequests(ctx, true)
			}
			return s.repo.ListWithdrawalRequestsByInvestor(ctx, investorID, true)
		},
		FetchUnordered: func(ctx context.Context) ([]domain.WithdrawalRequest, error) {
			if investorID == "" {
				return s.repo.ListWithdrawalRequests(ctx, false)
			}
			return s.repo.ListWithdrawalRequestsByInvestor(ctx, investorID, false)
		},
		Less: func(a, b domain.WithdrawalRequest) bool {
			if a.Date != b.Date {
				return a.Date > b.Date // "YYYY-MM-DD" compares lexically
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
	}
}

// ListWithdrawals returns requests most recent first; empty investorID means
// the full admin queue.
func (s *Service) ListWithdrawals(ctx context.Context, investorID string) ([]domain.WithdrawalRequest, error) {
	return feed.Fetch(ctx, s.withdrawalsQuery(investorID))
}

// SubscribeWithdrawals opens a live feed over the request queue.
func (s *Service) SubscribeWithdrawals(ctx context.Context, investorID string, callback func([]domain.WithdrawalRequest)) (func(), error) {
	return feed.Subscribe(ctx, s.notifier, s.withdrawalsQuery(investorID), callback)
}

// ListCommissions returns the commissions earned on one investor's
// withdrawals, most recent first.
func (s *Service) ListCommissions(ctx context.Context, investorID string) ([]domain.Commission, error) {
	return feed.Fetch(ctx, feed.Query[domain.Commission]{
		Collection: domain.CollectionCommissions,
		ScopeID:    investorID,
		FetchOrdered: func(ctx context.Context) ([]domain.Commission, error) {
			return s.repo.ListCommissionsByInvestor(ctx, investorID, true)
		},
		FetchUnordered: func(ctx context.Context) ([]domain.Commission, error) {
			return s.repo.ListCommissionsByInvestor(ctx, investorID, false)
		},
		Less: func(a, b domain.Commission) bool {
			if a.Date != b.Date {
				return a.Date > b.Date
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
	})
}
