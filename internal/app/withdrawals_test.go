package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/investa/backoffice-service/internal/domain"
	"github.com/investa/backoffice-service/internal/store"
)

type withdrawalRepoStub struct {
	store.Repository

	investor *domain.Investor
	request  *domain.WithdrawalRequest

	insertedRequest *domain.WithdrawalRequest

	decisionCalled     bool
	decisionParams     store.DecisionParams
	decisionCommission *domain.Commission
	decisionErr        error

	taxFormCalled bool
	taxFormParams store.TaxFormParams
}

func (s *withdrawalRepoStub) FindInvestorByID(ctx context.Context, investorID string) (*domain.Investor, error) {
	if s.investor == nil {
		return nil, store.ErrInvestorNotFound
	}
	return s.investor, nil
}

func (s *withdrawalRepoStub) InsertWithdrawalRequest(ctx context.Context, req *domain.WithdrawalRequest) error {
	s.insertedRequest = req
	return nil
}

func (s *withdrawalRepoStub) FindWithdrawalRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	if s.request == nil {
		return nil, store.ErrWithdrawalNotFound
	}
	return s.request, nil
}

func (s *withdrawalRepoStub) ProcessWithdrawalDecision(ctx context.Context, requestID uuid.UUID, params store.DecisionParams, commission *domain.Commission) error {
	if s.decisionErr != nil {
		return s.decisionErr
	}
	s.decisionCalled = true
	s.decisionParams = params
	s.decisionCommission = commission
	return nil
}

func (s *withdrawalRepoStub) UpdateW8BENStatus(ctx context.Context, requestID uuid.UUID, params store.TaxFormParams) error {
	s.taxFormCalled = true
	s.taxFormParams = params
	return nil
}

func pendingRequest(amount int64) *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		ID:           uuid.New(),
		InvestorID:   "inv_1",
		InvestorName: "Ada",
		Amount:       amount,
		Status:       domain.WithdrawalStatusPending,
		Date:         "2026-08-30",
		W8BENStatus:  domain.W8BENNotRequired,
	}
}

func TestSubmitWithdrawal_StartsPendingWithDefaultTaxFormStatus(t *testing.T) {
	repo := &withdrawalRepoStub{
		investor: &domain.Investor{ID: "inv_1", Name: "Ada", AccountStatus: domain.AccountStatusActive},
	}
	svc := &Service{repo: repo}

	req, err := svc.SubmitWithdrawal(context.Background(), "inv_1", "", 25000, "")
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if req.Status != domain.WithdrawalStatusPending {
		t.Fatalf("expected Pending status, got %q", req.Status)
	}
	if req.W8BENStatus != domain.W8BENNotRequired {
		t.Fatalf("expected not_required tax form status, got %q", req.W8BENStatus)
	}
	if req.InvestorName != "Ada" {
		t.Fatalf("expected investor name filled from account, got %q", req.InvestorName)
	}
	if repo.insertedRequest == nil {
		t.Fatal("expected the request to be persisted")
	}
}

func TestSubmitWithdrawal_BlockedWhenWithdrawalsDisabled(t *testing.T) {
	repo := &withdrawalRepoStub{
		investor: &domain.Investor{
			ID:            "inv_1",
			AccountStatus: domain.AccountStatusActive,
			AccountFlags:  domain.AccountFlags{WithdrawalDisabled: true},
		},
	}
	svc := &Service{repo: repo}

	_, err := svc.SubmitWithdrawal(context.Background(), "inv_1", "Ada", 25000, "")
	if !errors.Is(err, ErrWithdrawalsDisabled) {
		t.Fatalf("expected ErrWithdrawalsDisabled, got %v", err)
	}
	if repo.insertedRequest != nil {
		t.Fatal("did not expect a persisted request for a disabled account")
	}
}

func TestProcessWithdrawal_ApproveDerivesExactlyOneCommission(t *testing.T) {
	repo := &withdrawalRepoStub{request: pendingRequest(1000)}
	svc := &Service{repo: repo}

	processed, err := svc.ProcessWithdrawal(context.Background(), repo.request.ID, domain.WithdrawalStatusApproved, "admin_1", nil)
	if err != nil {
		t.Fatalf("expected approval to succeed, got %v", err)
	}
	if processed.Status != domain.WithdrawalStatusApproved {
		t.Fatalf("expected Approved status, got %q", processed.Status)
	}
	if processed.ApprovalDate == nil {
		t.Fatal("expected an approval date on the approved request")
	}
	if repo.decisionCommission == nil {
		t.Fatal("expected a commission record written with the decision")
	}
	if repo.decisionCommission.CommissionAmount != 150 {
		t.Fatalf("expected commission amount 150 on a 1000 withdrawal, got %d", repo.decisionCommission.CommissionAmount)
	}
	if repo.decisionCommission.CommissionRate != domain.CommissionRatePercent {
		t.Fatalf("expected commission rate %d stamped on the record, got %d", domain.CommissionRatePercent, repo.decisionCommission.CommissionRate)
	}
	if repo.decisionCommission.WithdrawalID != repo.request.ID {
		t.Fatal("expected the commission linked to the approved withdrawal")
	}
}

func TestProcessWithdrawal_FailedApprovalStaysRetryable(t *testing.T) {
	req := pendingRequest(1000)
	repo := &withdrawalRepoStub{request: req, decisionErr: store.ErrStoreUnavailable}
	svc := &Service{repo: repo}

	_, err := svc.ProcessWithdrawal(context.Background(), req.ID, domain.WithdrawalStatusApproved, "admin_1", nil)
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("expected the store failure to surface, got %v", err)
	}
	if req.Status != domain.WithdrawalStatusPending {
		t.Fatalf("expected the request to stay Pending after a failed decision, got %q", req.Status)
	}

	repo.decisionErr = nil
	processed, err := svc.ProcessWithdrawal(context.Background(), req.ID, domain.WithdrawalStatusApproved, "admin_1", nil)
	if err != nil {
		t.Fatalf("expected the retried approval to succeed, got %v", err)
	}
	if processed.Status != domain.WithdrawalStatusApproved {
		t.Fatalf("expected Approved status on retry, got %q", processed.Status)
	}
	if repo.decisionCommission == nil {
		t.Fatal("expected the retried approval to carry the commission")
	}
}

func TestProcessWithdrawal_LostDecisionRaceSurfacesInvalidTransition(t *testing.T) {
	req := pendingRequest(1000)
	repo := &withdrawalRepoStub{request: req, decisionErr: store.ErrWithdrawalAlreadyDecided}
	svc := &Service{repo: repo}

	_, err := svc.ProcessWithdrawal(context.Background(), req.ID, domain.WithdrawalStatusApproved, "admin_1", nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition when another decision won, got %v", err)
	}
}

func TestProcessWithdrawal_RejectRecordsReasonWithoutCommission(t *testing.T) {
	repo := &withdrawalRepoStub{request: pendingRequest(1000)}
	svc := &Service{repo: repo}
	reason := "insufficient documentation"

	processed, err := svc.ProcessWithdrawal(context.Background(), repo.request.ID, domain.WithdrawalStatusRejected, "admin_1", &reason)
	if err != nil {
		t.Fatalf("expected rejection to succeed, got %v", err)
	}
	if processed.Status != domain.WithdrawalStatusRejected {
		t.Fatalf("expected Rejected status, got %q", processed.Status)
	}
	if processed.ApprovalDate != nil {
		t.Fatal("did not expect an approval date on a rejected request")
	}
	if processed.Reason == nil || *processed.Reason != reason {
		t.Fatal("expected the rejection reason on the request")
	}
	if repo.decisionCommission != nil {
		t.Fatal("did not expect a commission for a rejected request")
	}
}

func TestProcessWithdrawal_TerminalStateNeverTransitionsAgain(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{name: "approved request", status: domain.WithdrawalStatusApproved},
		{name: "rejected request", status: domain.WithdrawalStatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pendingRequest(1000)
			req.Status = tt.status
			repo := &withdrawalRepoStub{request: req}
			svc := &Service{repo: repo}

			_, err := svc.ProcessWithdrawal(context.Background(), req.ID, domain.WithdrawalStatusApproved, "admin_1", nil)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if repo.decisionCalled {
				t.Fatal("did not expect a decision write against a terminal request")
			}
		})
	}
}

func TestProcessWithdrawal_RejectsUnknownDecision(t *testing.T) {
	repo := &withdrawalRepoStub{request: pendingRequest(1000)}
	svc := &Service{repo: repo}

	_, err := svc.ProcessWithdrawal(context.Background(), repo.request.ID, "Cancelled", "admin_1", nil)
	if !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
}

func TestSetTaxFormStatus_IndependentOfPrimaryStatus(t *testing.T) {
	req := pendingRequest(1000)
	req.Status = domain.WithdrawalStatusApproved // terminal primary state
	repo := &withdrawalRepoStub{request: req}
	svc := &Service{repo: repo}

	updated, err := svc.SetTaxFormStatus(context.Background(), req.ID, domain.W8BENApproved, "admin_1", nil)
	if err != nil {
		t.Fatalf("expected tax form update to succeed on a terminal request, got %v", err)
	}
	if updated.W8BENStatus != domain.W8BENApproved {
		t.Fatalf("expected approved tax form status, got %q", updated.W8BENStatus)
	}
	if updated.W8BENApprovedAt == nil {
		t.Fatal("expected an approval timestamp on the tax form")
	}
	if updated.Status != domain.WithdrawalStatusApproved {
		t.Fatal("expected the primary status untouched")
	}
}

func TestSetTaxFormStatus_RejectionKeepsReason(t *testing.T) {
	repo := &withdrawalRepoStub{request: pendingRequest(1000)}
	svc := &Service{repo: repo}
	reason := "form illegible"

	updated, err := svc.SetTaxFormStatus(context.Background(), repo.request.ID, domain.W8BENRejected, "admin_1", &reason)
	if err != nil {
		t.Fatalf("expected tax form rejection to succeed, got %v", err)
	}
	if updated.W8BENRejectionReason == nil || *updated.W8BENRejectionReason != reason {
		t.Fatal("expected the rejection reason on the tax form")
	}
	if !repo.taxFormCalled {
		t.Fatal("expected a tax form status write")
	}
}

func TestSetTaxFormStatus_RejectsNonTerminalTargets(t *testing.T) {
	repo := &withdrawalRepoStub{request: pendingRequest(1000)}
	svc := &Service{repo: repo}

	_, err := svc.SetTaxFormStatus(context.Background(), repo.request.ID, domain.W8BENPending, "admin_1", nil)
	if !errors.Is(err, ErrInvalidTaxFormStatus) {
		t.Fatalf("expected ErrInvalidTaxFormStatus, got %v", err)
	}
	if repo.taxFormCalled {
		t.Fatal("did not expect a tax form write for an invalid target status")
	}
}
