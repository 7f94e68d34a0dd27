/**
 * @description
 * This file contains the HTTP handlers for the backoffice-service's API
 * endpoints. Handlers parse incoming requests, call the appropriate methods
 * on the application service, and write the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * Error responses distinguish absent documents (404, retrying will not help)
 * from failed writes (retryable statuses), per the service's propagation
 * policy.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 * - pkg/identityclient: Display-profile lookups for callers that omit them.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/investa/backoffice-service/internal/app"
	"github.com/investa/backoffice-service/internal/domain"
	"github.com/investa/backoffice-service/internal/store"
	"github.com/investa/backoffice-service/pkg/identityclient"
)

// ProfileLookup resolves a user's display profile from the identity service.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (*identityclient.Profile, error)
}

// BackofficeHandlers holds the application service that handlers will use.
type BackofficeHandlers struct {
	service  *app.Service
	identity ProfileLookup
}

// NewBackofficeHandlers creates the handler set for the router. The identity
// client may be nil, in which case callers must send their own profile data.
func NewBackofficeHandlers(service *app.Service, identity ProfileLookup) *BackofficeHandlers {
	return &BackofficeHandlers{service: service, identity: identity}
}

// resolveProfile fills in missing display data from the identity service.
// Lookup failures are logged and the provided values are kept as-is.
func (h *BackofficeHandlers) resolveProfile(ctx context.Context, userID, name, role string) (string, string) {
	if (name != "" && role != "") || h.identity == nil {
		return name, role
	}
	profile, err := h.identity.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("level=warn component=api msg=\"identity profile lookup failed\" user_id=%s err=%v", userID, err)
		return name, role
	}
	if name == "" {
		name = profile.DisplayName
	}
	if role == "" {
		role = profile.Role
	}
	return name, role
}

// BalanceHandler returns the authenticated investor's current balance.
func (h *BackofficeHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), investorID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to read balance")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"investor_id": investorID, "current_balance": balance})
}

// ListTransactionsHandler returns the investor's ledger, most recent first.
func (h *BackofficeHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	entries, err := h.service.ListTransactions(r.Context(), investorID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to list transactions")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": entries})
}

// ListCommissionsHandler returns the commissions earned on the investor's withdrawals.
func (h *BackofficeHandlers) ListCommissionsHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commissions, err := h.service.ListCommissions(r.Context(), investorID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to list commissions")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"commissions": commissions})
}

type submitWithdrawalRequest struct {
	InvestorName string `json:"investor_name"`
	Amount       int64  `json:"amount"` // in cents
	W8BENStatus  string `json:"w8ben_status,omitempty"`
}

// SubmitWithdrawalHandler creates a pending withdrawal request for the
// authenticated investor.
func (h *BackofficeHandlers) SubmitWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req submitWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.SubmitWithdrawal(r.Context(), investorID, req.InvestorName, req.Amount, req.W8BENStatus)
	if err != nil {
		h.writeServiceError(w, err, "Unable to submit withdrawal request")
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ListOwnWithdrawalsHandler returns the authenticated investor's requests.
func (h *BackofficeHandlers) ListOwnWithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.service.ListWithdrawals(r.Context(), investorID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to list withdrawal requests")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"withdrawal_requests": requests})
}

type resolveConversationRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ResolveConversationHandler returns the caller's conversation, creating it
// when absent. Calling twice yields the same conversation id.
func (h *BackofficeHandlers) ResolveConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req resolveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name, req.Role = h.resolveProfile(r.Context(), userID, req.Name, req.Role)
	if req.Role == "" {
		req.Role = domain.RoleAffiliate
	}

	conv, err := h.service.ResolveConversation(r.Context(), userID, req.Name, req.Role)
	if err != nil {
		h.writeServiceError(w, err, "Unable to resolve conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, conv)
}

// ListConversationsHandler returns the caller's inbox.
func (h *BackofficeHandlers) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversations, err := h.service.ListConversations(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to list conversations")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": conversations})
}

// ListMessagesHandler returns one conversation's thread in chronological order.
func (h *BackofficeHandlers) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := parseUUIDParam(w, r, "conversationID")
	if !ok {
		return
	}

	messages, err := h.service.ListMessages(r.Context(), conversationID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to list messages")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type appendMessageRequest struct {
	SenderName string     `json:"sender_name"`
	SenderRole string     `json:"sender_role"`
	Content    string     `json:"content"`
	ReplyTo    *uuid.UUID `json:"reply_to,omitempty"`
	Priority   string     `json:"priority,omitempty"`
}

// AppendMessageHandler appends a message and rolls the conversation's
// last-message projection forward.
func (h *BackofficeHandlers) AppendMessageHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	conversationID, ok := parseUUIDParam(w, r, "conversationID")
	if !ok {
		return
	}

	var req appendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.SenderName, req.SenderRole = h.resolveProfile(r.Context(), senderID, req.SenderName, req.SenderRole)
	if req.SenderRole == "" {
		req.SenderRole = domain.RoleAffiliate
	}

	msg, err := h.service.AppendMessage(r.Context(), conversationID, senderID, req.SenderName, req.SenderRole, req.Content, req.ReplyTo, req.Priority)
	if err != nil {
		h.writeServiceError(w, err, "Unable to send message")
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

// MarkMessagesReadHandler marks the counter-party's messages as read.
func (h *BackofficeHandlers) MarkMessagesReadHandler(w http.ResponseWriter, r *http.Request) {
	readerID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	conversationID, ok := parseUUIDParam(w, r, "conversationID")
	if !ok {
		return
	}

	updated, err := h.service.MarkMessagesRead(r.Context(), conversationID, readerID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to mark messages read")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

// --- Admin surface (internal key protected) ---

type processWithdrawalRequest struct {
	Decision    string  `json:"decision"`
	ProcessedBy string  `json:"processed_by"`
	Reason      *string `json:"reason,omitempty"`
}

// ProcessWithdrawalHandler stamps a terminal decision onto a pending request.
func (h *BackofficeHandlers) ProcessWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseUUIDParam(w, r, "requestID")
	if !ok {
		return
	}

	var req processWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	processed, err := h.service.ProcessWithdrawal(r.Context(), requestID, req.Decision, req.ProcessedBy, req.Reason)
	if err != nil {
		h.writeServiceError(w, err, "Unable to process withdrawal request")
		return
	}
	h.writeJSON(w, http.StatusOK, processed)
}

type taxFormStatusRequest struct {
	Status      string  `json:"status"`
	ProcessedBy string  `json:"processed_by"`
	Reason      *string `json:"reason,omitempty"`
}

// TaxFormStatusHandler mutates only the W-8BEN sub-status of a request.
func (h *BackofficeHandlers) TaxFormStatusHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseUUIDParam(w, r, "requestID")
	if !ok {
		return
	}

	var req taxFormStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.SetTaxFormStatus(r.Context(), requestID, req.Status, req.ProcessedBy, req.Reason)
	if err != nil {
		h.writeServiceError(w, err, "Unable to update tax form status")
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ListWithdrawalQueueHandler returns the full admin review queue.
func (h *BackofficeHandlers) ListWithdrawalQueueHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListWithdrawals(r.Context(), "")
	if err != nil {
		h.writeServiceError(w, err, "Unable to list withdrawal requests")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"withdrawal_requests": requests})
}

type creditRequest struct {
	Amount  int64  `json:"amount"` // in cents
	ActorID string `json:"actor_id"`
}

// CreditInvestorHandler credits an investor balance and appends the matching
// ledger entry.
func (h *BackofficeHandlers) CreditInvestorHandler(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, newBalance, err := h.service.Credit(r.Context(), investorID, req.Amount, req.ActorID)
	if err != nil {
		h.writeServiceError(w, err, "Unable to credit investor")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transaction": entry, "new_balance": newBalance})
}

type accountStatusRequest struct {
	Status  string `json:"status"`
	ActorID string `json:"actor_id"`
}

// AccountStatusHandler flags an investor account.
func (h *BackofficeHandlers) AccountStatusHandler(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")

	var req accountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetAccountStatus(r.Context(), investorID, req.Status, req.ActorID); err != nil {
		h.writeServiceError(w, err, "Unable to update account status")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type accountFlagsRequest struct {
	Flags   domain.AccountFlags `json:"flags"`
	ActorID string              `json:"actor_id"`
}

// AccountFlagsHandler replaces the administrative flags on an account.
func (h *BackofficeHandlers) AccountFlagsHandler(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")

	var req accountFlagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetAccountFlags(r.Context(), investorID, req.Flags, req.ActorID); err != nil {
		h.writeServiceError(w, err, "Unable to update account flags")
		return
	}
	h.writeJSON(w, http.StatusOK, req.Flags)
}

// AUMHandler returns assets under management.
func (h *BackofficeHandlers) AUMHandler(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.AssetsUnderManagement(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Unable to compute assets under management")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"assets_under_management": total})
}

// --- helpers ---

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP statuses. Not-found reads
// come back 404 (retry will not help); failed writes come back with
// retryable statuses and the operation-specific message.
func (h *BackofficeHandlers) writeServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, store.ErrInvestorNotFound),
		errors.Is(err, store.ErrWithdrawalNotFound),
		errors.Is(err, store.ErrConversationNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "Withdrawal request is already in a terminal state")
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many requests; please wait and try again")
	case errors.Is(err, app.ErrWithdrawalsDisabled):
		h.writeError(w, http.StatusForbidden, "Withdrawals are disabled for this account")
	case errors.Is(err, app.ErrCounterpartyRequired):
		h.writeError(w, http.StatusUnprocessableEntity, "No conversation exists for this user")
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidDecision),
		errors.Is(err, app.ErrInvalidTaxFormStatus),
		errors.Is(err, app.ErrEmptyMessage):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		h.writeError(w, http.StatusBadGateway, message+": document store unavailable")
	default:
		log.Printf("level=error component=api msg=\"request failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, message)
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *BackofficeHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *BackofficeHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
