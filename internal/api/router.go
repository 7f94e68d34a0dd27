/**
 * @description
 * This file sets up the HTTP router for the backoffice-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and applies
 * the necessary middleware. Affiliate-facing routes require a verified JWT;
 * the admin surface requires the internal API key shared between back office
 * services.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BackofficeRoutes creates and returns a new router for the backoffice service.
func BackofficeRoutes(h *BackofficeHandlers, s *StreamHandlers, jwksURL, internalKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require affiliate authentication.
	r.Group(func(r chi.Router) {
		r.Use(IdentityAuthMiddleware(jwksURL))

		// Ledger endpoints
		r.Get("/balance", h.BalanceHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
		r.Get("/commissions", h.ListCommissionsHandler)

		// Withdrawal endpoints
		r.Post("/withdrawals", h.SubmitWithdrawalHandler)
		r.Get("/withdrawals", h.ListOwnWithdrawalsHandler)

		// Messaging endpoints
		r.Post("/conversations/resolve", h.ResolveConversationHandler)
		r.Get("/conversations", h.ListConversationsHandler)
		r.Get("/conversations/{conversationID}/messages", h.ListMessagesHandler)
		r.Post("/conversations/{conversationID}/messages", h.AppendMessageHandler)
		r.Post("/conversations/{conversationID}/read", h.MarkMessagesReadHandler)

		// Live feeds (server-sent events)
		r.Get("/feeds/transactions", s.TransactionFeedHandler)
		r.Get("/feeds/withdrawals", s.WithdrawalFeedHandler)
		r.Get("/feeds/conversations/{conversationID}/messages", s.MessageFeedHandler)
	})

	// Admin surface, protected by the shared internal API key.
	r.Route("/admin", func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalKey))

		r.Get("/withdrawals", h.ListWithdrawalQueueHandler)
		r.Post("/withdrawals/{requestID}/process", h.ProcessWithdrawalHandler)
		r.Post("/withdrawals/{requestID}/tax-form", h.TaxFormStatusHandler)

		r.Post("/investors/{investorID}/credit", h.CreditInvestorHandler)
		r.Put("/investors/{investorID}/status", h.AccountStatusHandler)
		r.Put("/investors/{investorID}/flags", h.AccountFlagsHandler)

		r.Get("/aum", h.AUMHandler)

		r.Get("/feeds/withdrawals", s.WithdrawalQueueFeedHandler)
	})

	return r
}
