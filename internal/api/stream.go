/**
 * @description
 * This file contains the server-sent events (SSE) handlers that expose live
 * result-set subscriptions over HTTP. Each connection delivers an initial
 * snapshot, then a fresh snapshot whenever a change notification arrives for
 * the watched collection. Delivery errors never surface to the client as
 * failures: the subscription is torn down when the client disconnects.
 *
 * @dependencies
 * - net/http: SSE is plain HTTP with a streaming content type and flushes.
 * - internal/app, internal/domain: Subscribe* operations backing each feed.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/investa/backoffice-service/internal/app"
	"github.com/investa/backoffice-service/internal/domain"
)

// StreamHandlers holds the application service used by the feed endpoints.
type StreamHandlers struct {
	service *app.Service
}

// NewStreamHandlers creates the SSE handler set for the router.
func NewStreamHandlers(service *app.Service) *StreamHandlers {
	return &StreamHandlers{service: service}
}

// sseWriter serializes snapshot writes onto a single SSE connection.
// Subscribe callbacks can fire concurrently with the initial delivery.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

// send writes one snapshot event. Errors are logged, not raised: a broken
// pipe means the client is gone and the request context will cancel.
func (s *sseWriter) send(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to encode feed snapshot\" event=%s err=%v", event, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := s.w.Write([]byte("event: " + event + "\ndata: " + string(payload) + "\n\n")); err != nil {
		return
	}
	s.flusher.Flush()
}

// close stops further writes. The handler calls it via defer so a straggling
// subscription callback never touches the ResponseWriter after the handler
// has returned.
func (s *sseWriter) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// TransactionFeedHandler streams the caller's ledger as it changes.
func (h *StreamHandlers) TransactionFeedHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer sse.close()

	cancel, err := h.service.SubscribeTransactions(r.Context(), investorID, func(snapshot []domain.Transaction) {
		sse.send("transactions", snapshot)
	})
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to open transaction feed\" investor_id=%s err=%v", investorID, err)
		return
	}
	defer cancel()

	<-r.Context().Done()
}

// WithdrawalFeedHandler streams the caller's own withdrawal requests.
func (h *StreamHandlers) WithdrawalFeedHandler(w http.ResponseWriter, r *http.Request) {
	investorID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer sse.close()

	cancel, err := h.service.SubscribeWithdrawals(r.Context(), investorID, func(snapshot []domain.WithdrawalRequest) {
		sse.send("withdrawal_requests", snapshot)
	})
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to open withdrawal feed\" investor_id=%s err=%v", investorID, err)
		return
	}
	defer cancel()

	<-r.Context().Done()
}

// WithdrawalQueueFeedHandler streams the full admin review queue.
func (h *StreamHandlers) WithdrawalQueueFeedHandler(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer sse.close()

	// Empty investor id subscribes to the unscoped queue.
	cancel, err := h.service.SubscribeWithdrawals(r.Context(), "", func(snapshot []domain.WithdrawalRequest) {
		sse.send("withdrawal_requests", snapshot)
	})
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to open withdrawal queue feed\" err=%v", err)
		return
	}
	defer cancel()

	<-r.Context().Done()
}

// MessageFeedHandler streams one conversation's thread in order.
func (h *StreamHandlers) MessageFeedHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetAuthenticatedUserID(r.Context()); !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	conversationID, ok := parseUUIDParam(w, r, "conversationID")
	if !ok {
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer sse.close()

	cancel, err := h.service.SubscribeMessages(r.Context(), conversationID, func(snapshot []domain.AffiliateMessage) {
		sse.send("messages", snapshot)
	})
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to open message feed\" conversation_id=%s err=%v", conversationID, err)
		return
	}
	defer cancel()

	<-r.Context().Done()
}
