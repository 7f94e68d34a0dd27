/**
 * @description
 * This file implements the conversation directory and the message log. The
 * directory resolves (or lazily creates) the unique two-party conversation
 * for an admin/affiliate pair; the log appends immutable, time-ordered
 * messages and rolls the conversation's last-message projection forward on
 * every append.
 *
 * Key invariants:
 * - At most one conversation exists per participant pair; resolve is
 *   idempotent, including under concurrent first calls from both parties
 *   (the store's unique pair index decides the winner and the loser re-reads).
 * - An affiliate-initiated resolve that cannot find the designated admin
 *   account substitutes a fixed fallback identity, so conversation creation
 *   never blocks on admin-account absence.
 * - Threads read ascending by timestamp; inboxes read most-recent-first.
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
	ErrEmptyMessage = errors.New("message content must not be empty")

	// ErrCounterpartyRequired marks an admin-initiated resolve with no
	// existing conversation; admins reply within conversations affiliates
	// open, they do not cold-start them through this path.
	ErrCounterpartyRequired = errors.New("no existing conversation and no counterparty to resolve")
)

// lastMessagePreviewRunes bounds the conversation's last-message projection.
const lastMessagePreviewRunes = 100

const messageSendScope = "message_send"

// ResolveConversation returns the id of the caller's conversation, creating
// it when absent. Calling twice for the same pair returns the same id both
// times.
func (s *Service) ResolveConversation(ctx context.Context, userID, userName, userRole string) (*domain.Conversation, error) {
	existing, err := s.repo.FindConversationByParticipant(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrConversationNotFound) {
		return nil, fmt.Errorf("failed to look up conversation for user %s: %w", userID, err)
	}

	if userRole != domain.RoleAffiliate {
		return nil, ErrCounterpartyRequired
	}

	adminID, adminName, err := s.repo.FindAdminIdentity(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrAdminNotFound) {
			return nil, fmt.Errorf("failed to resolve admin identity: %w", err)
		}
		log.Printf("level=warn component=service msg=\"admin account missing; using fallback identity\" fallback_id=%s", s.fallbackAdminID)
		adminID, adminName = s.fallbackAdminID, s.fallbackAdminName
	}

	participants, names := domain.CanonicalParticipants(userID, userName, adminID, adminName)
	now := time.Now()
	conv := &domain.Conversation{
		ID:               uuid.New(),
		Participants:     participants,
		ParticipantNames: names,
		LastMessage:      "",
		LastMessageTime:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = s.repo.InsertConversation(ctx, conv)
	if err == nil {
		log.Printf("level=info component=service msg=\"conversation created\" conversation_id=%s participants=%v", conv.ID, participants)
		s.publishChange(ctx, domain.CollectionConversations, "", conv.ID.String())
		return conv, nil
	}
	if errors.Is(err, store.ErrConversationExists) {
		// Lost the creation race; the winner's document is the conversation.
		winner, readErr := s.repo.FindConversationByPair(ctx, participants)
		if readErr != nil {
			return nil, fmt.Errorf("failed to re-read conversation after creation race: %w", readErr)
		}
		return winner, nil
	}
	return nil, fmt.Errorf("failed to create conversation for user %s: %w", userID, err)
}

// AppendMessage writes an immutable message row and updates the owning
// conversation's last-message projection. The store stamps a monotonically
// non-decreasing server timestamp.
func (s *Service) AppendMessage(ctx context.Context, conversationID uuid.UUID, senderID, senderName, senderRole, content string, replyTo *uuid.UUID, priority string) (*domain.AffiliateMessage, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if priority == "" {
		priority = domain.MessagePriorityNormal
	}

	if err := s.consumeLimit(ctx, messageSendScope, senderID, s.limits.MessageSendsPerMinute); err != nil {
		return nil, err
	}

	msg := &domain.AffiliateMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		SenderRole:     senderRole,
		Content:        content,
		ReplyTo:        replyTo,
		Priority:       priority,
		Status:         domain.MessageStatusSent,
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message to conversation %s: %w", conversationID, err)
	}

	preview := truncatePreview(content, lastMessagePreviewRunes)
	if err := s.repo.UpdateConversationLastMessage(ctx, conversationID, preview, msg.Timestamp); err != nil {
		// The message row is durable; a stale projection repairs itself on
		// the next append.
		log.Printf("level=warn component=service msg=\"last-message projection update failed\" conversation_id=%s err=%v", conversationID, err)
	}

	s.publishChange(ctx, domain.CollectionAffiliateMessages, conversationID.String(), msg.ID.String())
	s.publishChange(ctx, domain.CollectionConversations, "", conversationID.String())
	s.publishEvent(ctx, "message.appended", domain.MessageAppendedEvent{
		MessageID:      msg.ID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Timestamp:      msg.Timestamp,
	})
	return msg, nil
}

// truncatePreview bounds a preview by rune count, never splitting a rune.
func truncatePreview(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max])
}

// messagesQuery builds the ascending thread view for one conversation.
// Messages are the single entity read in ascending order.
func (s *Service) messagesQuery(conversationID uuid.UUID) feed.Query[domain.AffiliateMessage] {
	return feed.Query[domain.AffiliateMessage]{
		Collection: domain.CollectionAffiliateMessages,
		ScopeID:    conversationID.String(),
		FetchOrdered: func(ctx context.Context) ([]domain.AffiliateMessage, error) {
			return s.repo.ListMessagesByConversation(ctx, conversationID, true)
		},
		FetchUnordered: func(ctx context.Context) ([]domain.AffiliateMessage, error) {
			return s.repo.ListMessagesByConversation(ctx, conversationID, false)
		},
		Less: func(a, b domain.AffiliateMessage) bool {
			// Same-instant messages share a clamped timestamp; the
			// tie-break mirrors the store-side ordering.
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		},
	}
}

// ListMessages returns the conversation's thread in chronological order.
func (s *Service) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.AffiliateMessage, error) {
	return feed.Fetch(ctx, s.messagesQuery(conversationID))
}

// SubscribeMessages opens a live feed over one conversation's thread.
func (s *Service) SubscribeMessages(ctx context.Context, conversationID uuid.UUID, callback func([]domain.AffiliateMessage)) (func(), error) {
	return feed.Subscribe(ctx, s.notifier, s.messagesQuery(conversationID), callback)
}

// ListConversations returns the user's inbox, most recently active first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return feed.Fetch(ctx, feed.Query[domain.Conversation]{
		Collection: domain.CollectionConversations,
		FetchOrdered: func(ctx context.Context) ([]domain.Conversation, error) {
			return s.repo.ListConversationsByParticipant(ctx, userID, true)
		},
		FetchUnordered: func(ctx context.Context) ([]domain.Conversation, error) {
			return s.repo.ListConversationsByParticipant(ctx, userID, false)
		},
		Less: func(a, b domain.Conversation) bool {
			return a.LastMessageTime.After(b.LastMessageTime)
		},
	})
}

// MarkMessagesRead marks every message in the conversation not sent by the
// reader as read.
func (s *Service) MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, readerID string) (int64, error) {
	n, err := s.repo.MarkConversationMessagesRead(ctx, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read in conversation %s: %w", conversationID, err)
	}
	if n > 0 {
		s.publishChange(ctx, domain.CollectionAffiliateMessages, conversationID.String(), conversationID.String())
	}
	return n, nil
}
