/**
 * @description
 * This file defines the messaging models: the two-party conversation directory
 * entry and the immutable affiliate message rows scoped to it. Each
 * admin/affiliate pair owns at most one conversation; the directory resolves
 * or lazily creates it, and every message append rolls the conversation's
 * last-message projection forward.
 *
 * @notes
 * - Participants are stored in canonical (lexicographic) order so the unique
 *   pair constraint holds regardless of which side created the conversation.
 * - Messages read ascending by timestamp; threads are chronological, unlike
 *   ledgers and requests which read most-recent-first.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant roles.
const (
	RoleAdmin     = "admin"
	RoleAffiliate = "affiliate"
)

// Message delivery statuses.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Message priorities.
const (
	MessagePriorityNormal = "normal"
	MessagePriorityHigh   = "high"
)

// Conversation represents one row in the `conversations` collection.
type Conversation struct {
	ID               uuid.UUID `json:"id"`
	Participants     [2]string `json:"participants"`      // canonical order
	ParticipantNames [2]string `json:"participant_names"` // aligned with Participants
	LastMessage      string    `json:"last_message"`
	LastMessageTime  time.Time `json:"last_message_time"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CanonicalParticipants orders a participant pair so that the same two ids
// always produce the same array, whichever side initiates. Names follow their
// ids.
func CanonicalParticipants(idA, nameA, idB, nameB string) ([2]string, [2]string) {
	if idA <= idB {
		return [2]string{idA, idB}, [2]string{nameA, nameB}
	}
	return [2]string{idB, idA}, [2]string{nameB, nameA}
}

// AffiliateMessage represents one row in the `affiliateMessages` collection.
// Rows are immutable after creation apart from delivery-status updates.
type AffiliateMessage struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name"`
	SenderRole     string     `json:"sender_role"`
	Content        string     `json:"content"`
	ReplyTo        *uuid.UUID `json:"reply_to,omitempty"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	Timestamp      time.Time  `json:"timestamp"`
	CreatedAt      time.Time  `json:"created_at"`
}
