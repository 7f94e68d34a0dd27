package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/investa/backoffice-service/internal/domain"
	"github.com/investa/backoffice-service/internal/store"
)

type conversationRepoStub struct {
	store.Repository

	existing         *domain.Conversation
	pairConversation *domain.Conversation

	adminID   string
	adminName string
	adminErr  error

	insertConvErr error
	insertedConv  *domain.Conversation

	messages       []domain.AffiliateMessage
	orderedListErr error

	insertedMsg     *domain.AffiliateMessage
	messageTime     time.Time
	projectionErr   error
	lastPreview     string
	lastPreviewTime time.Time
	projectionCalls int
}

func (s *conversationRepoStub) FindConversationByParticipant(ctx context.Context, userID string) (*domain.Conversation, error) {
	if s.existing == nil {
		return nil, store.ErrConversationNotFound
	}
	return s.existing, nil
}

func (s *conversationRepoStub) FindConversationByPair(ctx context.Context, participants [2]string) (*domain.Conversation, error) {
	if s.pairConversation == nil {
		return nil, store.ErrConversationNotFound
	}
	return s.pairConversation, nil
}

func (s *conversationRepoStub) FindAdminIdentity(ctx context.Context) (string, string, error) {
	if s.adminErr != nil {
		return "", "", s.adminErr
	}
	return s.adminID, s.adminName, nil
}

func (s *conversationRepoStub) InsertConversation(ctx context.Context, conv *domain.Conversation) error {
	if s.insertConvErr != nil {
		return s.insertConvErr
	}
	s.insertedConv = conv
	return nil
}

func (s *conversationRepoStub) InsertMessage(ctx context.Context, msg *domain.AffiliateMessage) error {
	s.insertedMsg = msg
	msg.Timestamp = s.messageTime
	msg.CreatedAt = s.messageTime
	return nil
}

func (s *conversationRepoStub) ListMessagesByConversation(ctx context.Context, conversationID uuid.UUID, ordered bool) ([]domain.AffiliateMessage, error) {
	if ordered && s.orderedListErr != nil {
		return nil, s.orderedListErr
	}
	return s.messages, nil
}

func (s *conversationRepoStub) UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) error {
	s.projectionCalls++
	if s.projectionErr != nil {
		return s.projectionErr
	}
	s.lastPreview = preview
	s.lastPreviewTime = at
	return nil
}

func TestResolveConversation_ReturnsExistingWithoutCreating(t *testing.T) {
	existing := &domain.Conversation{ID: uuid.New(), Participants: [2]string{"admin_1", "aff_1"}}
	repo := &conversationRepoStub{existing: existing}
	svc := &Service{repo: repo}

	conv, err := svc.ResolveConversation(context.Background(), "aff_1", "Ada", domain.RoleAffiliate)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if conv.ID != existing.ID {
		t.Fatal("expected the existing conversation to be returned")
	}
	if repo.insertedConv != nil {
		t.Fatal("did not expect a second conversation for the same participant")
	}
}

func TestResolveConversation_CreatesWithCanonicalParticipantOrder(t *testing.T) {
	repo := &conversationRepoStub{adminID: "admin_1", adminName: "Iris"}
	svc := &Service{repo: repo}

	conv, err := svc.ResolveConversation(context.Background(), "zeta_9", "Ada", domain.RoleAffiliate)
	if err != nil {
		t.Fatalf("expected resolve to create a conversation, got %v", err)
	}
	if repo.insertedConv == nil {
		t.Fatal("expected a conversation insert")
	}
	if conv.Participants != [2]string{"admin_1", "zeta_9"} {
		t.Fatalf("expected canonical participant order, got %v", conv.Participants)
	}
	if conv.ParticipantNames != [2]string{"Iris", "Ada"} {
		t.Fatalf("expected names aligned with participants, got %v", conv.ParticipantNames)
	}
}

func TestResolveConversation_MissingAdminUsesFallbackIdentity(t *testing.T) {
	repo := &conversationRepoStub{adminErr: store.ErrAdminNotFound}
	svc := &Service{
		repo:              repo,
		fallbackAdminID:   "admin-support",
		fallbackAdminName: "Investor Relations",
	}

	conv, err := svc.ResolveConversation(context.Background(), "zeta_9", "Ada", domain.RoleAffiliate)
	if err != nil {
		t.Fatalf("expected resolve to fall back, got %v", err)
	}
	if conv.Participants != [2]string{"admin-support", "zeta_9"} {
		t.Fatalf("expected fallback admin as counterparty, got %v", conv.Participants)
	}
	if conv.ParticipantNames[0] != "Investor Relations" {
		t.Fatalf("expected fallback admin name, got %q", conv.ParticipantNames[0])
	}
}

func TestResolveConversation_LostCreationRaceReturnsWinner(t *testing.T) {
	winner := &domain.Conversation{ID: uuid.New(), Participants: [2]string{"admin_1", "zeta_9"}}
	repo := &conversationRepoStub{
		adminID:          "admin_1",
		adminName:        "Iris",
		insertConvErr:    store.ErrConversationExists,
		pairConversation: winner,
	}
	svc := &Service{repo: repo}

	conv, err := svc.ResolveConversation(context.Background(), "zeta_9", "Ada", domain.RoleAffiliate)
	if err != nil {
		t.Fatalf("expected the race loser to re-read the winner, got %v", err)
	}
	if conv.ID != winner.ID {
		t.Fatal("expected the winner's conversation after losing the creation race")
	}
}

func TestResolveConversation_AdminWithoutConversationFails(t *testing.T) {
	repo := &conversationRepoStub{}
	svc := &Service{repo: repo}

	_, err := svc.ResolveConversation(context.Background(), "admin_1", "Iris", domain.RoleAdmin)
	if !errors.Is(err, ErrCounterpartyRequired) {
		t.Fatalf("expected ErrCounterpartyRequired, got %v", err)
	}
}

func TestAppendMessage_UpdatesLastMessageProjection(t *testing.T) {
	sentAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &conversationRepoStub{messageTime: sentAt}
	svc := &Service{repo: repo}
	conversationID := uuid.New()

	msg, err := svc.AppendMessage(context.Background(), conversationID, "aff_1", "Ada", domain.RoleAffiliate, "hello there", nil, "")
	if err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	if msg.Status != domain.MessageStatusSent {
		t.Fatalf("expected sent status, got %q", msg.Status)
	}
	if msg.Priority != domain.MessagePriorityNormal {
		t.Fatalf("expected defaulted normal priority, got %q", msg.Priority)
	}
	if repo.lastPreview != "hello there" {
		t.Fatalf("expected projection preview %q, got %q", "hello there", repo.lastPreview)
	}
	if !repo.lastPreviewTime.Equal(sentAt) {
		t.Fatalf("expected projection time %v, got %v", sentAt, repo.lastPreviewTime)
	}
}

func TestAppendMessage_TruncatesLongPreview(t *testing.T) {
	repo := &conversationRepoStub{messageTime: time.Now()}
	svc := &Service{repo: repo}
	content := strings.Repeat("é", 150)

	if _, err := svc.AppendMessage(context.Background(), uuid.New(), "aff_1", "Ada", domain.RoleAffiliate, content, nil, ""); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	if got := len([]rune(repo.lastPreview)); got != 100 {
		t.Fatalf("expected preview truncated to 100 runes, got %d", got)
	}
	if repo.lastPreview != strings.Repeat("é", 100) {
		t.Fatal("expected truncation to preserve whole runes")
	}
}

func TestAppendMessage_RejectsEmptyContent(t *testing.T) {
	repo := &conversationRepoStub{}
	svc := &Service{repo: repo}

	_, err := svc.AppendMessage(context.Background(), uuid.New(), "aff_1", "Ada", domain.RoleAffiliate, "", nil, "")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if repo.insertedMsg != nil {
		t.Fatal("did not expect an insert for an empty message")
	}
}

func TestAppendMessage_SurvivesProjectionFailure(t *testing.T) {
	repo := &conversationRepoStub{
		messageTime:   time.Now(),
		projectionErr: errors.New("db unavailable"),
	}
	svc := &Service{repo: repo}

	msg, err := svc.AppendMessage(context.Background(), uuid.New(), "aff_1", "Ada", domain.RoleAffiliate, "hello", nil, "")
	if err != nil {
		t.Fatalf("expected the durable message to win over a stale projection, got %v", err)
	}
	if msg == nil {
		t.Fatal("expected the appended message back")
	}
	if repo.projectionCalls != 1 {
		t.Fatalf("expected one projection attempt, got %d", repo.projectionCalls)
	}
}

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    string
	}{
		{name: "short content unchanged", content: "hello", max: 100, want: "hello"},
		{name: "exact length unchanged", content: "abcde", max: 5, want: "abcde"},
		{name: "ascii truncated", content: "abcdefgh", max: 5, want: "abcde"},
		{name: "multibyte runes kept whole", content: "ééééé", max: 3, want: "ééé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncatePreview(tt.content, tt.max); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestListMessages_TiedTimestampsKeepDeterministicOrder(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	first := domain.AffiliateMessage{
		ID:        uuid.MustParse("99999999-9999-9999-9999-999999999999"),
		Timestamp: at,
		CreatedAt: at.Add(-time.Second),
		Content:   "first",
	}
	// The monotonic clamp stamps same-instant messages with identical
	// timestamps; created_at then id decide between them.
	second := domain.AffiliateMessage{
		ID:        uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Timestamp: at,
		CreatedAt: at,
		Content:   "second",
	}
	third := domain.AffiliateMessage{
		ID:        uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		Timestamp: at,
		CreatedAt: at,
		Content:   "third",
	}

	repo := &conversationRepoStub{
		messages:       []domain.AffiliateMessage{third, first, second},
		orderedListErr: store.ErrIndexUnavailable,
	}
	svc := &Service{repo: repo}

	msgs, err := svc.ListMessages(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected the fallback sort to recover, got %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Fatalf("expected %q at position %d, got %q", w, i, msgs[i].Content)
		}
	}
}
