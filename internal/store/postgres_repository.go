/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed to maintain the back-office
 * collections: investor accounts, the transaction ledger, withdrawal
 * requests, commissions, conversations and affiliate messages.
 *
 * @notes
 * - Store errors are classified before they leave this package: ordered
 *   queries that the store refuses for lack of a supporting index surface as
 *   ErrIndexUnavailable (the feed layer recovers locally), connectivity and
 *   permission failures surface as ErrStoreUnavailable, and absent documents
 *   surface as the per-entity not-found sentinels.
 * - CreditInvestor performs the balance update and the ledger append in one
 *   database transaction with a row lock, so concurrent credits to the same
 *   investor serialize instead of losing updates.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/investa/backoffice-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// classifyStoreError maps driver-level failures onto the repository's error
// taxonomy. Missing-index refusals and connectivity problems get distinct
// sentinels; anything else passes through untouched.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42704", "42P01", "42703": // undefined object / table / column backing the ordering
			return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
		switch pgErr.Code[:2] {
		case "08": // connection exceptions
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		case "28", "42": // authorization failures, revoked privileges
			if pgErr.Code == "28000" || pgErr.Code == "28P01" || pgErr.Code == "42501" {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

const investorColumns = `id, name, email, phone, country, current_balance, account_status,
	policy_violation, pending_kyc, withdrawal_disabled,
	positions_per_day, pairs, platform, leverage, currency, created_at, updated_at`

func scanInvestor(row pgx.Row) (*domain.Investor, error) {
	var inv domain.Investor
	err := row.Scan(
		&inv.ID, &inv.Name, &inv.Email, &inv.Phone, &inv.Country,
		&inv.CurrentBalance, &inv.AccountStatus,
		&inv.AccountFlags.PolicyViolation, &inv.AccountFlags.PendingKyc, &inv.AccountFlags.WithdrawalDisabled,
		&inv.TradingData.PositionsPerDay, &inv.TradingData.Pairs, &inv.TradingData.Platform,
		&inv.TradingData.Leverage, &inv.TradingData.Currency,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrInvestorNotFound
		}
		return nil, classifyStoreError(err)
	}
	return &inv, nil
}

// FindInvestorByID retrieves one investor document from the users collection.
func (r *PostgresRepository) FindInvestorByID(ctx context.Context, investorID string) (*domain.Investor, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND role = 'investor'", investorColumns)
	return scanInvestor(r.db.QueryRow(ctx, query, investorID))
}

// CreditInvestor applies a balance delta and appends the matching ledger entry
// in a single database transaction. The investor row is locked for the
// duration so concurrent credits serialize rather than losing an update; the
// external contract (credit amount in, new balance out) is unchanged.
func (r *PostgresRepository) CreditInvestor(ctx context.Context, investorID string, amount int64, entry *domain.Transaction) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	defer tx.Rollback(ctx)

	var current int64
	err = tx.QueryRow(ctx, "SELECT current_balance FROM users WHERE id = $1 AND role = 'investor' FOR UPDATE", investorID).Scan(&current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrInvestorNotFound
		}
		return 0, classifyStoreError(err)
	}

	newBalance := current + amount
	if _, err := tx.Exec(ctx, "UPDATE users SET current_balance = $1, updated_at = now() WHERE id = $2", newBalance, investorID); err != nil {
		return 0, classifyStoreError(err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, investor_id, type, amount, date, status, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.InvestorID, entry.Type, entry.Amount, entry.Date, entry.Status, entry.Description, entry.CreatedAt,
	); err != nil {
		return 0, classifyStoreError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, classifyStoreError(err)
	}
	return newBalance, nil
}

// UpdateAccountStatus flags an investor account; investors are never hard-deleted.
func (r *PostgresRepository) UpdateAccountStatus(ctx context.Context, investorID string, status string) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET account_status = $1, updated_at = now() WHERE id = $2 AND role = 'investor'", status, investorID)
	if err != nil {
		return classifyStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvestorNotFound
	}
	return nil
}

// UpdateAccountFlags replaces the administrative flags on an investor account.
func (r *PostgresRepository) UpdateAccountFlags(ctx context.Context, investorID string, flags domain.AccountFlags) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET policy_violation = $1, pending_kyc = $2, withdrawal_disabled = $3, updated_at = now()
		 WHERE id = $4 AND role = 'investor'`,
		flags.PolicyViolation, flags.PendingKyc, flags.WithdrawalDisabled, investorID,
	)
	if err != nil {
		return classifyStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvestorNotFound
	}
	return nil
}

// SumInvestorBalances returns assets under management: the sum of all
// investor balances.
func (r *PostgresRepository) SumInvestorBalances(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, "SELECT COALESCE(SUM(current_balance), 0) FROM users WHERE role = 'investor'").Scan(&total)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	return total, nil
}

// FindAdminIdentity resolves the designated admin account by its role column.
func (r *PostgresRepository) FindAdminIdentity(ctx context.Context) (string, string, error) {
	var id, name string
	err := r.db.QueryRow(ctx, "SELECT id, name FROM users WHERE role = 'admin' ORDER BY created_at LIMIT 1").Scan(&id, &name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", "", ErrAdminNotFound
		}
		return "", "", classifyStoreError(err)
	}
	return id, name, nil
}

// InsertTransaction appends an immutable row to the ledger. It does not touch
// the investor balance; callers keep balance and ledger consistent.
func (r *PostgresRepository) InsertTransaction(ctx context.Context, entry *domain.Transaction) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO transactions (id, investor_id, type, amount, date, status, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.InvestorID, entry.Type, entry.Amount, entry.Date, entry.Status, entry.Description, entry.CreatedAt,
	)
	return classifyStoreError(err)
}

const transactionColumns = "id, investor_id, type, amount, date, status, description, created_at"

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.InvestorID, &t.Type, &t.Amount, &t.Date, &t.Status, &t.Description, &t.CreatedAt); err != nil {
			return nil, classifyStoreError(err)
		}
		out = append(out, t)
	}
	return out, classifyStoreError(rows.Err())
}

// ListTransactionsByInvestor returns the investor's ledger. With ordered=true
// the store-side descending date ordering is requested (needs the composite
// index); with ordered=false the same filter runs without ordering.
func (r *PostgresRepository) ListTransactionsByInvestor(ctx context.Context, investorID string, ordered bool) ([]domain.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE investor_id = $1", transactionColumns)
	if ordered {
		query += " ORDER BY date DESC, created_at DESC"
	}
	rows, err := r.db.Query(ctx, query, investorID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return collectTransactions(rows)
}

// InsertWithdrawalRequest creates a new request in its submission state.
func (r *PostgresRepository) InsertWithdrawalRequest(ctx context.Context, req *domain.WithdrawalRequest) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO withdrawal_requests
		 (id, investor_id, investor_name, amount, status, date, w8ben_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.InvestorID, req.InvestorName, req.Amount, req.Status, req.Date, req.W8BENStatus, req.CreatedAt,
	)
	return classifyStoreError(err)
}

const withdrawalColumns = `id, investor_id, investor_name, amount, status, date,
	approval_date, processed_by, processed_at, reason,
	w8ben_status, w8ben_approved_at, w8ben_rejection_reason, created_at`

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	err := row.Scan(
		&w.ID, &w.InvestorID, &w.InvestorName, &w.Amount, &w.Status, &w.Date,
		&w.ApprovalDate, &w.ProcessedBy, &w.ProcessedAt, &w.Reason,
		&w.W8BENStatus, &w.W8BENApprovedAt, &w.W8BENRejectionReason, &w.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWithdrawalNotFound
		}
		return nil, classifyStoreError(err)
	}
	return &w, nil
}

// FindWithdrawalRequestByID retrieves one withdrawal request.
func (r *PostgresRepository) FindWithdrawalRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM withdrawal_requests WHERE id = $1", withdrawalColumns)
	return scanWithdrawal(r.db.QueryRow(ctx, query, requestID))
}

// ProcessWithdrawalDecision stamps a terminal decision onto a request and, for
// an approval, inserts the derived commission in the same database
// transaction. The request row is locked so concurrent decisions serialize;
// whichever loses sees a terminal status and gets ErrWithdrawalAlreadyDecided.
// A transient failure rolls back both writes, leaving the request Pending and
// the decision retryable.
func (r *PostgresRepository) ProcessWithdrawalDecision(ctx context.Context, requestID uuid.UUID, params DecisionParams, commission *domain.Commission) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyStoreError(err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, "SELECT status FROM withdrawal_requests WHERE id = $1 FOR UPDATE", requestID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrWithdrawalNotFound
		}
		return classifyStoreError(err)
	}
	if status != domain.WithdrawalStatusPending {
		return ErrWithdrawalAlreadyDecided
	}

	if _, err := tx.Exec(ctx,
		`UPDATE withdrawal_requests
		 SET status = $1, processed_by = $2, processed_at = $3, approval_date = $4, reason = $5
		 WHERE id = $6`,
		params.Status, params.ProcessedBy, params.ProcessedAt, params.ApprovalDate, params.Reason, requestID,
	); err != nil {
		return classifyStoreError(err)
	}

	if commission != nil {
		// The unique index on withdrawal_id backs the
		// one-commission-per-approval invariant.
		if _, err := tx.Exec(ctx,
			`INSERT INTO commissions
			 (id, investor_id, investor_name, withdrawal_id, withdrawal_amount, commission_rate, commission_amount, date, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (withdrawal_id) DO NOTHING`,
			commission.ID, commission.InvestorID, commission.InvestorName, commission.WithdrawalID, commission.WithdrawalAmount,
			commission.CommissionRate, commission.CommissionAmount, commission.Date, commission.Status, commission.CreatedAt,
		); err != nil {
			return classifyStoreError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// UpdateW8BENStatus mutates only the tax-form sub-status columns; the primary
// status is never read or written here.
func (r *PostgresRepository) UpdateW8BENStatus(ctx context.Context, requestID uuid.UUID, params TaxFormParams) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE withdrawal_requests
		 SET w8ben_status = $1, w8ben_approved_at = $2, w8ben_rejection_reason = $3
		 WHERE id = $4`,
		params.Status, params.ApprovedAt, params.RejectionReason, requestID,
	)
	if err != nil {
		return classifyStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWithdrawalNotFound
	}
	return nil
}

func collectWithdrawals(rows pgx.Rows) ([]domain.WithdrawalRequest, error) {
	defer rows.Close()
	var out []domain.WithdrawalRequest
	for rows.Next() {
		var w domain.WithdrawalRequest
		if err := rows.Scan(
			&w.ID, &w.InvestorID, &w.InvestorName, &w.Amount, &w.Status, &w.Date,
			&w.ApprovalDate, &w.ProcessedBy, &w.ProcessedAt, &w.Reason,
			&w.W8BENStatus, &w.W8BENApprovedAt, &w.W8BENRejectionReason, &w.CreatedAt,
		); err != nil {
			return nil, classifyStoreError(err)
		}
		out = append(out, w)
	}
	return out, classifyStoreError(rows.Err())
}

// ListWithdrawalRequests returns every request, for the admin review queue.
func (r *PostgresRepository) ListWithdrawalRequests(ctx context.Context, ordered bool) ([]domain.WithdrawalRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM withdrawal_requests", withdrawalColumns)
	if ordered {
		query += " ORDER BY date DESC, created_at DESC"
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return collectWithdrawals(rows)
}

// ListWithdrawalRequestsByInvestor returns one investor's requests.
func (r *PostgresRepository) ListWithdrawalRequestsByInvestor(ctx context.Context, investorID string, ordered bool) ([]domain.WithdrawalRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM withdrawal_requests WHERE investor_id = $1", withdrawalColumns)
	if ordered {
		query += " ORDER BY date DESC, created_at DESC"
	}
	rows, err := r.db.Query(ctx, query, investorID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return collectWithdrawals(rows)
}

const commissionColumns = "id, investor_id, investor_name, withdrawal_id, withdrawal_amount, commission_rate, commission_amount, date, status, created_at"

// ListCommissionsByInvestor returns commissions earned on one investor's
// withdrawals.
func (r *PostgresRepository) ListCommissionsByInvestor(ctx context.Context, investorID string, ordered bool) ([]domain.Commission, error) {
	query := fmt.Sprintf("SELECT %s FROM commissions WHERE investor_id = $1", commissionColumns)
	if ordered {
		query += " ORDER BY date DESC, created_at DESC"
	}
	rows, err := r.db.Query(ctx, query, investorID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()
	var out []domain.Commission
	for rows.Next() {
		var c domain.Commission
		if err := rows.Scan(
			&c.ID, &c.InvestorID, &c.InvestorName, &c.WithdrawalID, &c.WithdrawalAmount,
			&c.CommissionRate, &c.CommissionAmount, &c.Date, &c.Status, &c.CreatedAt,
		); err != nil {
			return nil, classifyStoreError(err)
		}
		out = append(out, c)
	}
	return out, classifyStoreError(rows.Err())
}

const conversationColumns = `id, participant_a, participant_b, participant_a_name, participant_b_name,
	last_message, last_message_time, created_at, updated_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID, &c.Participants[0], &c.Participants[1], &c.ParticipantNames[0], &c.ParticipantNames[1],
		&c.LastMessage, &c.LastMessageTime, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrConversationNotFound
		}
		return nil, classifyStoreError(err)
	}
	return &c, nil
}

// FindConversationByParticipant returns the first conversation containing the
// user. The unique pair constraint makes first-match correct for the
// admin/affiliate model.
func (r *PostgresRepository) FindConversationByParticipant(ctx context.Context, userID string) (*domain.Conversation, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM conversations WHERE participant_a = $1 OR participant_b = $1 ORDER BY created_at LIMIT 1",
		conversationColumns,
	)
	return scanConversation(r.db.QueryRow(ctx, query, userID))
}

// FindConversationByPair returns the conversation for a canonical participant pair.
func (r *PostgresRepository) FindConversationByPair(ctx context.Context, participants [2]string) (*domain.Conversation, error) {
	query := fmt.Sprintf("SELECT %s FROM conversations WHERE participant_a = $1 AND participant_b = $2", conversationColumns)
	return scanConversation(r.db.QueryRow(ctx, query, participants[0], participants[1]))
}

// InsertConversation creates a conversation document. The unique index on the
// participant pair turns a lost creation race into ErrConversationExists so
// the directory can re-read the winner.
func (r *PostgresRepository) InsertConversation(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations
		 (id, participant_a, participant_b, participant_a_name, participant_b_name, last_message, last_message_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		conv.ID, conv.Participants[0], conv.Participants[1], conv.ParticipantNames[0], conv.ParticipantNames[1],
		conv.LastMessage, conv.LastMessageTime, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConversationExists
		}
		return classifyStoreError(err)
	}
	return nil
}

// UpdateConversationLastMessage rolls the last-message projection forward.
func (r *PostgresRepository) UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE conversations SET last_message = $1, last_message_time = $2, updated_at = now() WHERE id = $3",
		preview, at, conversationID,
	)
	if err != nil {
		return classifyStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ListConversationsByParticipant returns the user's inbox, most recent first
// when ordered.
func (r *PostgresRepository) ListConversationsByParticipant(ctx context.Context, userID string, ordered bool) ([]domain.Conversation, error) {
	query := fmt.Sprintf("SELECT %s FROM conversations WHERE participant_a = $1 OR participant_b = $1", conversationColumns)
	if ordered {
		query += " ORDER BY last_message_time DESC"
	}
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()
	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(
			&c.ID, &c.Participants[0], &c.Participants[1], &c.ParticipantNames[0], &c.ParticipantNames[1],
			&c.LastMessage, &c.LastMessageTime, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, classifyStoreError(err)
		}
		out = append(out, c)
	}
	return out, classifyStoreError(rows.Err())
}

// InsertMessage appends an immutable message row. The server clock stamps the
// timestamp; GREATEST against the previous maximum keeps it monotonically
// non-decreasing within the conversation.
func (r *PostgresRepository) InsertMessage(ctx context.Context, msg *domain.AffiliateMessage) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO affiliate_messages
		 (id, conversation_id, sender_id, sender_name, sender_role, content, reply_to, priority, status, timestamp, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
		         GREATEST(now(), COALESCE((SELECT MAX(timestamp) FROM affiliate_messages WHERE conversation_id = $2), now())),
		         now())
		 RETURNING timestamp, created_at`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.SenderRole,
		msg.Content, msg.ReplyTo, msg.Priority, msg.Status,
	).Scan(&msg.Timestamp, &msg.CreatedAt)
	return classifyStoreError(err)
}

const messageColumns = "id, conversation_id, sender_id, sender_name, sender_role, content, reply_to, priority, status, timestamp, created_at"

// ListMessagesByConversation returns a thread. Messages are the one entity
// read ascending: threads read chronologically.
func (r *PostgresRepository) ListMessagesByConversation(ctx context.Context, conversationID uuid.UUID, ordered bool) ([]domain.AffiliateMessage, error) {
	query := fmt.Sprintf("SELECT %s FROM affiliate_messages WHERE conversation_id = $1", messageColumns)
	// The monotonic clamp in InsertMessage can stamp same-instant messages
	// with identical timestamps, so the tie-break keeps the order
	// deterministic.
	if ordered {
		query += " ORDER BY timestamp ASC, created_at ASC, id ASC"
	}
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()
	var out []domain.AffiliateMessage
	for rows.Next() {
		var m domain.AffiliateMessage
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.SenderRole,
			&m.Content, &m.ReplyTo, &m.Priority, &m.Status, &m.Timestamp, &m.CreatedAt,
		); err != nil {
			return nil, classifyStoreError(err)
		}
		out = append(out, m)
	}
	return out, classifyStoreError(rows.Err())
}

// MarkConversationMessagesRead marks every message not sent by the reader as
// read and reports how many rows moved.
func (r *PostgresRepository) MarkConversationMessagesRead(ctx context.Context, conversationID uuid.UUID, readerID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE affiliate_messages SET status = $1 WHERE conversation_id = $2 AND sender_id <> $3 AND status <> $1",
		domain.MessageStatusRead, conversationID, readerID,
	)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	return tag.RowsAffected(), nil
}
