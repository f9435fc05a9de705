package relayserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"chatseal/internal/domain"
)

const pqUniqueViolation = "23505"

// PostgresStore persists relay state in PostgreSQL via lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to url and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an open database. Call Migrate before first use.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the database.
func (s *PostgresStore) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// PutProfile upserts p.
func (s *PostgresStore) PutProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, public_key, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET public_key = $2, updated_at = $3`,
		string(p.UserID), p.PublicKey, time.Now().UTC())
	return err
}

// GetProfile returns the profile of user.
func (s *PostgresStore) GetProfile(ctx context.Context, user domain.UserID) (domain.Profile, error) {
	p := domain.Profile{UserID: user}
	err := s.db.QueryRowContext(ctx,
		`SELECT public_key FROM profiles WHERE user_id = $1`, string(user)).Scan(&p.PublicKey)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, err
}

// CreateConversation inserts c, its participants and keys in one transaction.
func (s *PostgresStore) CreateConversation(
	ctx context.Context,
	c domain.Conversation,
	keys []domain.SealedConversationKeyRecord,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, created_by, created_at)
		VALUES ($1, $2, $3)`,
		string(c.ID), string(c.CreatedBy), c.CreatedAt.UTC())
	if err != nil {
		return mapPQ(err)
	}
	for i, u := range c.Participants {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			string(c.ID), string(u), i)
		if err != nil {
			return mapPQ(err)
		}
	}
	if err := insertKeys(ctx, tx, keys); err != nil {
		return err
	}
	return tx.Commit()
}

func insertKeys(ctx context.Context, tx *sql.Tx, keys []domain.SealedConversationKeyRecord) error {
	now := time.Now().UTC()
	for _, k := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sealed_keys (conversation_id, user_id, encrypted_key, created_at)
			VALUES ($1, $2, $3, $4)`,
			string(k.ConversationID), string(k.UserID), k.EncryptedKey, now)
		if err != nil {
			return mapPQ(err)
		}
	}
	return nil
}

// GetConversation returns the conversation with id.
func (s *PostgresStore) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	c := domain.Conversation{ID: id}
	var createdBy string
	err := s.db.QueryRowContext(ctx, `
		SELECT created_by, created_at FROM conversations WHERE conversation_id = $1`,
		string(id)).Scan(&createdBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	c.CreatedBy = domain.UserID(createdBy)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1 ORDER BY position`, string(id))
	if err != nil {
		return domain.Conversation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return domain.Conversation{}, err
		}
		c.Participants = append(c.Participants, domain.UserID(u))
	}
	return c, rows.Err()
}

// ListConversations returns the conversations user takes part in.
func (s *PostgresStore) ListConversations(ctx context.Context, user domain.UserID) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.conversation_id
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.conversation_id
		WHERE p.user_id = $1
		ORDER BY c.created_at`, string(user))
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetConversation(ctx, domain.ConversationID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// AddSealedKeys inserts keys in one transaction.
func (s *PostgresStore) AddSealedKeys(
	ctx context.Context,
	id domain.ConversationID,
	keys []domain.SealedConversationKeyRecord,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE conversation_id = $1)`,
		string(id)).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := insertKeys(ctx, tx, keys); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSealedKey returns the sealed key of user in id.
func (s *PostgresStore) GetSealedKey(
	ctx context.Context,
	id domain.ConversationID,
	user domain.UserID,
) (domain.SealedConversationKeyRecord, error) {
	rec := domain.SealedConversationKeyRecord{ConversationID: id, UserID: user}
	err := s.db.QueryRowContext(ctx, `
		SELECT encrypted_key FROM sealed_keys
		WHERE conversation_id = $1 AND user_id = $2`,
		string(id), string(user)).Scan(&rec.EncryptedKey)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SealedConversationKeyRecord{}, domain.ErrNotFound
	}
	return rec, err
}

// AddMessage inserts msg.
func (s *PostgresStore) AddMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages
			(message_id, conversation_id, sender_id, recipient_id, scheme, cipher_text, nonce, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(msg.ID), string(msg.ConversationID), string(msg.SenderID), string(msg.RecipientID),
		msg.Scheme, msg.CipherText, msg.Nonce, msg.CreatedAt.UTC())
	return mapPQ(err)
}

// ListMessages returns the newest limit messages in chronological order.
// A limit of zero or less returns all of them.
func (s *PostgresStore) ListMessages(ctx context.Context, id domain.ConversationID, limit int) ([]domain.Message, error) {
	// LIMIT NULL is LIMIT ALL in PostgreSQL.
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, sender_id, recipient_id, scheme, cipher_text, nonce, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`, string(id), lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m := domain.Message{ConversationID: id}
		var mid, sender, recipient string
		if err := rows.Scan(&mid, &sender, &recipient, &m.Scheme, &m.CipherText, &m.Nonce, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ID = domain.MessageID(mid)
		m.SenderID = domain.UserID(sender)
		m.RecipientID = domain.UserID(recipient)
		out = append(out, m)
	}
	return out, rows.Err()
}

func mapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, domain.ErrConflict)
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
