// Package sqlite provides a SQLite-backed session storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/storage"
	"github.com/mcoot/wordduel/internal/storage/sqlite/migrations"
)

// Storage persists sessions across three tables: sessions, participants and
// an append-only guesses log
type Storage struct {
	sqlDB *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite session store and applies embedded migrations
func Open(ctx context.Context, path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serialises writers so conditional updates never
	// race on lock upgrades
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Storage{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	id := session.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (
			   id, session_key, word_length, max_attempts, phase,
			   current_turn, version, created_at, updated_at
			 ) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id,
			string(session.Key),
			session.WordLength,
			session.MaxAttempts,
			string(session.Phase),
			nullableTurn(session.CurrentTurn),
			toMillis(session.CreatedAt),
			toMillis(session.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrSessionExists
			}
			return fmt.Errorf("insert session: %w", err)
		}
		if err := upsertParticipants(ctx, tx, id, session.Participants); err != nil {
			return err
		}
		return appendGuesses(ctx, tx, id, 0, session.Guesses)
	})
	if err != nil {
		return err
	}

	session.ID = id
	session.Version = 1
	return nil
}

func (s *Storage) GetSession(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	var session *model.Session
	// All three tables are read in one transaction so the result is a single
	// committed version
	err := s.inReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		session, err = loadSession(ctx, tx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func loadSession(ctx context.Context, tx *sql.Tx, key model.SessionKey) (*model.Session, error) {
	var (
		session     model.Session
		phase       string
		currentTurn sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, session_key, word_length, max_attempts, phase,
		        current_turn, version, created_at, updated_at
		   FROM sessions WHERE session_key = ?`,
		string(key),
	).Scan(
		&session.ID,
		&session.Key,
		&session.WordLength,
		&session.MaxAttempts,
		&phase,
		&currentTurn,
		&session.Version,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.Phase = model.Phase(phase)
	if !session.Phase.IsValid() {
		return nil, fmt.Errorf("get session %s: unknown phase %q", key, phase)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)
	if currentTurn.Valid {
		session.CurrentTurn = model.Turn(int(currentTurn.Int64))
	}

	if session.Participants, err = loadParticipants(ctx, tx, session.ID); err != nil {
		return nil, err
	}
	if session.Guesses, err = loadGuesses(ctx, tx, session.ID); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) SessionExists(ctx context.Context, key model.SessionKey) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE session_key = ?", string(key),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return true, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sessions
			    SET word_length = ?, max_attempts = ?, phase = ?, current_turn = ?,
			        updated_at = ?, version = version + 1
			  WHERE session_key = ? AND version = ?`,
			session.WordLength,
			session.MaxAttempts,
			string(session.Phase),
			nullableTurn(session.CurrentTurn),
			toMillis(session.UpdatedAt),
			string(session.Key),
			expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		var id string
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM sessions WHERE session_key = ?", string(session.Key),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup session id: %w", err)
		}
		if affected == 0 {
			return model.ErrVersionConflict
		}

		if err := upsertParticipants(ctx, tx, id, session.Participants); err != nil {
			return err
		}

		var stored int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM guesses WHERE session_id = ?", id,
		).Scan(&stored); err != nil {
			return fmt.Errorf("count guesses: %w", err)
		}
		if stored > len(session.Guesses) {
			return fmt.Errorf("guess log for session %s cannot shrink", session.Key)
		}
		return appendGuesses(ctx, tx, id, stored, session.Guesses[stored:])
	})
	if err != nil {
		return err
	}

	session.Version = expectedVersion + 1
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, key model.SessionKey) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM guesses WHERE session_id IN (SELECT id FROM sessions WHERE session_key = ?)",
			"DELETE FROM participants WHERE session_id IN (SELECT id FROM sessions WHERE session_key = ?)",
			"DELETE FROM sessions WHERE session_key = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, string(key)); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		return nil
	})
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.runTx(ctx, nil, fn)
}

func (s *Storage) inReadTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.runTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Storage) runTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func loadParticipants(ctx context.Context, tx *sql.Tx, sessionID string) ([]model.Participant, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT client_id, display_name, sealed_secret, has_submitted_secret, joined_at
		   FROM participants WHERE session_id = ? ORDER BY seat`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var (
			p        model.Participant
			joinedAt int64
		)
		if err := rows.Scan(&p.ClientID, &p.DisplayName, &p.SealedSecret, &p.HasSubmittedSecret, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.JoinedAt = fromMillis(joinedAt)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func loadGuesses(ctx context.Context, tx *sql.Tx, sessionID string) ([]model.GuessRecord, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT player_index, word, feedback, created_at
		   FROM guesses WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load guesses: %w", err)
	}
	defer rows.Close()

	var guesses []model.GuessRecord
	for rows.Next() {
		var (
			g         model.GuessRecord
			feedback  string
			createdAt int64
		)
		if err := rows.Scan(&g.PlayerIndex, &g.Word, &feedback, &createdAt); err != nil {
			return nil, fmt.Errorf("scan guess: %w", err)
		}
		if err := json.Unmarshal([]byte(feedback), &g.Feedback); err != nil {
			return nil, fmt.Errorf("decode guess feedback: %w", err)
		}
		g.CreatedAt = fromMillis(createdAt)
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

func upsertParticipants(ctx context.Context, tx *sql.Tx, sessionID string, participants []model.Participant) error {
	for seat, p := range participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (
			   session_id, seat, client_id, display_name, sealed_secret,
			   has_submitted_secret, joined_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (session_id, seat) DO UPDATE SET
			   client_id = excluded.client_id,
			   display_name = excluded.display_name,
			   sealed_secret = excluded.sealed_secret,
			   has_submitted_secret = excluded.has_submitted_secret,
			   joined_at = excluded.joined_at`,
			sessionID,
			seat,
			string(p.ClientID),
			p.DisplayName,
			p.SealedSecret,
			p.HasSubmittedSecret,
			toMillis(p.JoinedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert participant %d: %w", seat, err)
		}
	}
	return nil
}

func appendGuesses(ctx context.Context, tx *sql.Tx, sessionID string, startSeq int, guesses []model.GuessRecord) error {
	for i, g := range guesses {
		feedback, err := json.Marshal(g.Feedback)
		if err != nil {
			return fmt.Errorf("encode guess feedback: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO guesses (id, session_id, seq, player_index, word, feedback, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(),
			sessionID,
			startSeq+i,
			g.PlayerIndex,
			g.Word,
			string(feedback),
			toMillis(g.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append guess: %w", err)
		}
	}
	return nil
}

func nullableTurn(turn *int) sql.NullInt64 {
	if turn == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*turn), Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
