package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListRecords returns the full knowledge_base collection ordered by recency,
// newest first. This is the snapshot the sync controller replaces its cache
// with on every change event.
func (s *PostgresStore) ListRecords(ctx context.Context) ([]KnowledgeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, word, category, summary, analogy, key_players, connections, created_at
		FROM knowledge_base
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	items := make([]KnowledgeRecord, 0)
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, recordID string) (KnowledgeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, word, category, summary, analogy, key_players, connections, created_at
		FROM knowledge_base
		WHERE id=$1
	`, recordID)
	item, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return KnowledgeRecord{}, ErrNotFound
	}
	if err != nil {
		return KnowledgeRecord{}, err
	}
	return item, nil
}

// InsertRecord writes a new captured record. CreatedAt is assigned by the
// database so ordering follows commit order, not client clocks.
func (s *PostgresStore) InsertRecord(ctx context.Context, item KnowledgeRecord) error {
	players, err := json.Marshal(item.KeyPlayers)
	if err != nil {
		return fmt.Errorf("marshal key players: %w", err)
	}
	connections, err := json.Marshal(item.Connections)
	if err != nil {
		return fmt.Errorf("marshal connections: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_base (id, word, category, summary, analogy, key_players, connections)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Word, item.Category, item.Summary, item.Analogy, players, connections)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, recordID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_base WHERE id=$1`, recordID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll wipes both collections in one transaction. Irreversible.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_base`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("reset knowledge_base: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memos`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("reset memos: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMemos(ctx context.Context) ([]Memo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, created_at
		FROM memos
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	defer rows.Close()

	items := make([]Memo, 0)
	for rows.Next() {
		var item Memo
		if err := rows.Scan(&item.ID, &item.Text, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memo: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memos: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertMemo(ctx context.Context, memo Memo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memos (id, text)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, memo.ID, memo.Text)
	if err != nil {
		return fmt.Errorf("insert memo: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteMemo(ctx context.Context, memoID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memos WHERE id=$1`, memoID)
	if err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (KnowledgeRecord, error) {
	var (
		item        KnowledgeRecord
		analogy     sql.NullString
		players     []byte
		connections []byte
	)
	if err := row.Scan(&item.ID, &item.Word, &item.Category, &item.Summary, &analogy, &players, &connections, &item.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return KnowledgeRecord{}, err
		}
		return KnowledgeRecord{}, fmt.Errorf("scan record: %w", err)
	}
	item.Analogy = analogy.String
	if len(players) > 0 {
		if err := json.Unmarshal(players, &item.KeyPlayers); err != nil {
			return KnowledgeRecord{}, fmt.Errorf("decode key players for %s: %w", item.ID, err)
		}
	}
	if len(connections) > 0 {
		if err := json.Unmarshal(connections, &item.Connections); err != nil {
			return KnowledgeRecord{}, fmt.Errorf("decode connections for %s: %w", item.ID, err)
		}
	}
	return item, nil
}
