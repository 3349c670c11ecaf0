// Package sqlite is a single-file local store for memorials, memories, and
// rate-limit timestamps. The operator CLI runs against it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"memorial-narrator/internal/domain"
)

// Store implements the usecase and ratelimit store interfaces on SQLite.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Open opens or creates a database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID(ts time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(ts), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memorials (
		id          TEXT PRIMARY KEY,
		full_name   TEXT NOT NULL DEFAULT '',
		birth_date  TEXT NOT NULL DEFAULT '',
		passed_date TEXT NOT NULL DEFAULT '',
		tone        TEXT NOT NULL DEFAULT 'warm',
		style       TEXT NOT NULL DEFAULT 'conversational',
		narrative   TEXT NOT NULL DEFAULT '',
		owner_id    TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		memorial_id      TEXT NOT NULL REFERENCES memorials(id) ON DELETE CASCADE,
		contributor_id   TEXT NOT NULL DEFAULT '',
		contributor_name TEXT NOT NULL DEFAULT '',
		relationship     TEXT NOT NULL DEFAULT '',
		time_period      TEXT NOT NULL DEFAULT '',
		emotion          TEXT NOT NULL DEFAULT '',
		content          TEXT NOT NULL,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_memorial ON memories(memorial_id, created_at);

	CREATE TABLE IF NOT EXISTS rate_limits (
		user_id   TEXT PRIMARY KEY,
		last_at   INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateMemorial inserts a memorial and returns it with its id and normalized voice.
func (s *Store) CreateMemorial(ctx context.Context, m domain.Memorial) (domain.Memorial, error) {
	if strings.TrimSpace(m.OwnerID) == "" {
		return domain.Memorial{}, errors.New("sqlite: CreateMemorial: owner is required")
	}
	now := s.now().UTC()
	if m.ID == "" {
		m.ID = s.newID(now)
	}
	v := m.Voice()
	m.Tone, m.Style = v.Tone, v.Style
	m.UpdatedAt = now
	m.MemoryCount = 0

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memorials (id, full_name, birth_date, passed_date, tone, style, narrative, owner_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.FullName, m.BirthDate, m.PassedDate, string(m.Tone), string(m.Style), m.Narrative, m.OwnerID, now.Format(time.RFC3339Nano))
	if err != nil {
		return domain.Memorial{}, fmt.Errorf("sqlite: CreateMemorial: %w", err)
	}
	return m, nil
}

const memorialColumns = `m.id, m.full_name, m.birth_date, m.passed_date, m.tone, m.style, m.narrative, m.owner_id, m.updated_at,
	(SELECT COUNT(*) FROM memories WHERE memorial_id = m.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanMemorial(row scanner) (domain.Memorial, error) {
	var (
		m         domain.Memorial
		tone      string
		style     string
		updatedAt string
	)
	if err := row.Scan(&m.ID, &m.FullName, &m.BirthDate, &m.PassedDate, &tone, &style, &m.Narrative, &m.OwnerID, &updatedAt, &m.MemoryCount); err != nil {
		return domain.Memorial{}, err
	}
	m.Tone, m.Style = domain.Tone(tone), domain.Style(style)
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return domain.Memorial{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	m.UpdatedAt = ts
	return m, nil
}

func (s *Store) GetMemorial(ctx context.Context, memorialID string) (domain.Memorial, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memorialColumns+` FROM memorials m WHERE m.id = ?`, memorialID)
	m, err := scanMemorial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Memorial{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Memorial{}, fmt.Errorf("sqlite: GetMemorial: %w", err)
	}
	return m, nil
}

// ListMemorials returns the memorials owned by ownerID, or all of them when
// ownerID is empty, most recently updated first.
func (s *Store) ListMemorials(ctx context.Context, ownerID string) ([]domain.Memorial, error) {
	q := `SELECT ` + memorialColumns + ` FROM memorials m`
	var args []any
	if ownerID != "" {
		q += ` WHERE m.owner_id = ?`
		args = append(args, ownerID)
	}
	q += ` ORDER BY m.updated_at DESC, m.id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListMemorials: %w", err)
	}
	defer rows.Close()

	var out []domain.Memorial
	for rows.Next() {
		m, err := scanMemorial(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ListMemorials scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SaveNarrative(ctx context.Context, memorialID, narrative string) error {
	return s.updateMemorial(ctx, "SaveNarrative",
		`UPDATE memorials SET narrative = ?, updated_at = ? WHERE id = ?`,
		narrative, s.now().UTC().Format(time.RFC3339Nano), memorialID)
}

func (s *Store) UpdateVoice(ctx context.Context, memorialID string, voice domain.Voice) error {
	return s.updateMemorial(ctx, "UpdateVoice",
		`UPDATE memorials SET tone = ?, style = ?, updated_at = ? WHERE id = ?`,
		string(voice.Tone), string(voice.Style), s.now().UTC().Format(time.RFC3339Nano), memorialID)
}

func (s *Store) updateMemorial(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddMemory inserts a memory. It fails with domain.ErrNotFound when the
// memorial does not exist.
func (s *Store) AddMemory(ctx context.Context, m domain.Memory) (domain.Memory, error) {
	if strings.TrimSpace(m.Content) == "" {
		return domain.Memory{}, errors.New("sqlite: AddMemory: content is required")
	}
	if _, err := s.GetMemorial(ctx, m.MemorialID); err != nil {
		return domain.Memory{}, err
	}
	now := s.now().UTC()
	if m.ID == "" {
		m.ID = s.newID(now)
	}
	m.CreatedAt = now
	m.Emotion = domain.ParseEmotion(string(m.Emotion))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, memorial_id, contributor_id, contributor_name, relationship, time_period, emotion, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.MemorialID, m.ContributorID, m.ContributorName, m.Relationship, m.TimePeriod, string(m.Emotion), m.Content, now.Format(time.RFC3339Nano))
	if err != nil {
		return domain.Memory{}, fmt.Errorf("sqlite: AddMemory: %w", err)
	}
	return m, nil
}

const memoryColumns = `id, memorial_id, contributor_id, contributor_name, relationship, time_period, emotion, content, created_at`

func scanMemory(row scanner) (domain.Memory, error) {
	var (
		m         domain.Memory
		emotion   string
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.MemorialID, &m.ContributorID, &m.ContributorName, &m.Relationship, &m.TimePeriod, &emotion, &m.Content, &createdAt); err != nil {
		return domain.Memory{}, err
	}
	m.Emotion = domain.ParseEmotion(emotion)
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Memory{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	m.CreatedAt = ts
	return m, nil
}

// ListByMemorial returns memories in insertion order.
func (s *Store) ListByMemorial(ctx context.Context, memorialID string) ([]domain.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE memorial_id = ? ORDER BY rowid`, memorialID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListByMemorial: %w", err)
	}
	defer rows.Close()

	var out []domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ListByMemorial scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMemory(ctx context.Context, memoryID string) (domain.Memory, error) {
	m, err := scanMemory(s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, memoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Memory{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Memory{}, fmt.Errorf("sqlite: GetMemory: %w", err)
	}
	return m, nil
}

func (s *Store) DeleteMemory(ctx context.Context, memoryID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("sqlite: DeleteMemory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) LastTimestamp(ctx context.Context, userID string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT last_at FROM rate_limits WHERE user_id = ?`, userID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlite: LastTimestamp: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Record keeps the newer of the stored and given timestamps.
func (s *Store) Record(ctx context.Context, userID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_limits (user_id, last_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_at = max(last_at, excluded.last_at)`,
		userID, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite: Record: %w", err)
	}
	return nil
}
