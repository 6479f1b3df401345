// Package ledger keeps a best-effort history of renders in PostgreSQL.
package ledger

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "textoverlay/internal/pkg/errors"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Render is one row of the renders table.
type Render struct {
	ID           string     `json:"renderId"`
	Status       Status     `json:"status"`
	VideoURL     string     `json:"videoUrl"`
	AudioURL     string     `json:"audioUrl,omitempty"`
	OverlayCount int        `json:"overlayCount"`
	Style        string     `json:"style,omitempty"`
	ObjectKey    string     `json:"key,omitempty"`
	URL          string     `json:"url,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorText    string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Recorder receives render lifecycle transitions.
type Recorder interface {
	Start(ctx context.Context, r Render) error
	Complete(ctx context.Context, id, objectKey, url string) error
	Fail(ctx context.Context, id string, code apperrors.Code, msg string) error
}

// Reader serves render history.
type Reader interface {
	Get(ctx context.Context, id string) (*Render, error)
	List(ctx context.Context, limit int) ([]Render, error)
}

const maxErrorText = 2000

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	video_url     TEXT NOT NULL,
	audio_url     TEXT NOT NULL DEFAULT '',
	overlay_count INTEGER NOT NULL DEFAULT 0,
	style         TEXT NOT NULL DEFAULT '',
	object_key    TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL DEFAULT '',
	error_code    TEXT NOT NULL DEFAULT '',
	error_text    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS renders_created_at_idx ON renders (created_at DESC);
`

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the renders table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return apperrors.Wrap(err, "ledger.EnsureSchema", "create renders table")
	}
	return nil
}

func (s *Store) Start(ctx context.Context, r Render) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO renders (id, status, video_url, audio_url, overlay_count, style)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, r.ID, string(StatusRunning), r.VideoURL, r.AudioURL, r.OverlayCount, r.Style)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperrors.New(apperrors.CodeInternal, "render already recorded").WithField("id", r.ID)
		}
		return apperrors.Wrap(err, "ledger.Start", "insert render")
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id, objectKey, url string) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE renders
		SET status=$2, object_key=$3, url=$4, finished_at=now()
		WHERE id=$1
	`, id, string(StatusCompleted), objectKey, url)
	if err != nil {
		return apperrors.Wrap(err, "ledger.Complete", "update render")
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NotFound("render", id)
	}
	return nil
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *Store) Fail(ctx context.Context, id string, code apperrors.Code, msg string) error {
	msg = truncate(msg, maxErrorText)
	cmd, err := s.db.Exec(ctx, `
		UPDATE renders
		SET status=$2, error_code=$3, error_text=$4, finished_at=now()
		WHERE id=$1
	`, id, string(StatusFailed), string(code), msg)
	if err != nil {
		return apperrors.Wrap(err, "ledger.Fail", "update render")
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NotFound("render", id)
	}
	return nil
}

const selectColumns = `id, status, video_url, audio_url, overlay_count, style, object_key, url, error_code, error_text, created_at, finished_at`

func scanRender(row pgx.Row) (*Render, error) {
	var r Render
	var status string
	err := row.Scan(
		&r.ID,
		&status,
		&r.VideoURL,
		&r.AudioURL,
		&r.OverlayCount,
		&r.Style,
		&r.ObjectKey,
		&r.URL,
		&r.ErrorCode,
		&r.ErrorText,
		&r.CreatedAt,
		&r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Render, error) {
	r, err := scanRender(s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM renders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("render", id)
		}
		if IsUndefinedTable(err) {
			return nil, apperrors.Unavailable("ledger")
		}
		return nil, apperrors.Wrap(err, "ledger.Get", "query render")
	}
	return r, nil
}

// List returns the newest renders first. limit is clamped to [1,200].
func (s *Store) List(ctx context.Context, limit int) ([]Render, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+` FROM renders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		if IsUndefinedTable(err) {
			return nil, apperrors.Unavailable("ledger")
		}
		return nil, apperrors.Wrap(err, "ledger.List", "query renders")
	}
	defer rows.Close()

	out := make([]Render, 0)
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "ledger.List", "scan render")
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "ledger.List", "iterate renders")
	}
	return out, nil
}

// Nop records nothing. It stands in when no database is configured.
type Nop struct{}

func (Nop) Start(context.Context, Render) error { return nil }

func (Nop) Complete(context.Context, string, string, string) error { return nil }

func (Nop) Fail(context.Context, string, apperrors.Code, string) error { return nil }
