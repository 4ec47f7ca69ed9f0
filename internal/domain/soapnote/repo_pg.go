package soapnote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const noteCols = `id, session_id, subjective, objective, assessment, plan,
	pdf_key, raw_call_id, analysis, created_at`

func (r *repoPG) Create(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	analysis, err := marshalAnalysis(n.Analysis)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO soap_notes (
			id, session_id, subjective, objective, assessment, plan,
			pdf_key, raw_call_id, analysis
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.SessionID, n.Subjective, n.Objective, n.Assessment, n.Plan,
		n.PDFKey, n.RawCallID, analysis,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrNoteExists
	}
	return err
}

func (r *repoPG) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Note, error) {
	return scanNote(r.pool.QueryRow(ctx,
		`SELECT `+noteCols+` FROM soap_notes WHERE session_id = $1`, sessionID))
}

const joinedCols = `n.id, n.session_id, n.subjective, n.objective, n.assessment, n.plan,
	n.pdf_key, n.raw_call_id, n.analysis, n.created_at,
	s.call_id, s.phone_number, s.created_at`

func (r *repoPG) GetByCallID(ctx context.Context, callID string) (*NoteWithSession, error) {
	return scanJoined(r.pool.QueryRow(ctx, `
		SELECT `+joinedCols+`
		FROM soap_notes n
		JOIN intake_sessions s ON s.id = n.session_id
		WHERE s.call_id = $1`, callID))
}

func (r *repoPG) ListRecent(ctx context.Context, limit int) ([]*NoteWithSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+joinedCols+`
		FROM soap_notes n
		JOIN intake_sessions s ON s.id = n.session_id
		ORDER BY n.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*NoteWithSession
	for rows.Next() {
		n, err := scanJoined(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func marshalAnalysis(a map[string]interface{}) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	return b, nil
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	var analysis []byte
	err := row.Scan(
		&n.ID, &n.SessionID, &n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		&n.PDFKey, &n.RawCallID, &analysis, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalAnalysis(analysis, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func scanJoined(row pgx.Row) (*NoteWithSession, error) {
	var n NoteWithSession
	var analysis []byte
	err := row.Scan(
		&n.ID, &n.SessionID, &n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		&n.PDFKey, &n.RawCallID, &analysis, &n.CreatedAt,
		&n.CallID, &n.PhoneNumber, &n.SessionCreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalAnalysis(analysis, &n.Note); err != nil {
		return nil, err
	}
	return &n, nil
}

func unmarshalAnalysis(raw []byte, n *Note) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &n.Analysis); err != nil {
		return fmt.Errorf("unmarshal analysis: %w", err)
	}
	return nil
}
