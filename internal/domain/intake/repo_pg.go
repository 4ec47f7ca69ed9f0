package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const sessionCols = `id, call_id, phone_number, status, patient_name, patient_age,
	transcript, duration_seconds, recording_key, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	transcript, err := marshalTranscript(s.Transcript)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO intake_sessions (
			id, call_id, phone_number, status, patient_name, patient_age,
			transcript, duration_seconds, recording_key
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.CallID, s.PhoneNumber, s.Status, s.PatientName, s.PatientAge,
		transcript, s.DurationSeconds, s.RecordingKey,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM intake_sessions WHERE id = $1`, id))
}

func (r *repoPG) FindByCallID(ctx context.Context, callID string) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM intake_sessions WHERE call_id = $1`, callID))
}

func (r *repoPG) FindMostRecentByStatus(ctx context.Context, status Status) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM intake_sessions WHERE status = $1 ORDER BY created_at DESC LIMIT 1`,
		status))
}

func (r *repoPG) Update(ctx context.Context, s *Session) error {
	transcript, err := marshalTranscript(s.Transcript)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE intake_sessions SET
			call_id=$2, phone_number=$3, status=$4, patient_name=$5, patient_age=$6,
			transcript=$7, duration_seconds=$8, recording_key=$9, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.CallID, s.PhoneNumber, s.Status, s.PatientName, s.PatientAge,
		transcript, s.DurationSeconds, s.RecordingKey,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM intake_sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionCols+`,
			EXISTS (SELECT 1 FROM soap_notes n WHERE n.session_id = intake_sessions.id) AS has_note
		FROM intake_sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSessionWithNote(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func marshalTranscript(t []Utterance) ([]byte, error) {
	if t == nil {
		t = []Utterance{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	return b, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var transcript []byte
	err := row.Scan(
		&s.ID, &s.CallID, &s.PhoneNumber, &s.Status, &s.PatientName, &s.PatientAge,
		&transcript, &s.DurationSeconds, &s.RecordingKey, &s.CreatedAt, &s.UpdatedAt,
	)
	return finishScan(&s, transcript, err)
}

func scanSessionWithNote(row pgx.Row) (*Session, error) {
	var s Session
	var transcript []byte
	err := row.Scan(
		&s.ID, &s.CallID, &s.PhoneNumber, &s.Status, &s.PatientName, &s.PatientAge,
		&transcript, &s.DurationSeconds, &s.RecordingKey, &s.CreatedAt, &s.UpdatedAt,
		&s.HasNote,
	)
	return finishScan(&s, transcript, err)
}

func finishScan(s *Session, transcript []byte, err error) (*Session, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
			return nil, fmt.Errorf("unmarshal transcript: %w", err)
		}
	}
	return s, nil
}
