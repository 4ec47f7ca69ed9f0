// Package soapnote owns the SoapNote resource: the clinical document
// derived from a completed intake call, linked 1:1 to its session.
package soapnote

import (
	"time"

	"github.com/google/uuid"
)

// Note maps to the soap_notes table. Notes are created at most once per
// session and are immutable afterwards.
type Note struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	SessionID  uuid.UUID              `db:"session_id" json:"session_id"`
	Subjective string                 `db:"subjective" json:"subjective"`
	Objective  string                 `db:"objective" json:"objective"`
	Assessment string                 `db:"assessment" json:"assessment"`
	Plan       string                 `db:"plan" json:"plan"`
	PDFKey     *string                `db:"pdf_key" json:"pdf_key,omitempty"`
	RawCallID  *string                `db:"raw_call_id" json:"raw_call_id,omitempty"`
	Analysis   map[string]interface{} `db:"analysis" json:"analysis,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// NoteWithSession is the read-model for dashboard endpoints: a note joined
// with identifying fields of its owning session.
type NoteWithSession struct {
	Note
	CallID           *string   `json:"call_id,omitempty"`
	PhoneNumber      string    `json:"phone_number"`
	SessionCreatedAt time.Time `json:"session_created_at"`
}
