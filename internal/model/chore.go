package model

import (
	"fmt"
	"strings"
	"time"
)

// Cadence is how often a checklist's completion state resets.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// ParseCadence accepts "daily" or "weekly" (case-insensitive).
func ParseCadence(s string) (Cadence, error) {
	switch c := Cadence(strings.ToLower(strings.TrimSpace(s))); c {
	case CadenceDaily, CadenceWeekly:
		return c, nil
	default:
		return "", fmt.Errorf("unknown cadence %q", s)
	}
}

type Checklist struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cadence     Cadence   `json:"cadence"`
	CreatedAt   time.Time `json:"created_at"`
}

type Section struct {
	ID          int64     `json:"id"`
	ChecklistID int64     `json:"checklist_id"`
	Name        string    `json:"name"`
	SortOrder   int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chore holds no completion state; see CompletionRecord.
type Chore struct {
	ID          int64     `json:"id"`
	SectionID   int64     `json:"section_id"`
	Description string    `json:"description"`
	SortOrder   int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

// CompletionRecord is an append-only fact. A record with Completed=false is
// an explicit uncomplete.
type CompletionRecord struct {
	ID        int64     `json:"id"`
	ChoreID   int64     `json:"chore_id"`
	StaffName string    `json:"staff_name"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
	Comment   *string   `json:"comment,omitempty"`
}

// NewCompletion is the input to an append.
type NewCompletion struct {
	ChoreID   int64
	StaffName string
	Completed bool
	Timestamp time.Time
	Comment   *string
}

type Signature struct {
	ID          int64     `json:"id"`
	ChecklistID int64     `json:"checklist_id"`
	StaffName   string    `json:"staff_name"`
	Blob        string    `json:"signature"`
	Timestamp   time.Time `json:"signed_at"`
}

type Staff struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// EffectiveState is the derived completion status of a chore within an epoch.
type EffectiveState struct {
	ChoreID   int64      `json:"chore_id"`
	Completed bool       `json:"completed"`
	By        *string    `json:"completed_by"`
	At        *time.Time `json:"completed_at"`
	Comment   *string    `json:"comment"`
}

// StateFromRecord derives the effective state carried by a single record.
// A nil record means the chore is incomplete in the epoch.
func StateFromRecord(choreID int64, rec *CompletionRecord) EffectiveState {
	if rec == nil {
		return EffectiveState{ChoreID: choreID}
	}
	by := rec.StaffName
	at := rec.Timestamp
	return EffectiveState{
		ChoreID:   choreID,
		Completed: rec.Completed,
		By:        &by,
		At:        &at,
		Comment:   rec.Comment,
	}
}

// In returns the state with its timestamp expressed in loc.
func (s EffectiveState) In(loc *time.Location) EffectiveState {
	if s.At != nil {
		at := s.At.In(loc)
		s.At = &at
	}
	return s
}

// ChoreState is one row of a checklist's rendered state.
type ChoreState struct {
	ChoreID     int64      `json:"chore_id"`
	Description string     `json:"description"`
	Section     string     `json:"section"`
	SectionID   int64      `json:"section_id"`
	Order       int        `json:"order"`
	Completed   bool       `json:"completed"`
	CompletedBy *string    `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	Comment     *string    `json:"comment"`
}
