package model

import "time"

// IntentKind identifies what a notification intent describes.
type IntentKind string

const (
	IntentChoreCompleted     IntentKind = "chore_completed"
	IntentChoreUncompleted   IntentKind = "chore_uncompleted"
	IntentChoreCommented     IntentKind = "chore_commented"
	IntentSectionCompleted   IntentKind = "section_completed"
	IntentChecklistSubmitted IntentKind = "checklist_submitted"
	IntentChecklistReset     IntentKind = "checklist_reset"
)

// Intent describes a committed state change handed to the notification
// dispatcher for best-effort delivery.
type Intent struct {
	ID        string        `json:"id"`
	Kind      IntentKind    `json:"kind"`
	StaffName string        `json:"staff_name"`
	Summary   string        `json:"summary"`
	Timestamp time.Time     `json:"timestamp"`
	Details   IntentDetails `json:"details"`
}

// IntentDetails carries the fields a sink may need to render a message.
// Only the fields relevant to the intent's kind are set.
type IntentDetails struct {
	Checklist   string           `json:"checklist,omitempty"`
	SectionID   int64            `json:"section_id,omitempty"`
	Section     string           `json:"section,omitempty"`
	ChoreID     int64            `json:"chore_id,omitempty"`
	Chore       string           `json:"chore,omitempty"`
	Comment     *string          `json:"comment,omitempty"`
	Count       int              `json:"count,omitempty"`
	Comments    []ChoreComment   `json:"comments,omitempty"`
	Completions []CompletionLine `json:"completions,omitempty"`
}

type ChoreComment struct {
	ChoreID int64  `json:"chore_id"`
	Chore   string `json:"chore"`
	Comment string `json:"comment"`
}

// CompletionLine is one record in a submission summary.
type CompletionLine struct {
	ChoreID   int64     `json:"chore_id"`
	Chore     string    `json:"chore"`
	StaffName string    `json:"staff_name"`
	Completed bool      `json:"completed"`
	At        time.Time `json:"at"`
}

// Plural picks one or many by count for intent summaries.
func Plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
