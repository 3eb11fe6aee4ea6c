package models

import "time"

// Journal entry types besides the per-action ones.
const (
	JournalActionFailed = "ACTION_FAILED"
	JournalStatusChange = "STATUS_CHANGE"
)

// JournalEntry is a single record of what an operator did, or of a status
// change noticed on refresh.
type JournalEntry struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	MachineID   string    `json:"machine_id,omitempty"`
	UserID      int       `json:"user_id,omitempty"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// MachineSnapshot is the last status seen for a machine by the refresher.
type MachineSnapshot struct {
	MachineID string    `json:"machine_id"`
	Status    string    `json:"status"`
	Approval  string    `json:"approval,omitempty"`
	SeenAt    time.Time `json:"seen_at"`
}
