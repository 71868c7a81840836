package models

import "time"

// LedgerReason is the business reason behind a credit movement.
type LedgerReason string

const (
	ReasonSpotShared    LedgerReason = "spot_shared"
	ReasonSpotChosen    LedgerReason = "spot_chosen"
	ReasonReportPenalty LedgerReason = "report_penalty"
)

// LedgerEntry is one append-only row of the credit audit trail.
type LedgerEntry struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	SpotID    *int64       `json:"spot_id,omitempty"`
	Reason    LedgerReason `json:"reason"`
	Delta     int          `json:"delta"`
	Balance   int          `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
}
