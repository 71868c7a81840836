package models

import (
	"fmt"
	"time"
)

// SpotStatus is the lifecycle state of a parking spot.
type SpotStatus string

const (
	SpotNew      SpotStatus = "new"
	SpotChosen   SpotStatus = "chosen"
	SpotOccupied SpotStatus = "occupied"
	SpotDisabled SpotStatus = "disabled"
)

// SpotStatuses lists every valid status.
var SpotStatuses = []SpotStatus{SpotNew, SpotChosen, SpotOccupied, SpotDisabled}

// Valid reports whether s is one of the known statuses.
func (s SpotStatus) Valid() bool {
	switch s {
	case SpotNew, SpotChosen, SpotOccupied, SpotDisabled:
		return true
	}
	return false
}

// ParseSpotStatus converts a stored or requested value into a SpotStatus.
func ParseSpotStatus(value string) (SpotStatus, error) {
	s := SpotStatus(value)
	if !s.Valid() {
		return "", fmt.Errorf("unknown spot status %q", value)
	}
	return s, nil
}

// Spot is a reported parking location.
type Spot struct {
	ID          int64      `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	SubmitterID int64      `json:"submitter_id"`
	Status      SpotStatus `json:"status"`
	Reports     int        `json:"reports"`
	ChosenBy    *int64     `json:"chosen_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
