package dto

import "github.com/hongminglow/parkshare/internal/models"

// SubmitSpotRequest carries the spot position and where the submitter stands.
// Pointers distinguish a missing coordinate from zero.
type SubmitSpotRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	UserLatitude  *float64 `json:"user_latitude"`
	UserLongitude *float64 `json:"user_longitude"`
}

type SpotResponse struct {
	Spot models.Spot `json:"spot"`
}

type ProfileResponse struct {
	User models.UserSummary `json:"user"`
}

type LedgerResponse struct {
	Entries []models.LedgerEntry `json:"entries"`
}
