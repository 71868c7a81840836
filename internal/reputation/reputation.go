// Package reputation derives a user's standing from their sharing history.
package reputation

import (
	"math"

	"github.com/hongminglow/parkshare/internal/models"
)

const (
	sharedWeight   = 10
	foundWeight    = 2
	accuracyWeight = 5
)

// Score returns the reputation of u rounded to two decimals.
//
// The accuracy term currently counts every shared spot as accurate. Folding
// in the report ratio of shared spots would make it meaningful.
func Score(u models.User) float64 {
	score := float64(sharedWeight*u.SpotsShared + foundWeight*u.SpotsFound)
	if u.SpotsShared > 0 {
		score += float64(accuracyWeight * u.SpotsShared)
	}
	return math.Round(score*100) / 100
}

// Summarize builds the caller-facing view of u.
func Summarize(u models.User) models.UserSummary {
	return models.UserSummary{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Credits:       u.Credits,
		SpotsShared:   u.SpotsShared,
		CreditsEarned: u.CreditsEarned,
		SpotsFound:    u.SpotsFound,
		Reputation:    Score(u),
	}
}
