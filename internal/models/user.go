package models

import "time"

// User captures the account fields the spot engine reads and mutates.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Credits       int       `json:"credits"`
	SpotsShared   int       `json:"spots_shared"`
	CreditsEarned int       `json:"credits_earned"`
	SpotsFound    int       `json:"spots_found"`
	CreatedAt     time.Time `json:"-"`
}

// UserDelta is a signed change applied to a user's counters in one statement.
type UserDelta struct {
	Credits       int
	CreditsEarned int
	SpotsShared   int
	SpotsFound    int
}

// UserSummary is the caller-facing view of a user, including the derived reputation.
type UserSummary struct {
	ID            int64   `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	Credits       int     `json:"credits"`
	SpotsShared   int     `json:"spots_shared"`
	CreditsEarned int     `json:"credits_earned"`
	SpotsFound    int     `json:"spots_found"`
	Reputation    float64 `json:"reputation"`
}
