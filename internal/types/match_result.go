package types

import "github.com/google/uuid"

// MatchResult is one ranked row of a requester's result set
type MatchResult struct {
	UserID          uuid.UUID `json:"user_id"`
	MatchedUserID   uuid.UUID `json:"matched_user_id"`
	MatchPercentage int       `json:"match_percentage"`
	Rank            int       `json:"rank"`
}
