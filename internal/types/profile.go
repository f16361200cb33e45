package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ProfileRecord is the slice of a user's profile row the matching engine reads
type ProfileRecord struct {
	UserID              uuid.UUID       `json:"user_id"`
	OnboardingCompleted bool            `json:"onboarding_completed"`
	OnboardingData      json.RawMessage `json:"onboarding_data,omitempty"`
	// Embedding is nil when no cached embedding exists or the stored value could not be decoded
	Embedding []float32 `json:"embedding,omitempty"`
}
