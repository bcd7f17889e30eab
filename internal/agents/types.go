// Package agents provides the player's fighting population: the warrior pool
// raids draw from and the leaders who command them.
package agents

// LeaderID is a unique identifier for a raid leader.
type LeaderID uint64

// SkillSet tracks a leader's capabilities on a 0–10 scale.
type SkillSet struct {
	Combat     float64 `json:"combat"`
	Leadership float64 `json:"leadership"`
}

// Leader is a named commander who can head one raid at a time.
type Leader struct {
	ID     LeaderID `json:"id"`
	Name   string   `json:"name"`
	Skills SkillSet `json:"skills"`
	Fame   int      `json:"fame"`
}
