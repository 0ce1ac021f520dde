package engage

import (
	"fmt"
	"math/rand"

	"xengage/internal/model"
)

// Selection is the set of picked engagers from one analysis. It is tied
// to that analysis identity: building a selection for a new analysis
// starts empty, and resampling drops prior picks.
type Selection struct {
	analysisID uint64
	picked     map[string]bool
}

// NewSelection returns an empty selection bound to a.
func NewSelection(a *Analysis) *Selection {
	return &Selection{analysisID: a.ID, picked: make(map[string]bool)}
}

// For reports whether the selection belongs to a.
func (s *Selection) For(a *Analysis) bool { return s.analysisID == a.ID }

// Toggle flips one engager in or out. Returns the new state.
func (s *Selection) Toggle(userID string) bool {
	if s.picked[userID] {
		delete(s.picked, userID)
		return false
	}
	s.picked[userID] = true
	return true
}

// Selected reports whether userID is picked.
func (s *Selection) Selected(userID string) bool { return s.picked[userID] }

// Len returns the number of picks.
func (s *Selection) Len() int { return len(s.picked) }

// Clear empties the selection.
func (s *Selection) Clear() { s.picked = make(map[string]bool) }

// Random replaces the selection with a uniform sample of 2 to 4
// engagers (fewer if the analysis is smaller). Deterministic under a
// seeded rng.
func (s *Selection) Random(a *Analysis, rng *rand.Rand) {
	s.Clear()
	n := len(a.Engagers)
	if n == 0 {
		return
	}
	k := 2 + rng.Intn(3)
	if k > n { k = n }
	for _, idx := range rng.Perm(n)[:k] {
		s.picked[a.Engagers[idx].UserID] = true
	}
}

// Candidates joins the selection with the analysis, taking the first
// recommended action as authoritative. Engagers the backend gave no
// recommendation for are skipped.
func (s *Selection) Candidates(a *Analysis) []model.CandidateAction {
	out := make([]model.CandidateAction, 0, len(s.picked))
	for _, e := range a.Engagers {
		if !s.picked[e.UserID] || len(e.RecommendedActions) == 0 {
			continue
		}
		out = append(out, model.CandidateAction{
			TargetUserID:   e.UserID,
			TargetUsername: e.Username,
			TargetTweetID:  e.RecentTweets[0].ID,
			ActionType:     e.RecommendedActions[0],
			Confidence:     e.AIScore,
			Reasoning:      fmt.Sprintf("ai score %.2f, %s risk", e.AIScore, model.RiskBand(e.AIScore)),
		})
	}
	return out
}
