package engage

import (
	"math/rand"
	"reflect"
	"testing"

	"xengage/internal/model"
)

func analysisOf(n int) *Analysis {
	a := &Analysis{ID: uint64(n) + 1000, TweetURL: "https://x.com/u/status/1"}
	for i := 0; i < n; i++ {
		a.Engagers = append(a.Engagers, model.Engager{
			UserID:             string(rune('a' + i)),
			Username:           "user" + string(rune('a'+i)),
			RecentTweets:       []model.RecentTweet{{ID: "t1", Text: "x"}, {ID: "t0", Text: "y"}},
			AIScore:            0.9,
			RecommendedActions: []model.ActionType{model.ActionLike, model.ActionRepost},
		})
	}
	return a
}

func picks(s *Selection, a *Analysis) map[string]bool {
	out := make(map[string]bool)
	for _, e := range a.Engagers {
		if s.Selected(e.UserID) { out[e.UserID] = true }
	}
	return out
}

func TestRandomSampleDeterministicUnderSeed(t *testing.T) {
	a := analysisOf(6)
	s1 := NewSelection(a)
	s1.Random(a, rand.New(rand.NewSource(7)))
	s2 := NewSelection(a)
	s2.Random(a, rand.New(rand.NewSource(7)))
	if !reflect.DeepEqual(picks(s1, a), picks(s2, a)) {
		t.Fatalf("same seed, different samples: %v vs %v", picks(s1, a), picks(s2, a))
	}
	if n := s1.Len(); n < 2 || n > 4 {
		t.Fatalf("sample size %d, want 2..4", n)
	}
}

func TestRandomSampleClampsToListSize(t *testing.T) {
	a := analysisOf(1)
	s := NewSelection(a)
	s.Random(a, rand.New(rand.NewSource(1)))
	if s.Len() != 1 { t.Fatalf("sample size %d, want 1", s.Len()) }
}

func TestRandomDropsPriorSelection(t *testing.T) {
	a := analysisOf(6)
	s := NewSelection(a)
	s.Toggle(a.Engagers[0].UserID)
	s.Random(a, rand.New(rand.NewSource(3)))
	fresh := NewSelection(a)
	fresh.Random(a, rand.New(rand.NewSource(3)))
	if !reflect.DeepEqual(picks(s, a), picks(fresh, a)) {
		t.Fatalf("resample should drop prior picks: %v vs %v", picks(s, a), picks(fresh, a))
	}
}

func TestToggleFlips(t *testing.T) {
	a := analysisOf(2)
	s := NewSelection(a)
	if on := s.Toggle("a"); !on { t.Fatal("first toggle should select") }
	if on := s.Toggle("a"); on { t.Fatal("second toggle should deselect") }
	if s.Len() != 0 { t.Fatalf("len %d, want 0", s.Len()) }
}

func TestCandidatesUseFirstRecommendedAction(t *testing.T) {
	a := analysisOf(3)
	a.Engagers[1].RecommendedActions = []model.ActionType{model.ActionRepost}
	a.Engagers[2].RecommendedActions = nil // backend gave no recommendation
	s := NewSelection(a)
	for _, e := range a.Engagers {
		s.Toggle(e.UserID)
	}
	cands := s.Candidates(a)
	if len(cands) != 2 { t.Fatalf("candidates %d, want 2 (unrecommended skipped)", len(cands)) }
	if cands[0].ActionType != model.ActionLike { t.Fatalf("first action %s", cands[0].ActionType) }
	if cands[1].ActionType != model.ActionRepost { t.Fatalf("second action %s", cands[1].ActionType) }
	if cands[0].TargetTweetID != "t1" { t.Fatalf("target tweet %s, want most recent", cands[0].TargetTweetID) }
	if cands[0].Confidence != 0.9 { t.Fatalf("confidence %v", cands[0].Confidence) }
}
