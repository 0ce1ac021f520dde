package engage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xengage/internal/api"
	"xengage/internal/model"
	"xengage/internal/queue"
	"xengage/internal/ratelimit"
	"xengage/internal/store/actionlog"
)

// dispatchServer fakes /api/automation/execute-actions, answering with
// the given per-item successes in request order.
func dispatchServer(t *testing.T, successes []bool, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		var req struct {
			SelectedActions []model.CandidateAction `json:"selected_actions"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.SelectedActions) != len(successes) {
			t.Errorf("batch size %d, want %d", len(req.SelectedActions), len(successes))
		}
		type result struct {
			ActionType     model.ActionType `json:"action_type"`
			TargetUserID   string           `json:"target_user_id"`
			TargetUsername string           `json:"target_username"`
			TargetTweetID  string           `json:"target_tweet_id"`
			Success        bool             `json:"success"`
			Error          string           `json:"error,omitempty"`
			ContentPreview string           `json:"content_preview,omitempty"`
		}
		out := struct {
			Success       bool     `json:"success"`
			ExecutedCount int      `json:"executed_count"`
			Results       []result `json:"results"`
		}{Success: true}
		for i, a := range req.SelectedActions {
			r := result{
				ActionType:     a.ActionType,
				TargetUserID:   a.TargetUserID,
				TargetUsername: a.TargetUsername,
				TargetTweetID:  a.TargetTweetID,
				Success:        successes[i],
				ContentPreview: "some tweet text",
			}
			if successes[i] {
				out.ExecutedCount++
			} else {
				r.Error = "already liked"
			}
			out.Results = append(out.Results, r)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
}

func roomyLimits() *ratelimit.Limits {
	l := ratelimit.Defaults()
	snap := l.Snapshot()
	snap.Like = ratelimit.Bucket{ShortLimit: 50, ShortRemaining: 50, LongLimit: 1000, LongRemaining: 1000}
	l.Merge(snap, l.CompletedSeq())
	return l
}

func TestDispatchPartialSuccess(t *testing.T) {
	hits := 0
	ts := dispatchServer(t, []bool{true, false, true}, &hits)
	defer ts.Close()
	limits := roomyLimits()
	preLike := limits.Bucket(ratelimit.OpLike)
	q := queue.New()
	log, err := actionlog.Open(":memory:")
	if err != nil { t.Fatal(err) }
	defer log.Close()

	a := analysisOf(3)
	sel := NewSelection(a)
	for _, e := range a.Engagers {
		sel.Toggle(e.UserID)
	}
	d := NewDispatcher(api.NewClient(ts.URL), limits, q, log)
	res, err := d.Dispatch(context.Background(), a, sel, nil)
	if err != nil { t.Fatal(err) }

	if res.Executed != 2 { t.Fatalf("executed %d, want 2", res.Executed) }
	items := q.Items()
	if len(items) != 3 { t.Fatalf("queue entries %d, want 3", len(items)) }
	want := []model.ActionStatus{model.StatusCompleted, model.StatusFailed, model.StatusCompleted}
	for i, it := range items {
		if it.Status != want[i] {
			t.Fatalf("entry %d status %s, want %s", i, it.Status, want[i])
		}
	}
	if items[1].Error != "already liked" {
		t.Fatalf("failure reason missing, got %q", items[1].Error)
	}

	// budget deducted only for the two successes
	postLike := limits.Bucket(ratelimit.OpLike)
	if postLike.ShortUsed-preLike.ShortUsed != 2 {
		t.Fatalf("like short used moved by %d, want 2", postLike.ShortUsed-preLike.ShortUsed)
	}
	likes, reposts, err := log.TodayCounts(context.Background(), time.Now().UTC())
	if err != nil { t.Fatal(err) }
	if likes != 2 || reposts != 0 {
		t.Fatalf("today counts %d/%d, want 2/0", likes, reposts)
	}
	if sel.Len() != 0 { t.Fatal("selection must be cleared after dispatch") }
	if hits != 1 { t.Fatalf("server hits %d, want 1", hits) }
}

func TestDispatchRefusesShortfallWithoutNetwork(t *testing.T) {
	hits := 0
	ts := dispatchServer(t, nil, &hits)
	defer ts.Close()
	limits := ratelimit.Defaults()
	snap := limits.Snapshot()
	snap.Like = ratelimit.Bucket{ShortLimit: 10, ShortUsed: 8, ShortRemaining: 2, LongLimit: 1000, LongRemaining: 1000}
	limits.Merge(snap, limits.CompletedSeq())

	a := analysisOf(3)
	sel := NewSelection(a)
	for _, e := range a.Engagers {
		sel.Toggle(e.UserID)
	}
	d := NewDispatcher(api.NewClient(ts.URL), limits, queue.New(), nil)
	_, err := d.Dispatch(context.Background(), a, sel, nil)
	var be *BudgetError
	if !errors.As(err, &be) { t.Fatalf("want BudgetError, got %v", err) }
	if be.Shortfall[ratelimit.OpLike] != 1 {
		t.Fatalf("shortfall %d, want 1", be.Shortfall[ratelimit.OpLike])
	}
	if hits != 0 { t.Fatal("refused batch must not be sent, not even partially") }
	if sel.Len() != 3 { t.Fatal("refusal must leave the selection intact") }
}

func TestDispatchEmptyBucketCitesCooldown(t *testing.T) {
	hits := 0
	ts := dispatchServer(t, nil, &hits)
	defer ts.Close()
	limits := ratelimit.Defaults()
	snap := limits.Snapshot()
	snap.Like = ratelimit.Bucket{ShortLimit: 1, ShortUsed: 1, ShortRemaining: 0, LongLimit: 1000, LongRemaining: 999, NextAvailableSeconds: 600}
	limits.Merge(snap, limits.CompletedSeq())

	a := analysisOf(1)
	sel := NewSelection(a)
	sel.Toggle(a.Engagers[0].UserID)
	d := NewDispatcher(api.NewClient(ts.URL), limits, queue.New(), nil)
	_, err := d.Dispatch(context.Background(), a, sel, nil)
	var be *BudgetError
	if !errors.As(err, &be) { t.Fatalf("want BudgetError, got %v", err) }
	if be.RetryAfter[ratelimit.OpLike] != 10*time.Minute {
		t.Fatalf("retry after %s, want 10m", be.RetryAfter[ratelimit.OpLike])
	}
	if hits != 0 { t.Fatal("no network call on an empty bucket") }
}

func TestDispatchRejectsForeignSelection(t *testing.T) {
	hits := 0
	ts := dispatchServer(t, nil, &hits)
	defer ts.Close()
	a := analysisOf(2)
	other := analysisOf(2)
	other.ID++
	sel := NewSelection(other)
	sel.Toggle(other.Engagers[0].UserID)
	d := NewDispatcher(api.NewClient(ts.URL), roomyLimits(), queue.New(), nil)
	_, err := d.Dispatch(context.Background(), a, sel, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) { t.Fatalf("want ValidationError, got %v", err) }
	if hits != 0 { t.Fatal("no network call for a stale selection") }
}

func TestDispatchEmptySelection(t *testing.T) {
	a := analysisOf(2)
	sel := NewSelection(a)
	d := NewDispatcher(api.NewClient("http://unreachable.invalid"), roomyLimits(), queue.New(), nil)
	_, err := d.Dispatch(context.Background(), a, sel, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) { t.Fatalf("want ValidationError, got %v", err) }
}
