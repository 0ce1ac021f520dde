package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xengage/internal/api"
	"xengage/internal/model"
	"xengage/internal/queue"
	"xengage/internal/ratelimit"
	"xengage/internal/session"
)

const limitsJSON = `{"rate_limits":{
	"like":{"short_limit":1,"short_used":0,"short_remaining":1,"long_limit":1000,"long_used":3,"long_remaining":997},
	"retweet":{"short_limit":50,"short_used":2,"short_remaining":48,"long_limit":1000,"long_used":2,"long_remaining":998},
	"get_liking_users":{"short_limit":75,"short_used":5,"short_remaining":70,"long_limit":7200,"long_used":5,"long_remaining":7195}}}`

const queueJSON = `{"actions":[
	{"id":"q1","action_type":"like","target_user":"alice","status":"completed"},
	{"id":"q2","action_type":"repost","target_user":"bob","status":"pending"}]}`

func TestTickMergesServerState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/automation/action-queue":
			_, _ = w.Write([]byte(queueJSON))
		case "/api/rate-limits/my":
			_, _ = w.Write([]byte(limitsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client := api.NewClient(ts.URL)
	limits := ratelimit.Defaults()
	q := queue.New()
	q.Append(model.QueuedAction{ID: "local", ActionType: model.ActionLike, Status: model.StatusCompleted})

	r := New(client, session.New(client), limits, q, time.Minute)
	if err := r.Tick(context.Background()); err != nil { t.Fatal(err) }

	items := q.Items()
	if len(items) != 2 || items[0].ID != "q1" || items[1].ID != "q2" {
		t.Fatalf("queue not replaced with server view: %+v", items)
	}
	if got := limits.Bucket(ratelimit.OpRepost).ShortUsed; got != 2 {
		t.Fatalf("repost short used %d, want server value 2", got)
	}
	if got := limits.Bucket(ratelimit.OpEngagerFetch).ShortRemaining; got != 70 {
		t.Fatalf("engager fetch remaining %d, want 70", got)
	}
}

func TestTickKeepsOptimisticStateWhenDispatchRaces(t *testing.T) {
	limits := ratelimit.Defaults()
	snap := limits.Snapshot()
	snap.Like = ratelimit.Bucket{ShortLimit: 5, ShortRemaining: 5, LongLimit: 1000, LongRemaining: 1000}
	limits.Merge(snap, limits.CompletedSeq())

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/automation/action-queue":
			_, _ = w.Write([]byte(`{"actions":[]}`))
		case "/api/rate-limits/my":
			// A dispatch lands while this snapshot is in flight.
			seq := limits.BeginDispatch()
			limits.Deduct(ratelimit.OpLike, 2)
			limits.CompleteDispatch(seq)
			_, _ = w.Write([]byte(`{"rate_limits":{
				"like":{"short_limit":5,"short_used":0,"short_remaining":5,"long_limit":1000,"long_used":0,"long_remaining":1000},
				"retweet":{"short_limit":50,"short_remaining":50,"long_limit":1000,"long_remaining":1000},
				"get_liking_users":{"short_limit":75,"short_remaining":75,"long_limit":7200,"long_remaining":7200}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client := api.NewClient(ts.URL)
	r := New(client, session.New(client), limits, queue.New(), time.Minute)
	if err := r.Tick(context.Background()); err != nil { t.Fatal(err) }

	if got := limits.Bucket(ratelimit.OpLike).ShortRemaining; got != 3 {
		t.Fatalf("stale snapshot clobbered optimistic state: remaining %d, want 3", got)
	}
}

func TestRunStopsOnExpiredToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"u1","email":"a@b.c","username":"a"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer ts.Close()

	client := api.NewClient(ts.URL)
	sess := session.New(client)
	if err := sess.Login(context.Background(), "a@b.c", "password1"); err != nil { t.Fatal(err) }

	r := New(client, sess, ratelimit.Defaults(), queue.New(), time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.Run(ctx)
	if err == nil || !api.IsAuthRequired(err) {
		t.Fatalf("run should stop with the auth error, got %v", err)
	}
	if sess.Authenticated() { t.Fatal("session must be expired") }
	if client.Token() != "" { t.Fatal("token must be cleared") }
}

func TestKickCoalesces(t *testing.T) {
	client := api.NewClient("http://unreachable.invalid")
	r := New(client, session.New(client), ratelimit.Defaults(), queue.New(), time.Minute)
	// Never blocks, even with no running loop draining the channel.
	r.Kick()
	r.Kick()
	r.Kick()
	if len(r.kick) != 1 { t.Fatalf("kick channel depth %d, want 1", len(r.kick)) }
}
