package engage

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"xengage/internal/api"
	"xengage/internal/metrics"
	"xengage/internal/model"
	"xengage/internal/ratelimit"
	"xengage/internal/vault"
)

var analysisSeq uint64

// Analysis is one completed engager analysis. Selections are tied to a
// single analysis identity, not to user IDs across analyses.
type Analysis struct {
	ID              uint64
	TweetURL        string
	Engagers        []model.Engager
	TotalEngagement int
}

// Analyzer turns one tweet URL into a ranked list of scored engagers.
// It spends exactly one engager-fetch credit per call and never retries
// on its own; a second user press is required.
type Analyzer struct {
	api    *api.Client
	limits *ratelimit.Limits

	mu             sync.Mutex
	processedUsers int
	totalAnalyzed  int
}

func NewAnalyzer(a *api.Client, l *ratelimit.Limits) *Analyzer {
	return &Analyzer{api: a, limits: l}
}

// Stats returns the running processed-users / total-analyzed counters.
func (z *Analyzer) Stats() (processedUsers, totalAnalyzed int) {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.processedUsers, z.totalAnalyzed
}

// ValidateTweetURL checks the URL names a concrete tweet and returns
// its ID.
func ValidateTweetURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &ValidationError{Msg: "tweet URL is malformed"}
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "twitter.com" && host != "x.com" {
		return "", &ValidationError{Msg: "tweet URL must point at twitter.com or x.com"}
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "status" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", &ValidationError{Msg: "tweet URL has no status ID"}
}

// Analyze gates against the engager-fetch budget, runs the backend
// analysis, and drops engagers that came back without a recent post.
// ticket is consumed only when non-nil (vault cache cold).
func (z *Analyzer) Analyze(ctx context.Context, tweetURL string, ticket *vault.UnlockTicket) (*Analysis, error) {
	if _, err := ValidateTweetURL(tweetURL); err != nil {
		return nil, err
	}
	if !z.limits.Can(ratelimit.OpEngagerFetch, 1) {
		return nil, &RateLimitedError{Op: ratelimit.OpEngagerFetch, RetryAfter: z.limits.Wait(ratelimit.OpEngagerFetch)}
	}
	body := struct {
		TweetURL     string `json:"tweet_url"`
		UserPassword string `json:"user_password,omitempty"`
	}{TweetURL: tweetURL}
	if ticket != nil {
		if pw, ok := ticket.Use(); ok {
			body.UserPassword = pw
		}
	}
	start := time.Now()
	metrics.AnalyzeRuns.Inc()
	var resp struct {
		Success             bool            `json:"success"`
		AnalyzedUsers       []model.Engager `json:"analyzed_users"`
		TotalEngagementCount int            `json:"total_engagement_count"`
	}
	if err := z.api.PostJSON(ctx, "/api/automation/analyze-engaging-users", body, &resp); err != nil {
		metrics.AnalyzeErrors.Inc()
		return nil, err
	}
	metrics.ObserveAnalyzeDuration(start)

	// Partial results are fine: engagers missing a recent post are not
	// candidates and are dropped, not surfaced as errors.
	engagers := make([]model.Engager, 0, len(resp.AnalyzedUsers))
	for _, e := range resp.AnalyzedUsers {
		if len(e.RecentTweets) == 0 {
			continue
		}
		engagers = append(engagers, e)
	}

	z.limits.Deduct(ratelimit.OpEngagerFetch, 1)
	z.mu.Lock()
	z.processedUsers += len(engagers)
	z.totalAnalyzed++
	z.mu.Unlock()

	return &Analysis{
		ID:              atomic.AddUint64(&analysisSeq, 1),
		TweetURL:        tweetURL,
		Engagers:        engagers,
		TotalEngagement: resp.TotalEngagementCount,
	}, nil
}
