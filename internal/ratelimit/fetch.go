package ratelimit

import (
	"context"

	"xengage/internal/api"
)

// Fetch retrieves the server's rate-limit snapshot. The server keys
// buckets by upstream endpoint name; they map onto the client ops as
// like->like, retweet->repost, get_liking_users->engager_fetch.
func Fetch(ctx context.Context, c *api.Client) (Snapshot, error) {
	var raw struct {
		RateLimits struct {
			Like           Bucket `json:"like"`
			Retweet        Bucket `json:"retweet"`
			GetLikingUsers Bucket `json:"get_liking_users"`
		} `json:"rate_limits"`
	}
	if err := c.GetJSON(ctx, "/api/rate-limits/my", &raw); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		EngagerFetch: raw.RateLimits.GetLikingUsers,
		Like:         raw.RateLimits.Like,
		Repost:       raw.RateLimits.Retweet,
	}, nil
}
