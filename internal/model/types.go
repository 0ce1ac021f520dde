package model

import "time"

// ActionType is the kind of engagement action the backend can execute.
type ActionType string

const (
	ActionLike   ActionType = "like"
	ActionRepost ActionType = "repost"
)

// ActionStatus is the lifecycle state of a queued action.
// pending -> running -> completed | failed; terminal states are sticky
// until the server drops the record.
type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusRunning   ActionStatus = "running"
	StatusCompleted ActionStatus = "completed"
	StatusFailed    ActionStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s ActionStatus) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// UserProfile is the signed-in account as the backend reports it.
type UserProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// RecentTweet is one of an engager's latest posts, newest first.
type RecentTweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Engager is a user who engaged with the analyzed tweet, scored by the
// backend's AI pass. Immutable once produced.
type Engager struct {
	UserID             string        `json:"user_id"`
	Username           string        `json:"username"`
	RecentTweets       []RecentTweet `json:"recent_tweets"`
	AIScore            float64       `json:"ai_score"`
	RecommendedActions []ActionType  `json:"recommended_actions"`
}

// CandidateAction is one action derived from a selected engager, ready
// to be dispatched. TargetTweetID belongs to TargetUserID.
type CandidateAction struct {
	TargetUserID   string     `json:"target_user_id"`
	TargetUsername string     `json:"target_username"`
	TargetTweetID  string     `json:"target_tweet_id"`
	ActionType     ActionType `json:"action_type"`
	Confidence     float64    `json:"confidence"`
	Reasoning      string     `json:"reasoning"`
}

// QueuedAction is one entry of the server-side action queue as the
// client views it.
type QueuedAction struct {
	ID             string
	ActionType     ActionType
	TargetUsername string
	TargetTweetID  string
	ContentPreview string
	Status         ActionStatus
	ScheduledTime  time.Time
	Error          string
}
