package engage

import (
	"context"
	"time"

	"xengage/internal/api"
	"xengage/internal/metrics"
	"xengage/internal/model"
	"xengage/internal/queue"
	"xengage/internal/ratelimit"
	"xengage/internal/store/actionlog"
	"xengage/internal/util"
	"xengage/internal/vault"
)

// ActionResult is the server's verdict on one dispatched action.
type ActionResult struct {
	ActionType     model.ActionType `json:"action_type"`
	TargetUserID   string           `json:"target_user_id"`
	TargetUsername string           `json:"target_username"`
	TargetTweetID  string           `json:"target_tweet_id"`
	Success        bool             `json:"success"`
	Error          string           `json:"error"`
	ContentPreview string           `json:"content_preview"`
}

// DispatchResult summarizes one executed batch. Successes are not
// rolled back when siblings fail.
type DispatchResult struct {
	Executed int
	Results  []ActionResult
}

// Failures returns the per-item failures with their error field.
func (r *DispatchResult) Failures() []ActionResult {
	var out []ActionResult
	for _, a := range r.Results {
		if !a.Success {
			out = append(out, a)
		}
	}
	return out
}

// Dispatcher submits selected candidate batches. It gates the whole
// batch pre-flight, deducts budget only for server-confirmed successes,
// and appends results to the local queue for instant feedback until the
// next reconciliation.
type Dispatcher struct {
	api    *api.Client
	limits *ratelimit.Limits
	queue  *queue.Queue
	log    *actionlog.DB // optional; nil skips the local journal
	now    func() time.Time
}

func NewDispatcher(a *api.Client, l *ratelimit.Limits, q *queue.Queue, log *actionlog.DB) *Dispatcher {
	return &Dispatcher{api: a, limits: l, queue: q, log: log, now: time.Now}
}

// Dispatch derives candidates from the selection, refuses the whole
// batch if any partition exceeds its budget, and otherwise posts it.
// ticket is consumed only when non-nil (vault cache cold).
func (d *Dispatcher) Dispatch(ctx context.Context, a *Analysis, sel *Selection, ticket *vault.UnlockTicket) (*DispatchResult, error) {
	if !sel.For(a) {
		return nil, &ValidationError{Msg: "selection belongs to a different analysis"}
	}
	batch := sel.Candidates(a)
	if len(batch) == 0 {
		return nil, &ValidationError{Msg: "selection is empty"}
	}
	if proj := d.limits.Project(batch); !proj.Fits {
		retry := make(map[ratelimit.Op]time.Duration)
		for op := range proj.Shortfall {
			if wait := d.limits.Wait(op); wait > 0 {
				retry[op] = wait
			}
		}
		return nil, &BudgetError{Shortfall: proj.Shortfall, RetryAfter: retry}
	}

	body := struct {
		SelectedActions []model.CandidateAction `json:"selected_actions"`
		UserPassword    string                  `json:"user_password,omitempty"`
	}{SelectedActions: batch}
	if ticket != nil {
		if pw, ok := ticket.Use(); ok {
			body.UserPassword = pw
		}
	}

	seq := d.limits.BeginDispatch()
	metrics.DispatchRuns.Inc()
	var resp struct {
		Success       bool           `json:"success"`
		ExecutedCount int            `json:"executed_count"`
		Results       []ActionResult `json:"results"`
	}
	if err := d.api.PostJSON(ctx, "/api/automation/execute-actions", body, &resp); err != nil {
		// Nothing was deducted; reconciliation will self-heal if the
		// server nonetheless acted.
		return nil, err
	}

	now := d.now().UTC()
	for _, r := range resp.Results {
		status := model.StatusCompleted
		if !r.Success {
			status = model.StatusFailed
		}
		d.queue.Append(model.QueuedAction{
			ActionType:     r.ActionType,
			TargetUsername: r.TargetUsername,
			TargetTweetID:  r.TargetTweetID,
			ContentPreview: util.TrimPreview(r.ContentPreview, 120),
			Status:         status,
			ScheduledTime:  now,
			Error:          r.Error,
		})
		metrics.IncActionExecuted(string(r.ActionType), r.Success)
		if r.Success {
			d.limits.Deduct(ratelimit.OpForAction(r.ActionType), 1)
		}
		if d.log != nil {
			_ = d.log.RecordAction(ctx, now, string(r.ActionType), r.TargetUsername, r.TargetTweetID, r.Success, r.Error)
		}
	}
	d.limits.CompleteDispatch(seq)
	sel.Clear()

	return &DispatchResult{Executed: resp.ExecutedCount, Results: resp.Results}, nil
}
