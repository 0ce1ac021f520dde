package queue

import (
	"context"
	"time"

	"xengage/internal/api"
	"xengage/internal/model"
)

// Fetch retrieves the server action queue.
func Fetch(ctx context.Context, c *api.Client) ([]model.QueuedAction, error) {
	var raw struct {
		Actions []struct {
			ID            string    `json:"id"`
			ActionType    string    `json:"action_type"`
			TargetUser    string    `json:"target_user"`
			Content       string    `json:"content"`
			ScheduledTime time.Time `json:"scheduled_time"`
			Status        string    `json:"status"`
			Error         string    `json:"error"`
		} `json:"actions"`
	}
	if err := c.GetJSON(ctx, "/api/automation/action-queue", &raw); err != nil {
		return nil, err
	}
	out := make([]model.QueuedAction, 0, len(raw.Actions))
	for _, a := range raw.Actions {
		out = append(out, model.QueuedAction{
			ID:             a.ID,
			ActionType:     model.ActionType(a.ActionType),
			TargetUsername: a.TargetUser,
			ContentPreview: a.Content,
			ScheduledTime:  a.ScheduledTime,
			Status:         model.ActionStatus(a.Status),
			Error:          a.Error,
		})
	}
	return out, nil
}
