package queue

import (
	"testing"

	"xengage/internal/model"
)

func TestMergeServerReplacesLocalView(t *testing.T) {
	q := New()
	q.Append(model.QueuedAction{ID: "local-1", Status: model.StatusCompleted})
	q.Append(model.QueuedAction{ID: "local-2", Status: model.StatusFailed})

	q.MergeServer([]model.QueuedAction{
		{ID: "s1", Status: model.StatusRunning},
		{ID: "s2", Status: model.StatusPending},
		{ID: "s3", Status: model.StatusCompleted},
	})
	items := q.Items()
	if len(items) != 3 { t.Fatalf("items %d, want 3", len(items)) }
	for _, it := range items {
		if it.ID == "local-1" || it.ID == "local-2" {
			t.Fatalf("server-dropped entry survived the merge: %s", it.ID)
		}
	}
}

func TestMergeServerEmptyClearsQueue(t *testing.T) {
	q := New()
	q.Append(model.QueuedAction{ID: "x"})
	q.MergeServer(nil)
	if len(q.Items()) != 0 { t.Fatal("empty server view should clear the queue") }
}

func TestCounts(t *testing.T) {
	q := New()
	q.Append(model.QueuedAction{Status: model.StatusCompleted})
	q.Append(model.QueuedAction{Status: model.StatusCompleted})
	q.Append(model.QueuedAction{Status: model.StatusFailed})
	q.Append(model.QueuedAction{Status: model.StatusPending})
	c := q.Counts()
	if c[model.StatusCompleted] != 2 || c[model.StatusFailed] != 1 || c[model.StatusPending] != 1 {
		t.Fatalf("counts %v", c)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	q := New()
	q.Append(model.QueuedAction{ID: "a"})
	items := q.Items()
	items[0].ID = "mutated"
	if q.Items()[0].ID != "a" { t.Fatal("Items must not expose internal storage") }
}
