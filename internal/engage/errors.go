package engage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"xengage/internal/ratelimit"
)

// RateLimitedError is a local pre-flight refusal: the bucket for Op is
// empty and no request was made.
type RateLimitedError struct {
	Op         ratelimit.Op
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s budget exhausted, retry in %s", e.Op, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("%s budget exhausted", e.Op)
}

// BudgetError refuses a whole batch whose partitions do not all fit.
// No partial batch is sent. RetryAfter carries the pending cooldown per
// op when there is one.
type BudgetError struct {
	Shortfall  map[ratelimit.Op]int
	RetryAfter map[ratelimit.Op]time.Duration
}

func (e *BudgetError) Error() string {
	ops := make([]string, 0, len(e.Shortfall))
	for op := range e.Shortfall {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		p := fmt.Sprintf("%s short by %d", op, e.Shortfall[ratelimit.Op(op)])
		if wait := e.RetryAfter[ratelimit.Op(op)]; wait > 0 {
			p += fmt.Sprintf(" (retry in %s)", wait.Round(time.Second))
		}
		parts = append(parts, p)
	}
	return "batch exceeds budget: " + strings.Join(parts, ", ")
}

// ValidationError is a local input problem; no network call was made.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
