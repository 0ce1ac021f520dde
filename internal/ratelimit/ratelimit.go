package ratelimit

import (
	"sync"
	"time"

	"xengage/internal/model"
)

// Op is an operation kind with its own budget.
type Op string

const (
	OpEngagerFetch Op = "engager_fetch"
	OpLike         Op = "like"
	OpRepost       Op = "repost"
)

// OpForAction maps a wire action type to its budget op.
func OpForAction(t model.ActionType) Op {
	if t == model.ActionRepost { return OpRepost }
	return OpLike
}

// Bucket is one dual-window budget: a 15-minute short window and a
// 24-hour long window, each with its own used/remaining counters.
type Bucket struct {
	ShortLimit           int     `json:"short_limit"`
	ShortUsed            int     `json:"short_used"`
	ShortRemaining       int     `json:"short_remaining"`
	LongLimit            int     `json:"long_limit"`
	LongUsed             int     `json:"long_used"`
	LongRemaining        int     `json:"long_remaining"`
	NextAvailableSeconds float64 `json:"next_available_seconds"`
	CanMakeRequest       bool    `json:"can_make_request"`
}

func newBucket(short, long int) Bucket {
	return Bucket{
		ShortLimit: short, ShortRemaining: short,
		LongLimit: long, LongRemaining: long,
		CanMakeRequest: true,
	}
}

// normalize re-derives the derived fields after any mutation. If the
// server reports more remaining than the known limit, the limit was
// raised upstream and is adopted locally.
func (b *Bucket) normalize() {
	if b.ShortRemaining < 0 { b.ShortRemaining = 0 }
	if b.LongRemaining < 0 { b.LongRemaining = 0 }
	if b.ShortRemaining > b.ShortLimit { b.ShortLimit = b.ShortUsed + b.ShortRemaining }
	if b.LongRemaining > b.LongLimit { b.LongLimit = b.LongUsed + b.LongRemaining }
	if b.NextAvailableSeconds < 0 { b.NextAvailableSeconds = 0 }
	b.CanMakeRequest = b.ShortRemaining > 0 && b.LongRemaining > 0 && b.NextAvailableSeconds == 0
}

// Snapshot is the three-bucket state, one bucket per op.
type Snapshot struct {
	EngagerFetch Bucket
	Like         Bucket
	Repost       Bucket
}

func (s *Snapshot) bucket(op Op) *Bucket {
	switch op {
	case OpEngagerFetch:
		return &s.EngagerFetch
	case OpRepost:
		return &s.Repost
	default:
		return &s.Like
	}
}

// Limits is the shared rate-limit model: three dual-window buckets plus
// the dispatch sequence bookkeeping that keeps optimistic deductions
// from being clobbered by stale reconciliations.
type Limits struct {
	mu   sync.Mutex
	snap Snapshot

	nextSeq      uint64
	completedSeq uint64
}

// Defaults returns the model primed with the platform's documented
// windows. Server snapshots replace these wholesale on the first merge.
func Defaults() *Limits {
	return &Limits{snap: Snapshot{
		EngagerFetch: newBucket(75, 7200),
		Like:         newBucket(1, 1000),
		Repost:       newBucket(50, 1000),
	}}
}

// Snapshot returns a copy of the current three-bucket state.
func (l *Limits) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Bucket returns a copy of the bucket for op.
func (l *Limits) Bucket(op Op) Bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.snap.bucket(op)
}

// Can reports whether n requests of op fit the current budget:
// both windows have room and no cooldown is pending.
func (l *Limits) Can(op Op, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.snap.bucket(op)
	return b.ShortRemaining >= n && b.LongRemaining >= n && b.NextAvailableSeconds == 0
}

// Wait returns how long until op becomes available again.
func (l *Limits) Wait(op Op) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.snap.bucket(op).NextAvailableSeconds * float64(time.Second))
}

// Projection is the result of checking a planned batch against the
// budget. Shortfall holds needed-minus-remaining per op that does not fit.
type Projection struct {
	Fits      bool
	Shortfall map[Op]int
}

// Project groups a candidate batch by action type and reports whether
// every partition fits its short window.
func (l *Limits) Project(batch []model.CandidateAction) Projection {
	need := make(map[Op]int)
	for _, a := range batch {
		need[OpForAction(a.ActionType)]++
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p := Projection{Fits: true, Shortfall: make(map[Op]int)}
	for op, n := range need {
		b := l.snap.bucket(op)
		room := b.ShortRemaining
		if b.LongRemaining < room { room = b.LongRemaining }
		if b.NextAvailableSeconds > 0 { room = 0 }
		if n > room {
			p.Fits = false
			p.Shortfall[op] = n - room
		}
	}
	return p
}

// Deduct applies an optimistic local deduction after a successful
// dispatch so the UI stops offering more than is available. Remaining
// never goes below zero; server truth wins on the next merge.
func (l *Limits) Deduct(op Op, n int) {
	if n <= 0 { return }
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.snap.bucket(op)
	if n > b.ShortRemaining { n = b.ShortRemaining }
	b.ShortUsed += n
	b.ShortRemaining -= n
	if n > b.LongRemaining {
		b.LongUsed += b.LongRemaining
		b.LongRemaining = 0
	} else {
		b.LongUsed += n
		b.LongRemaining -= n
	}
	b.normalize()
}

// Countdown decrements pending cooldowns by wall-clock elapsed time so
// countdowns stay truthful between reconciliations. A cooldown reaching
// zero flips CanMakeRequest without a server round-trip.
func (l *Limits) Countdown(elapsed time.Duration) {
	if elapsed <= 0 { return }
	secs := elapsed.Seconds()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range []*Bucket{&l.snap.EngagerFetch, &l.snap.Like, &l.snap.Repost} {
		if b.NextAvailableSeconds > 0 {
			b.NextAvailableSeconds -= secs
			b.normalize()
		}
	}
}

// BeginDispatch allocates a sequence number for a dispatch about to be
// submitted.
func (l *Limits) BeginDispatch() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSeq++
	return l.nextSeq
}

// CompleteDispatch marks seq as finished; reconciliation snapshots
// observed before this point are stale.
func (l *Limits) CompleteDispatch(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq > l.completedSeq {
		l.completedSeq = seq
	}
}

// CompletedSeq returns the highest completed dispatch sequence.
// Reconcilers capture it before fetching a server snapshot.
func (l *Limits) CompletedSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completedSeq
}

// Merge replaces the local buckets with a server snapshot. observedSeq
// is the completed-dispatch sequence captured before the snapshot was
// fetched; if a dispatch completed since, the snapshot pre-dates it and
// is dropped. Returns whether the snapshot was applied.
func (l *Limits) Merge(s Snapshot, observedSeq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if observedSeq < l.completedSeq {
		return false
	}
	s.EngagerFetch.normalize()
	s.Like.normalize()
	s.Repost.normalize()
	l.snap = s
	return true
}
