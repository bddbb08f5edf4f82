package moderation

import (
	"sync"
	"time"
)

// A moderator's outstanding commitment to supply a reject reason for
// one specific confession. The claimed record rides along so a
// displaced or expired intent can return it to the pending set.
type RejectionIntent struct {
	Confession *Confession
	CreatedAt  time.Time
}

// Registry owns all mutable moderation state: the pending set, the
// set of claimed (in-flight) ids, the write-once resolved set, and
// per-moderator rejection intents. No caller touches the underlying
// maps; every operation is a single critical section under one lock,
// which makes claim/insert/resolve linearizable with respect to each
// other.
type Registry struct {
	lk       sync.Mutex
	pending  map[string]*Confession
	claimed  map[string]bool
	resolved map[string]bool
	intents  map[int64]*RejectionIntent
}

func NewRegistry() *Registry {
	return &Registry{
		pending:  make(map[string]*Confession),
		claimed:  make(map[string]bool),
		resolved: make(map[string]bool),
		intents:  make(map[int64]*RejectionIntent),
	}
}

// Insert adds a confession to the pending set. Ids are deterministic,
// so a redelivered submission lands on the same key instead of
// creating a second record. Inserting an id that already reached a
// terminal outcome, or that a moderator currently holds claimed, is a
// no-op: a redelivery must never put an in-flight record back where a
// second moderator could claim it.
func (r *Registry) Insert(rec *Confession) {
	r.lk.Lock()
	defer r.lk.Unlock()
	if r.resolved[rec.ID] || r.claimed[rec.ID] {
		return
	}
	r.pending[rec.ID] = rec
}

// Claim atomically removes a confession from the pending set and
// hands it to the caller. At most one Claim per id ever succeeds: the
// remove-and-return under the lock is what guarantees no two
// moderators can act on the same record. Returns ErrAlreadyResolved
// for finished ids and ErrAlreadyClaimed for ids absent from pending
// (never existed, or claimed by someone else).
func (r *Registry) Claim(id string) (*Confession, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	if r.resolved[id] {
		return nil, ErrAlreadyResolved
	}
	rec, ok := r.pending[id]
	if !ok {
		return nil, ErrAlreadyClaimed
	}
	delete(r.pending, id)
	r.claimed[id] = true
	return rec, nil
}

// Unclaim returns a claimed record to the pending set. Used when
// publishing fails after a successful claim, so any moderator can
// retry later.
func (r *Registry) Unclaim(rec *Confession) {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.restore(rec)
}

// restore moves a claimed record back to pending. Callers hold the lock.
func (r *Registry) restore(rec *Confession) {
	delete(r.claimed, rec.ID)
	if r.resolved[rec.ID] {
		return
	}
	r.pending[rec.ID] = rec
}

// MarkResolved records a terminal outcome. Insertion is permanent for
// the process lifetime.
func (r *Registry) MarkResolved(id string) {
	r.lk.Lock()
	defer r.lk.Unlock()
	delete(r.claimed, id)
	r.resolved[id] = true
}

func (r *Registry) IsResolved(id string) bool {
	r.lk.Lock()
	defer r.lk.Unlock()
	return r.resolved[id]
}

// SetIntent installs a rejection intent for a moderator. A moderator
// holds at most one slot: if they click reject on a second confession
// before supplying the first reason, the displaced record is returned
// to the pending set in the same critical section (so it is never
// stranded outside every set) and handed back to the caller.
func (r *Registry) SetIntent(moderatorID int64, rec *Confession) *RejectionIntent {
	r.lk.Lock()
	defer r.lk.Unlock()
	displaced := r.intents[moderatorID]
	if displaced != nil {
		r.restore(displaced.Confession)
	}
	r.intents[moderatorID] = &RejectionIntent{
		Confession: rec,
		CreatedAt:  time.Now(),
	}
	return displaced
}

// TakeIntent removes and returns the moderator's outstanding intent,
// or nil if there is none. Read-once semantics: two concurrent
// callers cannot both observe the same intent.
func (r *Registry) TakeIntent(moderatorID int64) *RejectionIntent {
	r.lk.Lock()
	defer r.lk.Unlock()
	intent, ok := r.intents[moderatorID]
	if !ok {
		return nil
	}
	delete(r.intents, moderatorID)
	return intent
}

// ExpireIntents drops intents older than maxAge and returns their
// records to the pending set, so a moderator who goes silent after
// clicking reject does not park a confession forever. Returns the
// restored records.
func (r *Registry) ExpireIntents(maxAge time.Duration) []*Confession {
	r.lk.Lock()
	defer r.lk.Unlock()
	cutoff := time.Now().Add(-maxAge)
	var restored []*Confession
	for mod, intent := range r.intents {
		if intent.CreatedAt.After(cutoff) {
			continue
		}
		delete(r.intents, mod)
		if r.resolved[intent.Confession.ID] {
			continue
		}
		r.restore(intent.Confession)
		restored = append(restored, intent.Confession)
	}
	return restored
}

// PendingCount reports the size of the pending set, for health output.
func (r *Registry) PendingCount() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return len(r.pending)
}

// ResolvedCount reports how many confessions reached a terminal outcome.
func (r *Registry) ResolvedCount() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return len(r.resolved)
}
