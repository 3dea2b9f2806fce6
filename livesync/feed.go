package livesync

import (
	"errors"
	"sync"

	"danceforchange/errs"
	"danceforchange/models"
)

// MutationState tracks the reconciliation state of one post's local
// representation against server truth.
type MutationState int

const (
	// StateIdle: the local copy is whatever the server last sent.
	StateIdle MutationState = iota
	// StatePending: an optimistic local delta is applied and the
	// authoritative outcome has not arrived yet.
	StatePending
	// StateConfirmed: server truth replaced the optimistic projection.
	StateConfirmed
)

// ErrMutationPending rejects a second mutation on a post while one is
// still in flight. Debounce-by-flag, not a queue.
var ErrMutationPending = errors.New("mutation already in flight for this post")

type feedEntry struct {
	post     models.Post
	state    MutationState
	snapshot models.Post // rollback target, valid while Pending
}

// Feed is the derived, reconcilable copy of the MindTalk list. It
// never owns canonical state: every server event and REST response is
// a full replace of the affected post, so duplicate or out-of-order
// arrivals cannot corrupt it.
type Feed struct {
	mu      sync.Mutex
	order   []string // post ids, newest first
	entries map[string]*feedEntry
}

func NewFeed() *Feed {
	return &Feed{entries: make(map[string]*feedEntry)}
}

// Replace swaps the whole feed for a fresh authoritative list. Used
// after a manual refresh, e.g. when live updates were unavailable.
func (f *Feed) Replace(posts []models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.order = f.order[:0]
	f.entries = make(map[string]*feedEntry, len(posts))
	for _, p := range posts {
		id := p.ID.Hex()
		f.order = append(f.order, id)
		f.entries[id] = &feedEntry{post: p, state: StateIdle}
	}
}

// ApplyServer merges an authoritative post: the local representation
// is fully replaced, never merged field by field. Unknown posts are
// inserted at the front (new-post); known posts keep their position.
// Any pending optimistic projection is discarded, which is what makes
// a REST response and the matching broadcast arriving in either order
// harmless.
func (f *Feed) ApplyServer(post models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := post.ID.Hex()
	if e, ok := f.entries[id]; ok {
		e.post = post
		e.state = StateConfirmed
		return
	}
	f.order = append([]string{id}, f.order...)
	f.entries[id] = &feedEntry{post: post, state: StateConfirmed}
}

// ApplyDelete drops a post by id. Idempotent.
func (f *Feed) ApplyDelete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[id]; !ok {
		return
	}
	delete(f.entries, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// BeginMutation snapshots the post and applies an optimistic local
// delta. Fails with ErrMutationPending while a previous mutation on
// the same post is unsettled, and with a not-found error for unknown
// posts.
func (f *Feed) BeginMutation(id string, mutate func(*models.Post)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[id]
	if !ok {
		return &errs.NotFoundError{Resource: "Post"}
	}
	if e.state == StatePending {
		return ErrMutationPending
	}

	e.snapshot = clonePost(e.post)
	mutate(&e.post)
	e.state = StatePending
	return nil
}

// Rollback restores the pre-mutation snapshot after a failed mutation.
func (f *Feed) Rollback(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[id]
	if !ok || e.state != StatePending {
		return
	}
	e.post = e.snapshot
	e.state = StateIdle
}

// Posts returns the current feed, newest first.
func (f *Feed) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Post, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.entries[id].post)
	}
	return out
}

// State reports the reconciliation state of one post.
func (f *Feed) State(id string) MutationState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.entries[id]; ok {
		return e.state
	}
	return StateIdle
}

// Len reports the number of posts in the feed.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// clonePost deep-copies the slices the optimistic delta mutates.
func clonePost(p models.Post) models.Post {
	p.Reactions = append([]models.Reaction(nil), p.Reactions...)
	p.Comments = append([]models.Comment(nil), p.Comments...)
	return p
}
