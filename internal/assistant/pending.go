package assistant

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// PendingAction is a proposal waiting for the user's decision.
type PendingAction struct {
	Token     string
	Action    model.ActionResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the action can no longer be confirmed at now.
func (p PendingAction) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// PendingStore holds proposals between propose and confirm.
type PendingStore interface {
	Put(action model.ActionResult) (string, error)
	// Take removes and returns the entry regardless of expiry.
	Take(token string) (PendingAction, error)
}

// PendingOption configures a MemoryPendingStore.
type PendingOption func(*MemoryPendingStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PendingOption {
	return func(s *MemoryPendingStore) { s.now = now }
}

// MemoryPendingStore keeps proposals in process memory. It is not durable:
// a restart drops every pending proposal.
type MemoryPendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	now     func() time.Time
	order   *list.List // of *PendingAction, oldest first
	entries map[string]*list.Element
}

func NewMemoryPendingStore(ttl time.Duration, capacity int, opts ...PendingOption) *MemoryPendingStore {
	s := &MemoryPendingStore{
		ttl:     ttl,
		cap:     capacity,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores action under a fresh token. When the store is full the oldest
// entries are evicted down to 90% of capacity first.
func (s *MemoryPendingStore) Put(action model.ActionResult) (string, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "store pending action", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap > 0 && s.order.Len() >= s.cap {
		target := s.cap * 9 / 10
		if target >= s.cap {
			target = s.cap - 1
		}
		for s.order.Len() > target {
			s.remove(s.order.Front())
		}
	}

	now := s.now()
	entry := &PendingAction{Token: token.String(), Action: action, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
	s.entries[entry.Token] = s.order.PushBack(entry)
	return entry.Token, nil
}

func (s *MemoryPendingStore) Take(token string) (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[token]
	if !ok {
		return PendingAction{}, apperr.NotFound(apperr.OpConfirm, "pending action %q not found", token)
	}
	entry := *el.Value.(*PendingAction)
	s.remove(el)
	return entry, nil
}

// Sweep drops entries expired at now and returns how many were dropped.
func (s *MemoryPendingStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*PendingAction).Expired(now) {
			s.remove(el)
			dropped++
		}
		el = next
	}
	return dropped
}

func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *MemoryPendingStore) remove(el *list.Element) {
	delete(s.entries, el.Value.(*PendingAction).Token)
	s.order.Remove(el)
}
